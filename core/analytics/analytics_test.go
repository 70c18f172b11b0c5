package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLast12Months(t *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	times := []time.Time{
		now,                              // last window
		now.Add(-day),                    // last window
		now.Add(-27 * day),               // last window: [now+1d-28d, now+1d)
		now.Add(-28 * day),               // 11th window
		now.Add(-400 * day),              // out of range
		now.Add(2 * day),                 // future: out of range
		now.Add(-11*window - 1),          // 1st window
		now.Add(day).Add(-12 * window),   // 1st window start
		now.Add(day).Add(-12*window - 1), // out of range
	}

	data := Last12Months(times, now)
	require.Len(t, data, 12)

	assert.Equal(t, "Mar 11, 2024", data[11].Month)
	assert.Equal(t, now.Add(day).Add(-window).Format(labelLayout), data[10].Month)
	assert.Equal(t, 3, data[11].Count)
	assert.Equal(t, 1, data[10].Count)
	assert.Equal(t, 2, data[0].Count)

	var total int
	for _, d := range data {
		total += d.Count
	}
	assert.Equal(t, 6, total)
}

func TestLast12Months_empty(t *testing.T) {
	data := Last12Months(nil, time.Now())
	require.Len(t, data, 12)
	for _, d := range data {
		assert.Zero(t, d.Count)
	}
}
