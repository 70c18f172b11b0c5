// Package inmemdb implements the repositories on top of mutex guarded maps.
// It backs the API when the "memory" database engine is configured and the HTTP tests.
package inmemdb

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/layout"
	"github.com/trezcool/elimu/core/order"
	"github.com/trezcool/elimu/core/user"
)

type (
	DB struct {
		user   *userTable
		course *courseTable
		layout *layoutTable
		order  *orderTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
		ids   []string // insertion order
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
		ids   []string // insertion order
	}

	layoutTable struct {
		sync.RWMutex
		table map[string]*layout.Layout // {type: layout}
	}

	orderTable struct {
		sync.RWMutex
		table map[string]*order.Order
		ids   []string // insertion order
	}
)

func Open() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset drops all records.
// It must not run concurrently with other calls.
func (db *DB) Reset() {
	db.user = &userTable{table: make(map[string]*user.User)}
	db.course = &courseTable{table: make(map[string]*course.Course)}
	db.layout = &layoutTable{table: make(map[string]*layout.Layout)}
	db.order = &orderTable{table: make(map[string]*order.Order)}
}

func newID() string {
	return uuid.New().String()
}

// orderingLess reports whether a record sorts before another given the ordering.
// cmp compares both records on a field: <0 if less, 0 if equal (or unknown field), >0 if greater.
func orderingLess(ordering []core.DBOrdering, cmp func(field string) int) bool {
	for _, ord := range ordering {
		if c := cmp(ord.Field); c != 0 {
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
	}
	return false
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func removeIDs(ids []string, removed map[string]struct{}) []string {
	kept := ids[:0]
	for _, id := range ids {
		if _, ok := removed[id]; !ok {
			kept = append(kept, id)
		}
	}
	return kept
}
