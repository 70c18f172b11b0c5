package course

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

var errInvalidLabels = errors.New("labels must be a list of strings or a comma separated string")

// Labels is a multi-value field (categories, tags) holding trimmed, non-empty values.
type Labels []string

// ParseLabels splits a comma separated string into Labels.
// Segments are trimmed and empty ones are dropped.
func ParseLabels(s string) Labels {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	labels := make(Labels, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			labels = append(labels, p)
		}
	}
	if len(labels) == 0 {
		return nil
	}
	return labels
}

// NewLabels cleans vals the same way ParseLabels cleans comma separated segments.
func NewLabels(vals ...string) Labels {
	labels := make(Labels, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			labels = append(labels, v)
		}
	}
	if len(labels) == 0 {
		return nil
	}
	return labels
}

// String joins labels in their legacy comma separated form.
func (l Labels) String() string {
	return strings.Join(l, ", ")
}

func (l Labels) Contains(label string) bool {
	for _, v := range l {
		if strings.TrimSpace(v) == label {
			return true
		}
	}
	return false
}

// ContainsFold reports whether any label contains `substr`, ignoring case.
// `substr` is expected to be lowered already.
func (l Labels) ContainsFold(substr string) bool {
	for _, v := range l {
		if strings.Contains(strings.ToLower(v), substr) {
			return true
		}
	}
	return false
}

func (l Labels) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// UnmarshalJSON accepts a list of strings, a comma separated string or null.
func (l *Labels) UnmarshalJSON(data []byte) error {
	var vals []string
	if err := json.Unmarshal(data, &vals); err == nil {
		*l = NewLabels(vals...)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errInvalidLabels
	}
	*l = ParseLabels(s)
	return nil
}
