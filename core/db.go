package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy builds an ORDER BY clause from the orderings whose field is in `columns` ({field: column}).
// Unknown fields are dropped. `fallback` is returned when nothing is left.
func OrderBy(ordering []DBOrdering, columns map[string]string, fallback string) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		clauses = append(clauses, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(clauses) == 0 {
		return fallback
	}
	return strings.Join(clauses, ", ")
}
