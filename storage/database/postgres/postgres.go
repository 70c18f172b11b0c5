// Package pgrepos implements the repositories on PostgreSQL with sqlx.
package pgrepos

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// validIDs drops the ids that cannot be a primary key.
func validIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isValidID(id) {
			valid = append(valid, id)
		}
	}
	return valid
}

// likePattern returns a `%s%` ILIKE pattern with the LIKE wildcards of s escaped.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// whereBuilder accumulates AND-ed conditions and their positional args.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

// add appends a condition; every `?` in cond is replaced by the placeholder of arg.
func (w *whereBuilder) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
