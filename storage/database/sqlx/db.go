// Package sqlxrepos implements the domain repositories on Postgres with sqlx.
// Constraint violations are translated by database.WriteError and database.DeleteError.
package sqlxrepos

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/classwork/core"
)

// where accumulates AND-ed conditions with positional args.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy renders an ORDER BY clause with the orderings naming an allowed column, then id.
func orderBy(ordering []core.DBOrdering, allowed []string, prefix string) string {
	var clauses []string
	for _, ord := range ordering {
		for _, a := range allowed {
			if ord.Field == a {
				clauses = append(clauses, prefix+ord.String())
				break
			}
		}
	}
	clauses = append(clauses, prefix+"id ASC")
	return " ORDER BY " + strings.Join(clauses, ", ")
}

func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func notFound(err error) error {
	if stderrors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

type queryer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

var _ queryer = (*sqlx.DB)(nil)
