// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/storage/database"
)

type repo struct {
	db core.DBExecutor
}

func (r repo) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	return core.GetExecutor(r.db, svcExec)
}

// where accumulates AND conditions with their positional arguments.
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

func (w *where) limit(n int) string {
	if n <= 0 {
		return ""
	}
	w.args = append(w.args, n)
	return fmt.Sprintf(" LIMIT $%d", len(w.args))
}

// isMissing reports a missing row or a malformed key, which no row can match.
func isMissing(err error) bool {
	return errors.Cause(err) == sql.ErrNoRows || database.IsInvalidInput(err)
}

func get(ctx context.Context, exec core.DBExecutor, dest interface{}, notFound error, query string, args ...interface{}) error {
	if err := sqlx.GetContext(ctx, exec, dest, query, args...); err != nil {
		if notFound != nil && isMissing(err) {
			return notFound
		}
		return errors.Wrap(err, "selecting row")
	}
	return nil
}

// selectRows leaves dest empty when a filter value is malformed.
func selectRows(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.SelectContext(ctx, exec, dest, query, args...)
	if database.IsInvalidInput(err) {
		return nil
	}
	return errors.Wrap(err, "selecting rows")
}

func namedExec(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) error {
	_, err := sqlx.NamedExecContext(ctx, exec, query, arg)
	return database.MapError(errors.Wrap(err, "executing statement"))
}

// mustAffect runs a statement and reports notFound when it touches no row.
func mustAffect(ctx context.Context, exec core.DBExecutor, notFound error, query string, args ...interface{}) error {
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		if database.IsInvalidInput(err) {
			return notFound
		}
		return database.MapError(errors.Wrap(err, "executing statement"))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func execStmt(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) error {
	_, err := exec.ExecContext(ctx, query, args...)
	return database.MapError(errors.Wrap(err, "executing statement"))
}

// json columns

func toJSON(v interface{}) (types.JSONText, error) {
	b, err := json.Marshal(v)
	return types.JSONText(b), errors.Wrap(err, "encoding json")
}

func toNullJSON(v interface{}, valid bool) (types.NullJSONText, error) {
	if !valid {
		return types.NullJSONText{}, nil
	}
	j, err := toJSON(v)
	return types.NullJSONText{JSONText: j, Valid: err == nil}, err
}

func fromNullJSON(j types.NullJSONText, dst interface{}) (bool, error) {
	if !j.Valid || len(j.JSONText) == 0 || string(j.JSONText) == "null" {
		return false, nil
	}
	return true, errors.Wrap(j.Unmarshal(dst), "decoding json")
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
