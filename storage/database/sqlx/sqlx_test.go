package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsMissing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "no rows", err: sql.ErrNoRows, want: true},
		{name: "wrapped no rows", err: errors.Wrap(sql.ErrNoRows, "scanning"), want: true},
		{name: "id is not a uuid", err: &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}, want: true},
		{name: "unique violation", err: &pq.Error{Code: "23505"}, want: false},
		{name: "connection lost", err: errors.New("driver: bad connection"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isMissing(tt.err))
		})
	}
}

func TestWhere(t *testing.T) {
	var w where
	assert.Equal(t, "", w.String())

	w.add("course_id = $%d", "c1")
	w.add("status = $%d", "active")
	assert.Equal(t, " WHERE course_id = $1 AND status = $2", w.String())
	assert.Equal(t, " LIMIT $3", w.limit(10))
	assert.Equal(t, []interface{}{"c1", "active", 10}, w.args)
	assert.Equal(t, "", w.limit(0))
}
