package database

import (
	"database/sql"
	"io/fs"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/elimu/core"
	appfs "github.com/trezcool/elimu/fs"
)

func TestMapError(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "unique violation", err: errors.Wrap(&pq.Error{Code: "23505"}, "inserting"), want: core.ErrConflict},
		{name: "malformed uuid", err: &pq.Error{Code: "22P02"}, want: &pq.Error{Code: "22P02"}},
		{name: "other", err: other, want: other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapError(tt.err))
		})
	}
}

func TestIsInvalidInput(t *testing.T) {
	assert.True(t, IsInvalidInput(&pq.Error{Code: "22P02"}))
	assert.True(t, IsInvalidInput(errors.Wrap(&pq.Error{Code: "22P02"}, "selecting row")))
	assert.False(t, IsInvalidInput(&pq.Error{Code: "23505"}))
	assert.False(t, IsInvalidInput(sql.ErrNoRows))
	assert.False(t, IsInvalidInput(nil))
}

func TestMigrations_foreignKeysCascade(t *testing.T) {
	files, err := fs.Glob(appfs.FS, "migrations/*.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("no migrations found: %v", err)
	}
	for _, name := range files {
		b, err := fs.ReadFile(appfs.FS, name)
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		for _, line := range strings.Split(string(b), "\n") {
			if !strings.Contains(line, "REFERENCES") || strings.Contains(line, "instructor_id") {
				continue
			}
			assert.Contains(t, line, "ON DELETE CASCADE", name)
		}
	}
}
