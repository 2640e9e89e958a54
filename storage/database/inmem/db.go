// Package inmemdb is a volatile store implementing every repository, used by tests and the memory storage mode.
package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
	"github.com/trezcool/elimu/core/user"
)

type record[T any] struct {
	seq int64
	val T
}

type table[T any] map[string]record[T]

func (t table[T]) clone() table[T] {
	out := make(table[T], len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// rows returns the values kept by keep, in insertion order.
func (t table[T]) rows(keep func(T) bool) []T {
	recs := make([]record[T], 0, len(t))
	for _, r := range t {
		if keep == nil || keep(r.val) {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]T, len(recs))
	for i, r := range recs {
		out[i] = r.val
	}
	return out
}

// newestFirst orders rows by descending key, latest inserted first on ties.
func newestFirst[T any](rows []T, key func(T) int64) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	sort.SliceStable(rows, func(i, j int) bool { return key(rows[i]) > key(rows[j]) })
}

type tables struct {
	users       table[user.User]
	courses     table[lms.Course]
	modules     table[lms.Module]
	exercises   table[lms.Exercise]
	submissions table[lms.Submission]
	enrollments table[lms.Enrollment]
	progress    table[lms.ModuleProgress]
}

func (t tables) clone() tables {
	return tables{
		users:       t.users.clone(),
		courses:     t.courses.clone(),
		modules:     t.modules.clone(),
		exercises:   t.exercises.clone(),
		submissions: t.submissions.clone(),
		enrollments: t.enrollments.clone(),
		progress:    t.progress.clone(),
	}
}

// DB holds every table behind one lock. Transactions are serialised and rolled back by restoring a snapshot;
// writes made outside a transaction wait for the open one to finish.
type DB struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	seq  int64
	t    tables
}

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	return &DB{t: tables{
		users:       make(table[user.User]),
		courses:     make(table[lms.Course]),
		modules:     make(table[lms.Module]),
		exercises:   make(table[lms.Exercise]),
		submissions: make(table[lms.Submission]),
		enrollments: make(table[lms.Enrollment]),
		progress:    make(table[lms.ModuleProgress]),
	}}
}

func (db *DB) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.RLock()
	snapshot := db.t.clone()
	db.mu.RUnlock()

	committed := false
	defer func() {
		if !committed {
			db.mu.Lock()
			db.t = snapshot
			db.mu.Unlock()
		}
	}()

	if err := fn(&txExec{db: db}); err != nil {
		return err
	}
	committed = true
	return nil
}

// txExec marks repository calls made inside WithinTx. It never runs SQL.
type txExec struct {
	sqlx.ExtContext
	db *DB
}

func (db *DB) inTx(exec []core.DBExecutor) bool {
	if len(exec) == 0 {
		return false
	}
	tx, ok := exec[0].(*txExec)
	return ok && tx.db == db
}

// lock takes the write lock and returns its release.
func (db *DB) lock(exec []core.DBExecutor) func() {
	if db.inTx(exec) {
		db.mu.Lock()
		return db.mu.Unlock
	}
	db.txMu.Lock()
	db.mu.Lock()
	return func() {
		db.mu.Unlock()
		db.txMu.Unlock()
	}
}

func (db *DB) nextSeq() int64 {
	db.seq++
	return db.seq
}

// put stores val under id, keeping its insertion rank when it already exists.
func put[T any](db *DB, t table[T], id string, val T) {
	if r, ok := t[id]; ok {
		t[id] = record[T]{seq: r.seq, val: val}
		return
	}
	t[id] = record[T]{seq: db.nextSeq(), val: val}
}

func cloneStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	out := make([]string, len(ss))
	copy(out, ss)
	return out
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
