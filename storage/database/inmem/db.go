package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/class"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/payroll"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/receipt"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/student"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

type (
	// DB keeps every table in memory. Transactions are serialized and rolled back by snapshot.
	DB struct {
		txMu sync.Mutex

		user       *table[user.User]
		student    *table[student.Student]
		note       *table[student.Note]
		class      *table[class.Class]
		pkg        *table[attendance.Package]
		session    *table[attendance.Session]
		ledger     *table[ledger.Entry]
		payroll    *table[payroll.Entry]
		receipt    *table[receipt.Receipt]
		receiptSeq *table[int]
	}

	table[T any] struct {
		rows  map[string]T
		mutex sync.RWMutex
	}

	snapshotter interface {
		snapshot() (restore func())
	}
)

func Open() *DB {
	return &DB{
		user:       newTable[user.User](),
		student:    newTable[student.Student](),
		note:       newTable[student.Note](),
		class:      newTable[class.Class](),
		pkg:        newTable[attendance.Package](),
		session:    newTable[attendance.Session](),
		ledger:     newTable[ledger.Entry](),
		payroll:    newTable[payroll.Entry](),
		receipt:    newTable[receipt.Receipt](),
		receiptSeq: newTable[int](),
	}
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) get(id string) (T, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T]) put(id string, row T) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.rows[id] = row
}

// replace saves row only when id already exists.
func (t *table[T]) replace(id string, row T) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	t.rows[id] = row
	return true
}

// replaceIf saves row only when id exists and its current row satisfies cond.
func (t *table[T]) replaceIf(id string, row T, cond func(cur T) bool) (found, replaced bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	cur, ok := t.rows[id]
	if !ok {
		return false, false
	}
	if !cond(cur) {
		return true, false
	}
	t.rows[id] = row
	return true, true
}

func (t *table[T]) delete(id string) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

// filter returns the rows matching keep, in no particular order.
func (t *table[T]) filter(keep func(T) bool) []T {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	rows := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if keep == nil || keep(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

func (t *table[T]) any(match func(T) bool) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	for _, row := range t.rows {
		if match(row) {
			return true
		}
	}
	return false
}

func (t *table[T]) snapshot() func() {
	t.mutex.RLock()
	saved := make(map[string]T, len(t.rows))
	for id, row := range t.rows {
		saved[id] = row
	}
	t.mutex.RUnlock()

	return func() {
		t.mutex.Lock()
		t.rows = saved
		t.mutex.Unlock()
	}
}

func (db *DB) tables() []snapshotter {
	return []snapshotter{
		db.user, db.student, db.note, db.class, db.pkg, db.session,
		db.ledger, db.payroll, db.receipt, db.receiptSeq,
	}
}

type transactor struct {
	db *DB
}

var _ core.Transactor = (*transactor)(nil) // interface compliance check

func NewTransactor(db *DB) core.Transactor {
	return &transactor{db: db}
}

// WithinTx runs fn with a nil executor; every table is restored when fn fails.
func (t *transactor) WithinTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	tables := t.db.tables()
	restores := make([]func(), 0, len(tables))
	for _, tbl := range tables {
		restores = append(restores, tbl.snapshot())
	}
	if err := fn(nil); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

func newID() string {
	return uuid.New().String()
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func copyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}

// comparator returns <0, 0 or >0 like strings.Compare.
type comparator[T any] func(a, b T) int

// sortRows orders rows by the known orderings, falling back on fallback.
func sortRows[T any](rows []T, ordering []core.DBOrdering, known map[string]comparator[T], fallback comparator[T]) {
	cmps := make([]comparator[T], 0, len(ordering)+1)
	for _, ord := range ordering {
		cmp, ok := known[ord.Field]
		if !ok {
			continue
		}
		if ord.Ascending {
			cmps = append(cmps, cmp)
		} else {
			cmps = append(cmps, func(a, b T) int { return -cmp(a, b) })
		}
	}
	if len(cmps) == 0 {
		cmps = append(cmps, fallback)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, cmp := range cmps {
			if c := cmp(rows[i], rows[j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func cmpDate(a, b core.Date) int {
	return cmpTime(a.Time, b.Time)
}
