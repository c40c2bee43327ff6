// FilePath: internal/repository/memory/memory.store.go
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
)

type historyKey struct {
	entityID int64
	unix     int64
}

// Store is a process-local stand-in for the database. Writes made through a
// Tx are staged and only become visible on Commit. It backs dry runs and
// tests.
type Store struct {
	mu          sync.Mutex
	apiaries    map[int64]models.Apiary
	hives       map[int64]models.Hive
	sensors     map[int64]models.Sensor
	assignments []models.SensorAssignment
	history     map[historyKey]models.History
	events      []models.Event
	nextID      int64

	// FailOn, when set, is consulted before every write. A non-nil return
	// aborts the write with that error.
	FailOn func(op string, entityID int64) error
}

func NewStore() *Store {
	return &Store{
		apiaries: make(map[int64]models.Apiary),
		hives:    make(map[int64]models.Hive),
		sensors:  make(map[int64]models.Sensor),
		history:  make(map[historyKey]models.History),
	}
}

func (s *Store) fail(op string, id int64) error {
	if s.FailOn == nil {
		return nil
	}
	if err := s.FailOn(op, id); err != nil {
		return errors.NewPersistenceError(op+" failed", err).WithEntity(id)
	}
	return nil
}

// Tx stages writes until Commit.
type Tx struct {
	store  *Store
	ops    []func()
	staged []models.SensorAssignment
	done   bool
}

var errRawSQL = fmt.Errorf("memory store does not execute SQL")

func (t *Tx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errRawSQL
}

func (t *Tx) NamedExecContext(context.Context, string, interface{}) (sql.Result, error) {
	return nil, errRawSQL
}

func (t *Tx) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return errRawSQL
}

func (t *Tx) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return errRawSQL
}

func (t *Tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, op := range t.ops {
		op()
	}
	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.ops = nil
	return nil
}

// BeginTx starts a staged transaction.
func (s *Store) BeginTx(ctx context.Context) (database.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewPersistenceError("failed to begin transaction", err)
	}
	return &Tx{store: s}, nil
}

// apply runs op inside tx, or immediately when tx is nil.
func (s *Store) apply(tx database.Transaction, op func()) error {
	if tx == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		op()
		return nil
	}
	mtx, ok := tx.(*Tx)
	if !ok || mtx.store != s {
		return errors.NewInternalError("foreign transaction passed to memory store", nil)
	}
	if mtx.done {
		return errors.NewPersistenceError("transaction already finished", sql.ErrTxDone)
	}
	mtx.ops = append(mtx.ops, op)
	return nil
}

// Apiaries returns a snapshot of the committed apiaries ordered by id.
func (s *Store) Apiaries() []models.Apiary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Apiary, 0, len(s.apiaries))
	for _, a := range s.apiaries {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Hives returns a snapshot of the committed hives ordered by id.
func (s *Store) Hives() []models.Hive {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Hive, 0, len(s.hives))
	for _, h := range s.hives {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HistoryCount returns the number of committed rows of an entity.
func (s *Store) HistoryCount(entityID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.history {
		if k.entityID == entityID {
			n++
		}
	}
	return n
}

// PutHistory commits rows directly, for seeding.
func (s *Store) PutHistory(rows ...*models.History) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.mergeHistory(r)
	}
}

func (s *Store) mergeHistory(row *models.History) {
	key := historyKey{entityID: row.EntityID, unix: row.Time.UnixNano()}
	existing, ok := s.history[key]
	if !ok {
		s.history[key] = *row
		return
	}
	for _, a := range models.Attributes {
		if v := row.Attribute(a); v != nil {
			_ = existing.SetAttribute(a, v)
		}
	}
	existing.UpdatedAt = row.UpdatedAt
	s.history[key] = existing
}

func now() time.Time {
	return time.Now().UTC()
}
