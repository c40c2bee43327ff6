// FilePath: internal/database/database.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jodok/bees/internal/config"
	_ "github.com/lib/pq"
	nuts "github.com/vaudience/go-nuts"
)

// DB is the connection handle shared by all repositories
type DB interface {
	Close() error
	Ping(ctx context.Context) error
	GetDB() *sqlx.DB
	HasTimescale() bool
}

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so repository code can
// run inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Transaction represents a database transaction
type Transaction interface {
	Querier
	Commit() error
	Rollback() error
}

// Repository represents common repository operations
type Repository interface {
	BeginTx(ctx context.Context) (Transaction, error)
}

// PostgresDB represents a PostgreSQL connection, optionally with the
// TimescaleDB extension installed.
type PostgresDB struct {
	db        *sqlx.DB
	timescale bool
}

// NewPostgresDB opens and verifies a PostgreSQL connection
func NewPostgresDB(ctx context.Context, cfg config.DatabaseConfig) (*PostgresDB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening PostgreSQL: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to PostgreSQL: %w", err)
	}

	p := &PostgresDB{db: db}
	if cfg.Timescale {
		// Verify TimescaleDB extension
		var hasTimescaleDB bool
		err = db.GetContext(ctx, &hasTimescaleDB, "SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'timescaledb')")
		if err != nil || !hasTimescaleDB {
			nuts.L.Warnf("[PostgresDB] TimescaleDB requested but extension not available, history stays a plain table")
		} else {
			p.timescale = true
		}
	}

	nuts.L.Infof("[PostgresDB] Connected (timescale=%v)", p.timescale)
	return p, nil
}

// Wrap adapts an existing handle. Used by tests with sqlmock.
func Wrap(db *sqlx.DB, timescale bool) *PostgresDB {
	return &PostgresDB{db: db, timescale: timescale}
}

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDB) GetDB() *sqlx.DB {
	return p.db
}

func (p *PostgresDB) HasTimescale() bool {
	return p.timescale
}

// RunInTx begins a transaction on repo, runs fn and commits. Any error from
// fn or from the commit rolls the transaction back.
func RunInTx(ctx context.Context, repo Repository, fn func(tx Transaction) error) (err error) {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				nuts.L.Errorf("[Database] rollback failed: %v", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
