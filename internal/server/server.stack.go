// FilePath: internal/server/server.stack.go
package server

import (
	"context"
	"fmt"

	"github.com/jodok/bees/internal/clients/beep"
	"github.com/jodok/bees/internal/clients/bhm"
	"github.com/jodok/bees/internal/config"
	"github.com/jodok/bees/internal/database"
	"github.com/jodok/bees/internal/hubservice"
	"github.com/jodok/bees/internal/lock"
	"github.com/jodok/bees/internal/repository"
	"github.com/jodok/bees/internal/repository/memory"
	"github.com/jodok/bees/internal/repository/postgres"
	"github.com/jodok/bees/internal/repository/timescale"
	"github.com/jodok/bees/internal/republisher"
	"github.com/jodok/bees/internal/service"
	"github.com/jodok/bees/internal/syncservice"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

// Repositories is one of each repository, backed by Postgres or by memory.
type Repositories struct {
	Apiaries    repository.ApiaryRepository
	Hives       repository.HiveRepository
	Sensors     repository.SensorRepository
	Assignments repository.AssignmentRepository
	History     repository.HistoryRepository
	Events      repository.EventRepository
}

// StackOptions selects how OpenStack builds the storage layer.
type StackOptions struct {
	// InMemory skips the database entirely. Used by dry runs.
	InMemory bool
	// NeedRedis forces a redis client even when neither the lock nor the
	// watermark cache asks for one.
	NeedRedis bool
}

// Stack is everything a command needs to run jobs against the store.
type Stack struct {
	Config  *config.Config
	DB      database.DB
	Redis   *redis.Client
	Repos   Repositories
	Service *service.Service
	Hub     *hubservice.HubService
}

// OpenStack connects to the configured backends and builds the services.
func OpenStack(ctx context.Context, cfg *config.Config, opts StackOptions) (*Stack, error) {
	st := &Stack{Config: cfg}

	if opts.InMemory {
		mem := memory.NewRepositories()
		st.Repos = Repositories{
			Apiaries:    mem.Apiaries,
			Hives:       mem.Hives,
			Sensors:     mem.Sensors,
			Assignments: mem.Assignments,
			History:     mem.History,
			Events:      mem.Events,
		}
		nuts.L.Infof("[Server] using in-memory store")
	} else {
		db, err := database.NewPostgresDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		st.DB = db
		if err := postgres.InitializeSchema(ctx, db); err != nil {
			st.Close()
			return nil, err
		}
		history, err := timescale.NewHistoryRepository(ctx, db)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.Repos = Repositories{
			Apiaries:    postgres.NewApiaryRepository(db),
			Hives:       postgres.NewHiveRepository(db),
			Sensors:     postgres.NewSensorRepository(db),
			Assignments: postgres.NewAssignmentRepository(db),
			History:     history,
			Events:      postgres.NewEventRepository(db),
		}
	}

	if opts.NeedRedis || cfg.Lock.Backend == "redis" || cfg.Beep.WatermarkCache {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			st.Close()
			return nil, fmt.Errorf("redis init failed: %w", err)
		}
		st.Redis = rdb
	}

	r := st.Repos
	st.Service = service.New(r.Apiaries, r.Hives, r.Sensors, r.Assignments, r.History)
	if err := st.Service.Validate(); err != nil {
		st.Close()
		return nil, err
	}
	st.Hub = hubservice.New(r.Apiaries, r.Hives, r.Sensors, r.History, r.Events)
	return st, nil
}

// Locker returns the single-instance lock for one job. Each job locks its
// own file or key.
func (st *Stack) Locker(job string) (lock.Locker, error) {
	cfg := st.Config.Lock
	cfg.Path = cfg.Path + "." + job
	cfg.Key = cfg.Key + ":" + job
	return lock.New(cfg, st.Redis)
}

// NewSyncService builds a sync driver reading from BeehiveMonitoring.
func (st *Stack) NewSyncService(dryRun bool) *syncservice.SyncService {
	source := bhm.New(st.Config.Source)
	return syncservice.New(st.Config, source, st.Service).WithDryRun(dryRun)
}

// NewRepublisher builds a republisher posting to BEEP. The watermark cache
// is only attached when configured.
func (st *Stack) NewRepublisher() *republisher.Republisher {
	var cache republisher.WatermarkCache
	if st.Config.Beep.WatermarkCache && st.Redis != nil {
		cache = republisher.NewRedisWatermarkCache(st.Redis)
	}
	return republisher.New(st.Config.Beep, beep.New(st.Config.Beep), st.Service, cache)
}

// Close releases the database and redis connections.
func (st *Stack) Close() {
	if st.Redis != nil {
		if err := st.Redis.Close(); err != nil {
			nuts.L.Warnf("[Server] closing redis: %v", err)
		}
	}
	if st.DB != nil {
		if err := st.DB.Close(); err != nil {
			nuts.L.Warnf("[Server] closing database: %v", err)
		}
	}
}
