// Package queue holds the human verification backlog behind a Store
// interface so the orchestrator does not care where items live.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/funding-cli/internal/config"
	"github.com/sells-group/funding-cli/internal/model"
)

// ErrNotFound is returned when a queue item id does not exist.
var ErrNotFound = eris.New("queue: item not found")

// Store is the verification queue. All implementations are safe for
// concurrent use.
type Store interface {
	// Add stores an item, assigning an id and creation time when unset.
	Add(ctx context.Context, item model.QueueItem) (model.QueueItem, error)
	// Get returns one item or ErrNotFound.
	Get(ctx context.Context, id string) (model.QueueItem, error)
	// List returns every item, high priority first then newest first.
	List(ctx context.Context) ([]model.QueueItem, error)
	// Complete removes an item and reports whether it existed.
	Complete(ctx context.Context, id string) (bool, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// prepare fills the id and creation time of a new item.
func prepare(item model.QueueItem) model.QueueItem {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	return item
}

// Open returns the Store selected by cfg.Driver. The caller owns Close.
func Open(ctx context.Context, cfg config.QueueConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "funding-queue.db"
		}
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close() //nolint:errcheck
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close() //nolint:errcheck
			return nil, err
		}
		return s, nil
	case "redis":
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisKey)
	default:
		return nil, eris.Errorf("queue: unknown driver %q", cfg.Driver)
	}
}
