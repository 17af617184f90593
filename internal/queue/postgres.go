package queue

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/funding-cli/internal/model"
)

// pool is the subset of pgxpool.Pool the queue uses; pgxmock satisfies it.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool pool
}

// NewPostgres connects to connString and pings the server.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "queue: postgres parse config")
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "queue: postgres create pool")
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "queue: postgres ping")
	}
	return &Postgres{pool: p}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS verification_queue (
	id           TEXT PRIMARY KEY,
	type         TEXT NOT NULL,
	company_name TEXT NOT NULL,
	data         JSONB,
	reason       TEXT NOT NULL,
	priority     TEXT NOT NULL,
	linkedin_url TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_verification_queue_created_at ON verification_queue(created_at);
`

// Migrate creates the queue table.
func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "queue: postgres migrate")
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func (s *Postgres) Add(ctx context.Context, item model.QueueItem) (model.QueueItem, error) {
	item = prepare(item)
	data, err := marshalData(item.Data)
	if err != nil {
		return model.QueueItem{}, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO verification_queue (id, type, company_name, data, reason, priority, linkedin_url, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, string(item.Type), item.CompanyName, data, item.Reason, string(item.Priority), item.LinkedInURL, item.CreatedAt,
	)
	if err != nil {
		return model.QueueItem{}, eris.Wrapf(err, "queue: postgres insert %s", item.ID)
	}
	return item, nil
}

const postgresSelect = `SELECT id, type, company_name, data, reason, priority, linkedin_url, created_at FROM verification_queue`

func (s *Postgres) Get(ctx context.Context, id string) (model.QueueItem, error) {
	item, err := scanPostgres(s.pool.QueryRow(ctx, postgresSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.QueueItem{}, ErrNotFound
	}
	if err != nil {
		return model.QueueItem{}, eris.Wrapf(err, "queue: postgres get %s", id)
	}
	return item, nil
}

func (s *Postgres) List(ctx context.Context) ([]model.QueueItem, error) {
	rows, err := s.pool.Query(ctx, postgresSelect)
	if err != nil {
		return nil, eris.Wrap(err, "queue: postgres list")
	}
	defer rows.Close()

	var items []model.QueueItem
	for rows.Next() {
		item, err := scanPostgres(rows)
		if err != nil {
			return nil, eris.Wrap(err, "queue: postgres scan")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "queue: postgres rows")
	}
	model.SortQueue(items)
	return items, nil
}

func (s *Postgres) Complete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM verification_queue WHERE id = $1`, id)
	if err != nil {
		return false, eris.Wrapf(err, "queue: postgres delete %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Postgres) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM verification_queue`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "queue: postgres count")
	}
	return n, nil
}

func scanPostgres(row pgx.Row) (model.QueueItem, error) {
	var (
		item      model.QueueItem
		typ, prio string
		data      []byte
	)
	if err := row.Scan(&item.ID, &typ, &item.CompanyName, &data, &item.Reason, &prio, &item.LinkedInURL, &item.CreatedAt); err != nil {
		return model.QueueItem{}, err
	}
	item.Type = model.QueueItemType(typ)
	item.Priority = model.Priority(prio)
	d, err := unmarshalData(data)
	if err != nil {
		return model.QueueItem{}, err
	}
	item.Data = d
	return item, nil
}
