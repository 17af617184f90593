package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/funding-cli/internal/model"
)

// SQLite is a Store backed by a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn in WAL mode.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "queue: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "queue: sqlite exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS verification_queue (
	id           TEXT PRIMARY KEY,
	type         TEXT NOT NULL,
	company_name TEXT NOT NULL,
	data         TEXT,
	reason       TEXT NOT NULL,
	priority     TEXT NOT NULL,
	linkedin_url TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verification_queue_created_at ON verification_queue(created_at);
`

// Migrate creates the queue table.
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "queue: sqlite migrate")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Add(ctx context.Context, item model.QueueItem) (model.QueueItem, error) {
	item = prepare(item)
	b, err := marshalData(item.Data)
	if err != nil {
		return model.QueueItem{}, err
	}
	data := sql.NullString{String: string(b), Valid: b != nil}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verification_queue (id, type, company_name, data, reason, priority, linkedin_url, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, string(item.Type), item.CompanyName, data, item.Reason, string(item.Priority), item.LinkedInURL, item.CreatedAt.UnixNano(),
	)
	if err != nil {
		return model.QueueItem{}, eris.Wrapf(err, "queue: sqlite insert %s", item.ID)
	}
	return item, nil
}

const sqliteSelect = `SELECT id, type, company_name, data, reason, priority, linkedin_url, created_at FROM verification_queue`

func (s *SQLite) Get(ctx context.Context, id string) (model.QueueItem, error) {
	item, err := scanSQLite(s.db.QueryRowContext(ctx, sqliteSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.QueueItem{}, ErrNotFound
	}
	if err != nil {
		return model.QueueItem{}, eris.Wrapf(err, "queue: sqlite get %s", id)
	}
	return item, nil
}

func (s *SQLite) List(ctx context.Context) ([]model.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelect)
	if err != nil {
		return nil, eris.Wrap(err, "queue: sqlite list")
	}
	defer rows.Close() //nolint:errcheck

	var items []model.QueueItem
	for rows.Next() {
		item, err := scanSQLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "queue: sqlite scan")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "queue: sqlite rows")
	}
	model.SortQueue(items)
	return items, nil
}

func (s *SQLite) Complete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM verification_queue WHERE id = ?`, id)
	if err != nil {
		return false, eris.Wrapf(err, "queue: sqlite delete %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "queue: sqlite rows affected")
	}
	return n > 0, nil
}

func (s *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verification_queue`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "queue: sqlite count")
	}
	return n, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLite(row scannable) (model.QueueItem, error) {
	var (
		item      model.QueueItem
		typ, prio string
		data      sql.NullString
		created   int64
	)
	if err := row.Scan(&item.ID, &typ, &item.CompanyName, &data, &item.Reason, &prio, &item.LinkedInURL, &created); err != nil {
		return model.QueueItem{}, err
	}
	item.Type = model.QueueItemType(typ)
	item.Priority = model.Priority(prio)
	item.CreatedAt = time.Unix(0, created).UTC()
	if data.Valid {
		d, err := unmarshalData([]byte(data.String))
		if err != nil {
			return model.QueueItem{}, err
		}
		item.Data = d
	}
	return item, nil
}

func marshalData(d map[string]any) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, eris.Wrap(err, "queue: marshal data")
	}
	return b, nil
}

func unmarshalData(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var d map[string]any
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, eris.Wrap(err, "queue: unmarshal data")
	}
	return d, nil
}
