// Package history persists per-request history in a local sqlite database.
//
// The proxy's GIN log is the source for request rows, the management API's
// usage accounting for the all-time token totals. The request table is a
// rolling window: only the newest 500 rows survive, while totals keep
// counting.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // database/sql driver

	"github.com/proxypal/proxypal/internal/proto"
)

// keepLast is the request window size.
const keepLast = 500

var errNoTotals = errors.New("history totals row missing")

// DB stores request history.
type DB struct {
	db *sqlx.DB
}

// Open opens (and migrates) the history database at path. Use ":memory:" for
// an ephemeral database.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("could not create history directory: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping history db: %w", err)
	}
	if _, err := db.Exec(`
		create table if not exists requests(
			id string not null primary key,
			ts integer not null,
			method string not null,
			path string not null,
			model string not null,
			provider string not null,
			status integer not null,
			duration_ms integer not null,
			tokens_in integer not null default 0,
			tokens_out integer not null default 0,
			cost real not null default 0
		);
		create index if not exists requests_ts on requests(ts);
		create table if not exists totals(
			id integer not null primary key check (id = 1),
			tokens_in integer not null default 0,
			tokens_out integer not null default 0,
			cost real not null default 0
		);
		insert or ignore into totals (id) values (1);
	`); err != nil {
		return nil, fmt.Errorf("could not migrate history db: %w", err)
	}
	return &DB{db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close() //nolint:wrapcheck
}

type row struct {
	ID         string  `db:"id"`
	TS         int64   `db:"ts"`
	Method     string  `db:"method"`
	Path       string  `db:"path"`
	Model      string  `db:"model"`
	Provider   string  `db:"provider"`
	Status     int     `db:"status"`
	DurationMS int64   `db:"duration_ms"`
	TokensIn   int64   `db:"tokens_in"`
	TokensOut  int64   `db:"tokens_out"`
	Cost       float64 `db:"cost"`
}

func (r row) record() proto.RequestRecord {
	return proto.RequestRecord{
		ID:        r.ID,
		Timestamp: time.UnixMilli(r.TS),
		Method:    r.Method,
		Path:      r.Path,
		Model:     r.Model,
		Provider:  proto.Provider(r.Provider),
		Status:    r.Status,
		Duration:  time.Duration(r.DurationMS) * time.Millisecond,
		TokensIn:  r.TokensIn,
		TokensOut: r.TokensOut,
		Cost:      r.Cost,
	}
}

// Record stores one request. Requests already seen, by id or by identical
// timestamp and path, are dropped so that log rotation replays don't double
// count. The request's cost is estimated from its model when not set.
func (d *DB) Record(r proto.RequestRecord) error {
	if r.Cost == 0 {
		r.Cost = EstimateCost(r.Model, r.TokensIn, r.TokensOut)
	}
	ts := r.Timestamp.UnixMilli()

	tx, err := d.db.Beginx()
	if err != nil {
		return fmt.Errorf("could not record request: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists bool
	if err := tx.Get(&exists, `
		select exists(
			select 1 from requests where id = $1 or (ts = $2 and path = $3)
		)
	`, r.ID, ts, r.Path); err != nil {
		return fmt.Errorf("could not record request: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		insert into requests (id, ts, method, path, model, provider, status, duration_ms, tokens_in, tokens_out, cost)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.ID, ts, r.Method, r.Path, r.Model, string(r.Provider), r.Status,
		r.Duration.Milliseconds(), r.TokensIn, r.TokensOut, r.Cost); err != nil {
		return fmt.Errorf("could not record request: %w", err)
	}

	if _, err := tx.Exec(`
		update totals
		set tokens_in = tokens_in + $1, tokens_out = tokens_out + $2, cost = cost + $3
		where id = 1
	`, r.TokensIn, r.TokensOut, r.Cost); err != nil {
		return fmt.Errorf("could not record request: %w", err)
	}

	if _, err := tx.Exec(`
		delete from requests where id in (
			select id from requests order by ts desc limit -1 offset $1
		)
	`, keepLast); err != nil {
		return fmt.Errorf("could not prune request history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not record request: %w", err)
	}
	return nil
}

// Recent returns the newest requests, newest first. n falls back to 50.
func (d *DB) Recent(n int) ([]proto.RequestRecord, error) {
	if n <= 0 {
		n = 50
	}
	var rows []row
	if err := d.db.Select(&rows, `
		select * from requests order by ts desc limit $1
	`, n); err != nil {
		return nil, fmt.Errorf("could not list requests: %w", err)
	}
	return records(rows), nil
}

// Since returns all stored requests at or after t, newest first.
func (d *DB) Since(t time.Time) ([]proto.RequestRecord, error) {
	var rows []row
	if err := d.db.Select(&rows, `
		select * from requests where ts >= $1 order by ts desc
	`, t.UnixMilli()); err != nil {
		return nil, fmt.Errorf("could not list requests: %w", err)
	}
	return records(rows), nil
}

func records(rows []row) []proto.RequestRecord {
	out := make([]proto.RequestRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out
}

// Totals is the all-time token and cost accounting.
type Totals struct {
	TokensIn  int64   `db:"tokens_in"`
	TokensOut int64   `db:"tokens_out"`
	Cost      float64 `db:"cost"`
}

// Totals returns the all-time accounting.
func (d *DB) Totals() (Totals, error) {
	var t []Totals
	if err := d.db.Select(&t, `select tokens_in, tokens_out, cost from totals where id = 1`); err != nil {
		return Totals{}, fmt.Errorf("could not read totals: %w", err)
	}
	if len(t) == 0 {
		return Totals{}, errNoTotals
	}
	return t[0], nil
}

// SetTotals overwrites the all-time accounting, e.g. after syncing real
// token counts from the proxy's usage endpoint.
func (d *DB) SetTotals(t Totals) error {
	if _, err := d.db.Exec(`
		update totals set tokens_in = $1, tokens_out = $2, cost = $3 where id = 1
	`, t.TokensIn, t.TokensOut, t.Cost); err != nil {
		return fmt.Errorf("could not update totals: %w", err)
	}
	return nil
}

// Clear drops all stored requests and resets the totals.
func (d *DB) Clear() error {
	if _, err := d.db.Exec(`delete from requests`); err != nil {
		return fmt.Errorf("could not clear history: %w", err)
	}
	if _, err := d.db.Exec(`update totals set tokens_in = 0, tokens_out = 0, cost = 0 where id = 1`); err != nil {
		return fmt.Errorf("could not clear history: %w", err)
	}
	return nil
}
