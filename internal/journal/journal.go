// Package journal keeps a local SQLite record of submitted transactions and
// the dispersal events they emitted.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"

	"github.com/ligun0805/multisend/internal/disperse"
	"github.com/ligun0805/multisend/internal/multisender"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type Journal struct {
	db  *sql.DB
	now func() time.Time
}

var _ disperse.Recorder = (*Journal)(nil)

// Open opens the database at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, now: time.Now}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// migrate runs the embedded scripts in file name order; each is idempotent.
func migrate(ctx context.Context, db *sql.DB) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}
	sort.Slice(entries, func(i, k int) bool { return entries[i].Name() < entries[k].Name() })
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raw, err := migrationFS.ReadFile(filepath.ToSlash(filepath.Join("migrations", e.Name())))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		if _, err := db.ExecContext(ctx, string(raw)); err != nil {
			return fmt.Errorf("exec migration %s: %w", e.Name(), err)
		}
	}
	return nil
}

// RecordAttempt inserts the attempt or updates its status and detail.
func (j *Journal) RecordAttempt(ctx context.Context, a disperse.Attempt) error {
	total := "0"
	if a.Total != nil {
		total = a.Total.String()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO attempts(hash, kind, asset, total, recipients, status, detail, submitted_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			status=excluded.status,
			detail=excluded.detail,
			updated_at=excluded.updated_at
	`, a.Hash.Hex(), string(a.Kind), a.Asset, total, a.Recipients, string(a.Status), a.Detail,
		a.SubmittedAt.Unix(), j.now().Unix())
	if err != nil {
		return fmt.Errorf("upsert attempt: %w", err)
	}
	return nil
}

func (j *Journal) RecordEvent(ctx context.Context, ev multisender.Event) error {
	total := "0"
	if ev.Total != nil {
		total = ev.Total.String()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO events(tx_hash, kind, token, sender, total, recipients, block_number)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, ev.TxHash.Hex(), ev.Kind.String(), ev.Token.Hex(), ev.From.Hex(), total, ev.Recipients, ev.BlockNumber)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Attempts returns the most recent attempts first. limit <= 0 means all.
func (j *Journal) Attempts(ctx context.Context, limit int) ([]disperse.Attempt, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT hash, kind, asset, total, recipients, status, detail, submitted_at
		FROM attempts
		ORDER BY submitted_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []disperse.Attempt
	for rows.Next() {
		var (
			a                  disperse.Attempt
			hash, kind, status string
			total              string
			submitted          int64
		)
		if err := rows.Scan(&hash, &kind, &a.Asset, &total, &a.Recipients, &status, &a.Detail, &submitted); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Hash = common.HexToHash(hash)
		a.Kind = disperse.AttemptKind(kind)
		a.Status = disperse.AttemptStatus(status)
		a.SubmittedAt = time.Unix(submitted, 0)
		a.Total, _ = new(big.Int).SetString(total, 10)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Event returns the dispersal event recorded for txHash, if any.
func (j *Journal) Event(ctx context.Context, txHash common.Hash) (*multisender.Event, error) {
	var (
		ev                         multisender.Event
		kind, token, sender, total string
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT kind, token, sender, total, recipients, block_number
		FROM events WHERE tx_hash = ?
	`, txHash.Hex()).Scan(&kind, &token, &sender, &total, &ev.Recipients, &ev.BlockNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	ev.TxHash = txHash
	ev.Kind = multisender.EventNative
	if kind == multisender.EventToken.String() {
		ev.Kind = multisender.EventToken
	}
	ev.Token = common.HexToAddress(token)
	ev.From = common.HexToAddress(sender)
	ev.Total, _ = new(big.Int).SetString(total, 10)
	return &ev, nil
}
