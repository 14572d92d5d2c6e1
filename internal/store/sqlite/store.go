// Package sqlite persists tank ledgers in SQLite. Each ledger is stored as its
// snapshot record, encoded as JSON, next to the lock, void and selector flags
// that the snapshot does not carry.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"multifluid/internal/store/sqlite/migrations"
	"multifluid/internal/store/sqlitemigrate"
	"multifluid/ledger"
)

// ErrNotFound is returned when no ledger has the requested name.
var ErrNotFound = errors.New("ledger not found")

// State is one persisted ledger.
type State struct {
	Name       string
	Snapshot   ledger.Record
	Locked     bool
	VoidExcess bool
	Selected   int8
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store persists ledger state in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save inserts or replaces the ledger named state.Name.
func (s *Store) Save(ctx context.Context, state State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	name := strings.TrimSpace(state.Name)
	if name == "" {
		return fmt.Errorf("ledger name is required")
	}
	snapshot, err := json.Marshal(state.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", name, err)
	}
	now := toMillis(s.now())

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO ledgers (name, snapshot, locked, void_excess, selected, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   snapshot = excluded.snapshot,
		   locked = excluded.locked,
		   void_excess = excluded.void_excess,
		   selected = excluded.selected,
		   updated_at = excluded.updated_at`,
		name, string(snapshot), state.Locked, state.VoidExcess, int(state.Selected), now, now,
	)
	if err != nil {
		return fmt.Errorf("save ledger %s: %w", name, err)
	}
	return nil
}

// Load returns the ledger named name or ErrNotFound.
func (s *Store) Load(ctx context.Context, name string) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	if s == nil || s.sqlDB == nil {
		return State{}, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)

	var (
		snapshot           string
		locked, voidExcess bool
		selected           int
		createdAt          int64
		updatedAt          int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT snapshot, locked, void_excess, selected, created_at, updated_at
		 FROM ledgers WHERE name = ?`, name,
	).Scan(&snapshot, &locked, &voidExcess, &selected, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return State{}, fmt.Errorf("load ledger %s: %w", name, err)
	}

	var record ledger.Record
	if err := json.Unmarshal([]byte(snapshot), &record); err != nil {
		return State{}, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return State{
		Name:       name,
		Snapshot:   record,
		Locked:     locked,
		VoidExcess: voidExcess,
		Selected:   int8(selected),
		CreatedAt:  fromMillis(createdAt),
		UpdatedAt:  fromMillis(updatedAt),
	}, nil
}

// List returns the stored ledger names in ascending order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name FROM ledgers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan ledger name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	return names, nil
}

// Delete removes the ledger named name or returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM ledgers WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete ledger %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ledger %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
