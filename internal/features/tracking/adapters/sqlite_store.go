package adapter

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"cargo-watcher/internal/core/logger"
	"cargo-watcher/internal/features/tracking/domain"
	"cargo-watcher/internal/features/tracking/ports"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite statements. MarkArrived's WHERE clause is the single concurrency
// safety net: zero rows affected means another writer already set the date.
const (
	sqlLookup = `SELECT COALESCE(arrived_at, '') FROM items WHERE track = ?`

	sqlInsertNew = `INSERT INTO items (track, title, added_at, arrived_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(track) DO NOTHING`

	sqlMarkArrived = `UPDATE items SET arrived_at = ?
		WHERE track = ? AND arrived_at IS NULL`

	sqlListItems = `SELECT id, track, title, added_at, COALESCE(arrived_at, '')
		FROM items ORDER BY id`

	sqlListArrived = `SELECT id, track, title, added_at, COALESCE(arrived_at, '')
		FROM items WHERE arrived_at IS NOT NULL ORDER BY id`
)

// SQLiteStore implements the ItemStore port on an embedded SQLite database.
// Use ":memory:" as the path in tests.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath, configures WAL
// mode and applies the embedded schema migrations. Safe to call on every
// process start.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single writer plus the read-only command surface; more connections
	// just trade SQLITE_BUSY errors for no benefit. Reads issued during an
	// open cycle transaction queue on the pool until the cycle commits.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: logger.Get()}

	ctx := context.Background()
	if err := s.setPragmas(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("Item store ready", zap.String("path", dbPath))
	return s, nil
}

// setPragmas configures SQLite so a commit survives a process crash before
// the next read.
func (s *SQLiteStore) setPragmas(ctx context.Context) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set %s: %w", pragma, err)
		}
	}
	return nil
}

// migrate applies pending embedded migrations via the goose provider API.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, subFS)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, r := range results {
		s.logger.Info("Applied migration",
			zap.String("source", r.Source.Path),
			zap.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}
	return nil
}

// Begin opens the per-cycle transaction.
func (s *SQLiteStore) Begin(ctx context.Context) (ports.CycleTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin cycle transaction: %w", err)
	}
	return &sqliteCycleTx{tx: tx}, nil
}

// ListItems returns persisted items, optionally only arrived ones.
func (s *SQLiteStore) ListItems(ctx context.Context, arrivedOnly bool) ([]domain.Item, error) {
	query := sqlListItems
	if arrivedOnly {
		query = sqlListArrived
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.Track, &it.Title, &it.AddedAt, &it.ArrivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item rows: %w", err)
	}
	return items, nil
}

// Ping verifies the database file is still reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("item store ping failed: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteCycleTx implements CycleTx over one database/sql transaction.
type sqliteCycleTx struct {
	tx *sql.Tx
}

// Lookup returns the persisted arrival date for a code.
func (c *sqliteCycleTx) Lookup(ctx context.Context, track string) (string, error) {
	var arrivedAt string
	err := c.tx.QueryRowContext(ctx, sqlLookup, track).Scan(&arrivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ports.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up track %s: %w", track, err)
	}
	return arrivedAt, nil
}

// InsertNew creates a row, ignoring the insert when the code already exists.
func (c *sqliteCycleTx) InsertNew(ctx context.Context, track, title, addedAt, arrivedAt string) error {
	var arrived any
	if arrivedAt != "" {
		arrived = arrivedAt
	}

	if _, err := c.tx.ExecContext(ctx, sqlInsertNew, track, title, addedAt, arrived); err != nil {
		return fmt.Errorf("failed to insert track %s: %w", track, err)
	}
	return nil
}

// MarkArrived conditionally sets the arrival date. Zero rows affected means
// the date was already set; that is reported, not an error.
func (c *sqliteCycleTx) MarkArrived(ctx context.Context, track, arrivedAt string) (bool, error) {
	res, err := c.tx.ExecContext(ctx, sqlMarkArrived, arrivedAt, track)
	if err != nil {
		return false, fmt.Errorf("failed to mark track %s arrived: %w", track, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows for track %s: %w", track, err)
	}
	return affected == 1, nil
}

// Commit applies the whole cycle atomically.
func (c *sqliteCycleTx) Commit() error {
	if err := c.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cycle: %w", err)
	}
	return nil
}

// Rollback discards the cycle. Calling it after Commit is harmless.
func (c *sqliteCycleTx) Rollback() error {
	err := c.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back cycle: %w", err)
	}
	return nil
}
