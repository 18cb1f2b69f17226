package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/bnema/keepster-cli/internal/ports"
)

// DefaultTrashDirName is created next to the catalog database and receives
// files of deleted items.
const DefaultTrashDirName = ".keepster-trash"

var ErrCatalogLocked = errors.New("catalog is in use by another keepster process")

type Options struct {
	// Path of the SQLite database file. Its directory is created if missing.
	Path string
	// TrashDir overrides where deleted files are moved.
	TrashDir string
	Clock    ports.Clock
}

// Catalog is a local photo library backed by SQLite. A catalog is owned by a
// single process at a time through an advisory lock next to the database.
type Catalog struct {
	db       *sql.DB
	path     string
	trashDir string
	lock     *flock.Flock
	clock    ports.Clock
}

var (
	_ ports.PagedSource    = (*Catalog)(nil)
	_ ports.SessionHistory = (*Catalog)(nil)
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open acquires the catalog lock, connects, and creates the schema on first use.
func Open(ctx context.Context, opts Options) (*Catalog, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, errors.New("catalog path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock catalog: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrCatalogLocked, path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	trashDir := strings.TrimSpace(opts.TrashDir)
	if trashDir == "" {
		trashDir = filepath.Join(filepath.Dir(path), DefaultTrashDirName)
	}
	clock := opts.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	catalog := &Catalog{db: db, path: path, trashDir: trashDir, lock: lock, clock: clock}
	if err := catalog.initSchema(ctx); err != nil {
		_ = catalog.Close()
		return nil, err
	}

	return catalog, nil
}

// Close closes the database and releases the catalog lock.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	closeErr := c.db.Close()
	unlockErr := c.lock.Unlock()
	return errors.Join(closeErr, unlockErr)
}

func (c *Catalog) Path() string {
	return c.path
}

func (c *Catalog) TrashDir() string {
	return c.trashDir
}

func (c *Catalog) now() int64 {
	return c.clock.Now().UTC().UnixNano()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (c *Catalog) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = c.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func fromNanos(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}
