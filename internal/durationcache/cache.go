package durationcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"framelift/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS probes (
    path        TEXT    NOT NULL,
    size_bytes  INTEGER NOT NULL,
    mtime_unix  INTEGER NOT NULL,
    duration    REAL    NOT NULL,
    has_audio   INTEGER NOT NULL,
    cached_at   TEXT    NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (path)
);
`

// Entry is one cached probe result.
type Entry struct {
	DurationSeconds float64
	HasAudio        bool
}

// Cache persists probe results keyed by path plus file identity (size and
// mtime), so unchanged files skip the ffprobe call on later runs. Queue
// state itself is never persisted here.
type Cache struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open initializes or connects to the cache database. An empty path returns
// a non-functional cache whose operations are all no-ops.
func Open(path string, logger *slog.Logger) (*Cache, error) {
	logger = logging.NewComponentLogger(logger, "durationcache")
	if strings.TrimSpace(path) == "" {
		return &Cache{logger: logger}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &Cache{db: db, path: path, logger: logger}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Lookup returns a cached probe for the file when its size and mtime still
// match the cached identity. Stat failures and stale entries report a miss;
// they never fail the caller.
func (c *Cache) Lookup(ctx context.Context, path string) (Entry, bool) {
	if c == nil || c.db == nil {
		return Entry{}, false
	}
	size, mtime, err := fileIdentity(path)
	if err != nil {
		return Entry{}, false
	}

	var entry Entry
	var hasAudio int
	row := c.db.QueryRowContext(ctx,
		`SELECT duration, has_audio FROM probes WHERE path = ? AND size_bytes = ? AND mtime_unix = ?`,
		path, size, mtime)
	if err := row.Scan(&entry.DurationSeconds, &hasAudio); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Debug("probe cache lookup failed", logging.Error(err))
		}
		return Entry{}, false
	}
	entry.HasAudio = hasAudio != 0
	return entry, true
}

// Store records a probe result for the file's current identity.
func (c *Cache) Store(ctx context.Context, path string, entry Entry) error {
	if c == nil || c.db == nil {
		return nil
	}
	if entry.DurationSeconds < 0 {
		return fmt.Errorf("negative duration %v for %s", entry.DurationSeconds, path)
	}
	size, mtime, err := fileIdentity(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	hasAudio := 0
	if entry.HasAudio {
		hasAudio = 1
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO probes (path, size_bytes, mtime_unix, duration, has_audio)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             size_bytes = excluded.size_bytes,
             mtime_unix = excluded.mtime_unix,
             duration = excluded.duration,
             has_audio = excluded.has_audio,
             cached_at = datetime('now')`,
		path, size, mtime, entry.DurationSeconds, hasAudio)
	if err != nil {
		return fmt.Errorf("persist probe: %w", err)
	}

	c.logger.Debug("cached media probe",
		logging.String("path", path),
		logging.Float64("duration_seconds", entry.DurationSeconds),
		logging.Bool("has_audio", entry.HasAudio))
	return nil
}

// Count returns the number of cached entries.
func (c *Cache) Count(ctx context.Context) (int, error) {
	if c == nil || c.db == nil {
		return 0, nil
	}
	var count int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM probes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count probes: %w", err)
	}
	return count, nil
}

func fileIdentity(path string) (size int64, mtimeUnix int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	return info.Size(), info.ModTime().Unix(), nil
}
