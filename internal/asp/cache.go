package asp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"groundc/internal/cas"
)

// CachedGrounder wraps a grounder with a solution cache keyed by the BLAKE3
// digest of the program text. Solutions are stored zstd-compressed.
type CachedGrounder struct {
	inner  Grounder
	db     *sql.DB
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	logger *slog.Logger
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS solutions (
	program_digest TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	raw_size INTEGER NOT NULL,
	solution BLOB NOT NULL
);
`

// CacheFile is the database file name inside the cache directory.
const CacheFile = "groundings.db"

// OpenCache opens or creates the cache database in dir.
func OpenCache(dir string, inner Grounder, logger *slog.Logger) (*CachedGrounder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, CacheFile))
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying cache schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &CachedGrounder{inner: inner, db: db, enc: enc, dec: dec, logger: logger}, nil
}

// Close releases the database and codecs.
func (c *CachedGrounder) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		c.db.Close()
		return err
	}
	return c.db.Close()
}

// Ground returns the cached solution for program, or runs the inner grounder
// and stores its solution. Failed runs are not cached.
func (c *CachedGrounder) Ground(ctx context.Context, program string) (string, error) {
	key := cas.Fingerprint("program", program)

	var blob []byte
	err := c.db.QueryRowContext(ctx, "SELECT solution FROM solutions WHERE program_digest = ?", key).Scan(&blob)
	switch {
	case err == nil:
		raw, err := c.dec.DecodeAll(blob, nil)
		if err == nil {
			c.logger.Debug("grounder cache hit", "digest", key)
			return string(raw), nil
		}
		c.logger.Warn("discarding corrupt cache entry", "digest", key, "error", err)
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("reading cache: %w", err)
	}

	solution, err := c.inner.Ground(ctx, program)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO solutions (program_digest, run_id, created_at, raw_size, solution)
		 VALUES (?, ?, ?, ?, ?)`,
		key, runID, time.Now().UnixMilli(), len(solution), c.enc.EncodeAll([]byte(solution), nil),
	)
	if err != nil {
		// The solution is still good; only the cache write failed.
		c.logger.Warn("storing grounder solution", "digest", key, "error", err)
	} else {
		c.logger.Debug("grounder cache store", "digest", key, "run_id", runID)
	}
	return solution, nil
}

// CacheStats summarizes the cache contents.
type CacheStats struct {
	Entries         int64
	RawBytes        int64
	CompressedBytes int64
}

// Stats returns cache statistics.
func (c *CachedGrounder) Stats() (CacheStats, error) {
	var s CacheStats
	err := c.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(raw_size), 0), COALESCE(SUM(LENGTH(solution)), 0) FROM solutions",
	).Scan(&s.Entries, &s.RawBytes, &s.CompressedBytes)
	if err != nil {
		return CacheStats{}, fmt.Errorf("reading cache stats: %w", err)
	}
	return s, nil
}

// Clear removes every cached solution.
func (c *CachedGrounder) Clear() error {
	if _, err := c.db.Exec("DELETE FROM solutions"); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}
