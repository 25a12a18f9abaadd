package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"Fbaccess/internal/core/images"
)

// queryTimeout bounds each statement; images.Storage carries no context.
const queryTimeout = 10 * time.Second

type postgresImageStore struct {
	db *sql.DB
}

// NewImageStore creates a PostgreSQL-backed picture cache
func NewImageStore(db *sql.DB) images.Storage {
	return &postgresImageStore{db: db}
}

// Exists reports whether a picture is stored under key
func (s *postgresImageStore) Exists(key string) bool {
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM images WHERE cache_key = $1)`, key).Scan(&exists)
	if err != nil {
		slog.Warn("[FB-IMAGES] postgres exists check failed", "cache_key", key, "error", err)
		return false
	}
	return exists
}

// Get retrieves the picture stored under key
func (s *postgresImageStore) Get(key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, images.ErrEmptyKey
	}
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM images WHERE cache_key = $1`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get image: %w", err)
	}
	return data, true, nil
}

// Set inserts or replaces the picture stored under key
func (s *postgresImageStore) Set(key string, data []byte) error {
	if key == "" {
		return images.ErrEmptyKey
	}
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	query := `
		INSERT INTO images (cache_key, data, temporary)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE
		SET data = EXCLUDED.data, updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, key, data, strings.HasPrefix(key, images.TempPrefix)); err != nil {
		return fmt.Errorf("failed to store image: %w", err)
	}
	return nil
}

// Delete removes the picture stored under key
func (s *postgresImageStore) Delete(key string) error {
	if key == "" {
		return images.ErrEmptyKey
	}
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE cache_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// DeleteExpiredTemporary removes temporary pictures not updated since before cutoff
func DeleteExpiredTemporary(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM images WHERE temporary AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired images: %w", err)
	}
	return result.RowsAffected()
}
