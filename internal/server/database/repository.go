package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	ErrUploadNotFound = errors.New("upload not found")
)

// Repository reads and writes upload records.
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a (size, hash) pair through the prepared insert and returns
// the generated id.
func (r *Repository) Insert(ctx context.Context, size int64, hash string) (int64, error) {
	var id int64
	if err := r.db.Pool.QueryRow(ctx, insertUploadStmt, size, hash).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert upload: %w", err)
	}
	return id, nil
}

// GetByID retrieves an upload by its ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Upload, error) {
	upload := &Upload{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, size, hash, created_at, updated_at
		FROM uploads WHERE id = $1
	`, id).Scan(
		&upload.ID,
		&upload.Size,
		&upload.Hash,
		&upload.CreatedAt,
		&upload.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return upload, nil
}

// FirstByHash returns the oldest upload with the given hash, or nil if the
// content has not been seen before.
func (r *Repository) FirstByHash(ctx context.Context, hash string) (*Upload, error) {
	upload := &Upload{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, size, hash, created_at, updated_at
		FROM uploads WHERE hash = $1
		ORDER BY id
		LIMIT 1
	`, hash).Scan(
		&upload.ID,
		&upload.Size,
		&upload.Hash,
		&upload.CreatedAt,
		&upload.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query by hash: %w", err)
	}
	return upload, nil
}

// GetStats returns aggregate server statistics.
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(size), 0),
			COUNT(DISTINCT hash)
		FROM uploads
	`).Scan(
		&stats.TotalUploads,
		&stats.TotalBytes,
		&stats.UniqueHashes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}
