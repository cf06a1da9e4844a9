package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"hashdrop/internal/server/database"
	"hashdrop/internal/server/digest"
)

// Sentinel errors for the service layer. Their messages are shown to clients.
var (
	ErrNotMultipart = errors.New("the request is not multipart")
	ErrNoFile       = errors.New("No file uploaded")
	ErrReadForm     = errors.New("Failed to read multipart body")
	ErrSaveFailed   = errors.New("Failed to save upload data to the database")
	ErrNotFound     = errors.New("Upload not found")
)

// UploadRepository is the persistence the service needs.
// *database.Repository satisfies it.
type UploadRepository interface {
	Insert(ctx context.Context, size int64, hash string) (int64, error)
	GetByID(ctx context.Context, id int64) (*database.Upload, error)
	FirstByHash(ctx context.Context, hash string) (*database.Upload, error)
	GetStats(ctx context.Context) (*database.Stats, error)
}

// UploadResult is returned after a successful upload.
type UploadResult struct {
	ID   int64  `json:"id"`
	Size int64  `json:"size"`
	Hash string `json:"hash"`
}

// UploadInfo is returned for lookups by id.
type UploadInfo struct {
	ID        int64     `json:"id"`
	Size      int64     `json:"size"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadService contains the business logic for file uploads.
type UploadService struct {
	repo UploadRepository
}

// NewUploadService creates a new upload service.
func NewUploadService(repo UploadRepository) *UploadService {
	return &UploadService{repo: repo}
}

// ProcessUpload hashes the first file part of form and records its size and hash.
// Parts after the first file are never read. Nothing is stored unless the
// whole file was read successfully.
func (s *UploadService) ProcessUpload(ctx context.Context, form *multipart.Reader) (*UploadResult, error) {
	part, err := firstFilePart(form)
	if err != nil {
		return nil, err
	}
	defer part.Close()

	d, err := digest.FromReader(part)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", digest.ErrStreamFailed, err)
	}

	// Duplicate content is logged only, never rejected.
	existing, _ := s.repo.FirstByHash(ctx, d.Hash)

	id, err := s.repo.Insert(ctx, d.Size, d.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	if existing != nil {
		slog.Info("duplicate content uploaded",
			"id", id,
			"first_id", existing.ID,
			"hash", d.Hash,
		)
	}
	slog.Info("upload processed",
		"id", id,
		"filename", part.FileName(),
		"size", d.Size,
		"hash", d.Hash,
	)

	return &UploadResult{ID: id, Size: d.Size, Hash: d.Hash}, nil
}

// GetUpload returns the stored record for id.
func (s *UploadService) GetUpload(ctx context.Context, id int64) (*UploadInfo, error) {
	upload, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrUploadNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &UploadInfo{
		ID:        upload.ID,
		Size:      upload.Size,
		Hash:      upload.Hash,
		CreatedAt: upload.CreatedAt,
	}, nil
}

// GetStats returns aggregate server statistics.
func (s *UploadService) GetStats(ctx context.Context) (*database.Stats, error) {
	return s.repo.GetStats(ctx)
}

// firstFilePart advances form to its first part carrying a filename.
// Plain form fields before it are skipped; NextPart drains them.
func firstFilePart(form *multipart.Reader) (*multipart.Part, error) {
	var fields int
	for {
		part, err := form.NextPart()
		if err == io.EOF {
			if fields == 0 {
				return nil, fmt.Errorf("%w: form has no parts", ErrNoFile)
			}
			return nil, fmt.Errorf("%w: no file among %d form fields", ErrNoFile, fields)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadForm, err)
		}
		if part.FileName() != "" {
			return part, nil
		}
		fields++
		part.Close()
	}
}
