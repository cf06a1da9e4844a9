package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"hashdrop/internal/server/digest"
	"hashdrop/internal/server/service"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Handler contains the HTTP handlers for the hashdrop API.
type Handler struct {
	svc *service.UploadService
	db  Pinger
}

// NewHandler creates a new handler with the given service dependency.
func NewHandler(svc *service.UploadService, db Pinger) *Handler {
	return &Handler{svc: svc, db: db}
}

// HandleUpload handles POST /upload.
// The body is read as a multipart stream; only the first file part is hashed.
func (h *Handler) HandleUpload(c echo.Context) error {
	form, err := c.Request().MultipartReader()
	if err != nil {
		return mapServiceError(c, fmt.Errorf("%w: %w", service.ErrNotMultipart, err))
	}

	result, err := h.svc.ProcessUpload(c.Request().Context(), form)
	if err != nil {
		return mapServiceError(c, err)
	}

	return respond(c, http.StatusOK, result)
}

// HandleGetUpload handles GET /uploads/:id.
func (h *Handler) HandleGetUpload(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return fail(c, http.StatusBadRequest, "Invalid upload id")
	}

	info, err := h.svc.GetUpload(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(c, err)
	}

	return respond(c, http.StatusOK, info)
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}

// HandleStats handles GET /api/stats.
func (h *Handler) HandleStats(c echo.Context) error {
	stats, err := h.svc.GetStats(c.Request().Context())
	if err != nil {
		logError(c, "failed to retrieve stats", err)
		return fail(c, http.StatusInternalServerError, "Failed to retrieve stats")
	}

	return respond(c, http.StatusOK, echo.Map{
		"total_uploads":     stats.TotalUploads,
		"total_bytes":       stats.TotalBytes,
		"total_bytes_human": humanizeBytes(stats.TotalBytes),
		"unique_hashes":     stats.UniqueHashes,
	})
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"success": false, "message": message})
}

// mapServiceError translates service-layer errors into HTTP responses.
// Clients only ever see the sentinel's message; the wrapped cause is logged.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNoFile):
		slog.Info("upload rejected", "reason", err.Error(), "request_id", requestID(c))
		return fail(c, http.StatusBadRequest, service.ErrNoFile.Error())
	case errors.Is(err, service.ErrNotFound):
		return fail(c, http.StatusNotFound, service.ErrNotFound.Error())
	case errors.Is(err, service.ErrNotMultipart):
		logError(c, "upload is not multipart", err)
		return fail(c, http.StatusInternalServerError, service.ErrNotMultipart.Error())
	case errors.Is(err, service.ErrReadForm):
		logError(c, "failed to read multipart body", err)
		return fail(c, http.StatusInternalServerError, service.ErrReadForm.Error())
	case errors.Is(err, digest.ErrStreamFailed):
		logError(c, "failed to process file stream", err)
		return fail(c, http.StatusInternalServerError, digest.ErrStreamFailed.Error())
	case errors.Is(err, service.ErrSaveFailed):
		logError(c, "failed to save upload", err)
		return fail(c, http.StatusInternalServerError, service.ErrSaveFailed.Error())
	default:
		logError(c, "request failed", err)
		return fail(c, http.StatusInternalServerError, "Internal server error")
	}
}

func logError(c echo.Context, msg string, err error) {
	slog.Error(msg, "error", err, "request_id", requestID(c))
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// humanizeBytes formats a byte count into a human-readable string.
func humanizeBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
