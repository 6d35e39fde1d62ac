/*
handlers.go - HTTP API handlers for the review store

PURPOSE:
  Exposes the loaded review data read-only. Handles HTTP request/response
  and JSON serialization, and delegates to the store's read side.

ENDPOINTS:
  GET /api/health                  {status, schema_version}
  GET /api/stats                   Row counts
  GET /api/versions                All AppVersion rows
  GET /api/users?limit&offset      User rows
  GET /api/reviews?limit&offset    Review rows in insertion order
  GET /api/reviews/{reviewId}      All rows for one reviewId (404 if none)
  GET /api/runs                    Committed runs, newest first

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid paging parameters
  - 404: Unknown reviewId
  - 500: Store errors

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/warp/review-loader/review"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Reader is the read side of the store.
type Reader interface {
	SchemaVersion() uint
	Stats(ctx context.Context) (review.Stats, error)
	ListAppVersions(ctx context.Context) ([]review.AppVersion, error)
	ListUsers(ctx context.Context, limit, offset int) ([]review.User, error)
	ListReviews(ctx context.Context, limit, offset int) ([]review.StoredReview, error)
	GetReviews(ctx context.Context, reviewID string) ([]review.StoredReview, error)
	ListRuns(ctx context.Context) ([]review.RunRecord, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  Reader
	Logger *zap.Logger
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Reader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Store: store, Logger: logger}
}

// =============================================================================
// HANDLERS
// =============================================================================

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok", SchemaVersion: h.Store.SchemaVersion()})
}

// GetStats returns row counts.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.Stats(r.Context())
	if err != nil {
		h.internalError(w, "Failed to count rows", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListVersions returns every AppVersion row.
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.Store.ListAppVersions(r.Context())
	if err != nil {
		h.internalError(w, "Failed to list versions", err)
		return
	}
	writeJSON(w, http.StatusOK, toAppVersionDTOs(versions))
}

// ListUsers returns a page of users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paging parameters", err)
		return
	}

	users, err := h.Store.ListUsers(r.Context(), limit, offset)
	if err != nil {
		h.internalError(w, "Failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, PageResponse[UserDTO]{Items: toUserDTOs(users), Limit: limit, Offset: offset})
}

// ListReviews returns a page of reviews.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paging parameters", err)
		return
	}

	reviews, err := h.Store.ListReviews(r.Context(), limit, offset)
	if err != nil {
		h.internalError(w, "Failed to list reviews", err)
		return
	}
	writeJSON(w, http.StatusOK, PageResponse[ReviewDTO]{Items: toReviewDTOs(reviews), Limit: limit, Offset: offset})
}

// GetReview returns every fact row for a reviewId. Rows repeat when the
// same file was loaded more than once.
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewId")

	reviews, err := h.Store.GetReviews(r.Context(), reviewID)
	if err != nil {
		h.internalError(w, "Failed to get review", err)
		return
	}
	if len(reviews) == 0 {
		writeError(w, http.StatusNotFound, "Review not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toReviewDTOs(reviews))
}

// ListRuns returns committed runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		h.internalError(w, "Failed to list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTOs(runs))
}

// =============================================================================
// HELPERS
// =============================================================================

func parsePage(r *http.Request) (limit, offset int, err error) {
	limit = defaultPageLimit
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return 0, 0, fmt.Errorf("limit must be between 1 and %d", maxPageLimit)
		}
	}
	if v := q.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

func (h *Handler) internalError(w http.ResponseWriter, message string, err error) {
	h.Logger.Error(message, zap.Error(err))
	writeError(w, http.StatusInternalServerError, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
