/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures returned by the API, decoupled from the
  review package types so column renames never leak to clients.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Wrappers (errors, pages)

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/review-loader/review"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AppVersionDTO represents one AppVersion dimension row.
type AppVersionDTO struct {
	ID              int64  `json:"id"`
	SemanticVersion string `json:"semantic_version"`
	BuildNumber     string `json:"build_number"`
	BuildCode       string `json:"build_code"`
}

// UserDTO represents one User dimension row.
type UserDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ReviewDTO represents one fact row with its dimensions joined in.
type ReviewDTO struct {
	ReviewID      string          `json:"review_id"`
	UserID        int64           `json:"user_id"`
	UserName      string          `json:"user_name"`
	Content       string          `json:"content"`
	Score         decimal.Decimal `json:"score"`
	ThumbsUpCount int             `json:"thumbs_up_count"`
	CreatedAt     time.Time       `json:"created_at"`
	VersionID     int64           `json:"version_id"`
	AppVersion    string          `json:"app_version"`
}

// RunDTO represents one committed load run.
type RunDTO struct {
	ID          string    `json:"id"`
	Input       string    `json:"input"`
	StartedAt   time.Time `json:"started_at"`
	CommittedAt time.Time `json:"committed_at"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Status      string    `json:"status"`
}

// HealthDTO is the health check response.
type HealthDTO struct {
	Status        string `json:"status"`
	SchemaVersion uint   `json:"schema_version"`
}

// PageResponse wraps a paged list.
type PageResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAppVersionDTOs(versions []review.AppVersion) []AppVersionDTO {
	dtos := make([]AppVersionDTO, 0, len(versions))
	for _, v := range versions {
		dtos = append(dtos, AppVersionDTO{
			ID:              v.ID,
			SemanticVersion: v.SemanticVersion,
			BuildNumber:     v.BuildNumber,
			BuildCode:       v.BuildCode,
		})
	}
	return dtos
}

func toUserDTOs(users []review.User) []UserDTO {
	dtos := make([]UserDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, UserDTO{ID: u.ID, Name: u.Name})
	}
	return dtos
}

func toReviewDTOs(reviews []review.StoredReview) []ReviewDTO {
	dtos := make([]ReviewDTO, 0, len(reviews))
	for _, r := range reviews {
		dtos = append(dtos, ReviewDTO{
			ReviewID:      r.ReviewID,
			UserID:        r.UserID,
			UserName:      r.UserName,
			Content:       r.Content,
			Score:         r.Score,
			ThumbsUpCount: r.ThumbsUpCount,
			CreatedAt:     r.CreatedAt,
			VersionID:     r.VersionID,
			AppVersion:    r.Version.String(),
		})
	}
	return dtos
}

func toRunDTOs(runs []review.RunRecord) []RunDTO {
	dtos := make([]RunDTO, 0, len(runs))
	for _, r := range runs {
		status := "succeeded"
		if r.Failed > 0 {
			status = "errors occurred"
		}
		dtos = append(dtos, RunDTO{
			ID:          r.ID,
			Input:       r.Input,
			StartedAt:   r.StartedAt,
			CommittedAt: r.CommittedAt,
			Succeeded:   r.Succeeded,
			Failed:      r.Failed,
			Status:      status,
		})
	}
	return dtos
}
