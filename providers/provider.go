package providers

import (
	"context"
	"fmt"

	"subtitles-api/models"
)

// Provider is the common surface every upstream subtitle source implements.
type Provider interface {
	Name() string
	Search(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error)
	Download(ctx context.Context, req models.DownloadRequest) (*models.DownloadResponse, error)
}

// Catalog is implemented by providers that publish language/format lists.
type Catalog interface {
	Languages(ctx context.Context) ([]models.Language, error)
	Formats(ctx context.Context) ([]string, error)
}

// Error carries the upstream HTTP status so handlers can map it through.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
}

func newError(provider string, status int, format string, args ...any) *Error {
	return &Error{
		Provider:   provider,
		StatusCode: status,
		Message:    fmt.Sprintf(format, args...),
	}
}

func emptyResponse(page int) *models.SearchResponse {
	if page < 1 {
		page = 1
	}
	return &models.SearchResponse{
		Data:       []models.Subtitle{},
		TotalPages: 1,
		TotalCount: 0,
		Page:       page,
	}
}
