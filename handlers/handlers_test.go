package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"subtitles-api/data"
	"subtitles-api/models"
	"subtitles-api/providers"
	"subtitles-api/storage"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// Mock Implementations
type mockStore struct {
	ListFn   func(ctx context.Context, provider, language, name string) ([]storage.DownloadRecord, error)
	GetFn    func(ctx context.Context, provider, subtitleID string) (storage.DownloadRecord, error)
	DeleteFn func(ctx context.Context, provider, subtitleID string) error
}

func (m *mockStore) ListDownloadsFiltered(ctx context.Context, provider, language, name string) ([]storage.DownloadRecord, error) {
	return m.ListFn(ctx, provider, language, name)
}
func (m *mockStore) GetDownload(ctx context.Context, provider, subtitleID string) (storage.DownloadRecord, error) {
	return m.GetFn(ctx, provider, subtitleID)
}
func (m *mockStore) DeleteDownload(ctx context.Context, provider, subtitleID string) error {
	return m.DeleteFn(ctx, provider, subtitleID)
}

type mockManager struct {
	SearchFn    func(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error)
	DownloadFn  func(ctx context.Context, req models.DownloadRequest) (*models.DownloadResponse, error)
	LanguagesFn func(ctx context.Context) ([]models.Language, error)
	FormatsFn   func(ctx context.Context) ([]string, error)
}

func (m *mockManager) Search(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
	return m.SearchFn(ctx, params)
}
func (m *mockManager) Download(ctx context.Context, req models.DownloadRequest) (*models.DownloadResponse, error) {
	return m.DownloadFn(ctx, req)
}
func (m *mockManager) Languages(ctx context.Context) ([]models.Language, error) {
	return m.LanguagesFn(ctx)
}
func (m *mockManager) Formats(ctx context.Context) ([]string, error) {
	return m.FormatsFn(ctx)
}

// Tests
func TestSearchSubtitles(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		mockSearchFn   func(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "search by imdb_id (success)",
			url:  "/api/v1/subtitles?imdb_id=tt0133093&languages=en",
			mockSearchFn: func(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
				assert.Equal(t, "tt0133093", params.IMDBID)
				assert.Equal(t, "en", params.Languages)
				assert.Equal(t, 1, params.Page)
				return &models.SearchResponse{
					Data:       []models.Subtitle{},
					TotalPages: 1,
					TotalCount: 0,
					Page:       1,
				}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"data":[],"total_pages":1,"total_count":0,"page":1}` + "\n",
		},
		{
			name: "episode search params",
			url:  "/api/v1/subtitles?query=Breaking+Bad&type=episode&season_number=2&episode_number=5&providers=addic7ed,subdl",
			mockSearchFn: func(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
				assert.Equal(t, "Breaking Bad", params.Query)
				assert.Equal(t, 2, params.SeasonNumber)
				assert.Equal(t, 5, params.EpisodeNumber)
				assert.Equal(t, []string{"addic7ed", "subdl"}, params.Providers)
				return &models.SearchResponse{Data: []models.Subtitle{}, TotalPages: 1, Page: 1}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"data":[],"total_pages":1,"total_count":0,"page":1}` + "\n",
		},
		{
			name: "missing imdb_id and query",
			url:  "/api/v1/subtitles?languages=en",
			mockSearchFn: func(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
				t.Fatal("should not call manager on invalid input")
				return nil, nil
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "imdb_id or query is required\n",
		},
		{
			name: "invalid season_number",
			url:  "/api/v1/subtitles?imdb_id=tt0133093&season_number=two",
			mockSearchFn: func(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
				t.Fatal("should not call manager on invalid input")
				return nil, nil
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid season_number value\n",
		},
		{
			name: "unknown provider",
			url:  "/api/v1/subtitles?imdb_id=tt0133093&providers=nope",
			mockSearchFn: func(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
				return nil, fmt.Errorf("%w: nope", data.ErrUnknownProvider)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "unknown provider: nope\n",
		},
		{
			name: "all providers fail",
			url:  "/api/v1/subtitles?imdb_id=tt0133093",
			mockSearchFn: func(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
				return nil, errors.New("upstream down")
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   "failed to search subtitles\n",
		},
		{
			name: "upstream rate limit passes through",
			url:  "/api/v1/subtitles?imdb_id=tt0133093",
			mockSearchFn: func(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
				return nil, &providers.Error{
					Provider:   "opensubtitles",
					StatusCode: http.StatusTooManyRequests,
					Message:    "rate limit exceeded",
				}
			},
			expectedStatus: http.StatusTooManyRequests,
			expectedBody:   "failed to search subtitles\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &Handler{
				Manager: &mockManager{SearchFn: tt.mockSearchFn},
				Log:     logrus.New(),
			}

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rr := httptest.NewRecorder()

			handler.SearchSubtitles(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedBody, rr.Body.String())
		})
	}
}

func TestDownloadSubtitle(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockDownloadFn func(ctx context.Context, req models.DownloadRequest) (*models.DownloadResponse, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "invalid JSON body",
			body:           "not-json",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid JSON body\n",
		},
		{
			name: "success",
			body: `{"provider":"opensubtitles","file_id":123,"sub_format":"srt"}`,
			mockDownloadFn: func(ctx context.Context, req models.DownloadRequest) (*models.DownloadResponse, error) {
				assert.Equal(t, "opensubtitles", req.Provider)
				assert.Equal(t, 123, req.FileID)
				return &models.DownloadResponse{
					Link:     "https://cdn.example/file.srt",
					FileName: "file.srt",
					Message:  "ok",
				}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"link":"https://cdn.example/file.srt","file_name":"file.srt","requests":0,"remaining":0,"message":"ok","reset_time":"","reset_time_utc":""}` + "\n",
		},
		{
			name: "unknown provider",
			body: `{"provider":"nope","file_id":1}`,
			mockDownloadFn: func(ctx context.Context, req models.DownloadRequest) (*models.DownloadResponse, error) {
				return nil, fmt.Errorf("%w: nope", data.ErrUnknownProvider)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "unknown provider: nope\n",
		},
		{
			name: "upstream auth failure passes through",
			body: `{"file_id":1}`,
			mockDownloadFn: func(ctx context.Context, req models.DownloadRequest) (*models.DownloadResponse, error) {
				return nil, &providers.Error{
					Provider:   "opensubtitles",
					StatusCode: http.StatusUnauthorized,
					Message:    "invalid or expired API key",
				}
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "failed to download subtitle\n",
		},
		{
			name: "upstream failure",
			body: `{"file_id":1}`,
			mockDownloadFn: func(ctx context.Context, req models.DownloadRequest) (*models.DownloadResponse, error) {
				return nil, errors.New("network error")
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   "failed to download subtitle\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &Handler{
				Manager: &mockManager{DownloadFn: tt.mockDownloadFn},
				Log:     logrus.New(),
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/subtitles/download", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()

			handler.DownloadSubtitle(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedBody, rr.Body.String())
		})
	}
}

func TestGetLanguages(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler := &Handler{
			Manager: &mockManager{
				LanguagesFn: func(ctx context.Context) ([]models.Language, error) {
					return []models.Language{{Code: "en", Name: "English"}}, nil
				},
			},
			Log: logrus.New(),
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/subtitles/languages", nil)
		rr := httptest.NewRecorder()

		handler.GetLanguages(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, `{"data":[{"language_code":"en","language_name":"English"}]}`+"\n", rr.Body.String())
	})

	t.Run("manager error", func(t *testing.T) {
		handler := &Handler{
			Manager: &mockManager{
				LanguagesFn: func(ctx context.Context) ([]models.Language, error) {
					return nil, errors.New("all providers down")
				},
			},
			Log: logrus.New(),
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/subtitles/languages", nil)
		rr := httptest.NewRecorder()

		handler.GetLanguages(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestGetFormats(t *testing.T) {
	handler := &Handler{
		Manager: &mockManager{
			FormatsFn: func(ctx context.Context) ([]string, error) {
				return []string{"srt", "sub"}, nil
			},
		},
		Log: logrus.New(),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subtitles/formats", nil)
	rr := httptest.NewRecorder()

	handler.GetFormats(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"data":["srt","sub"]}`+"\n", rr.Body.String())
}

func TestListDownloads(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		mockListFn     func(ctx context.Context, provider, language, name string) ([]storage.DownloadRecord, error)
		expectedStatus int
	}{
		{
			name: "no filters",
			url:  "/api/v1/downloads",
			mockListFn: func(ctx context.Context, provider, language, name string) ([]storage.DownloadRecord, error) {
				assert.Equal(t, "", provider)
				assert.Equal(t, "", language)
				assert.Equal(t, "", name)
				return []storage.DownloadRecord{{Provider: "subdl", SubtitleID: "42"}}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "with filters",
			url:  "/api/v1/downloads?provider=subdl&language=en&name=Matrix",
			mockListFn: func(ctx context.Context, provider, language, name string) ([]storage.DownloadRecord, error) {
				assert.Equal(t, "subdl", provider)
				assert.Equal(t, "en", language)
				assert.Equal(t, "Matrix", name)
				return nil, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "store error",
			url:  "/api/v1/downloads",
			mockListFn: func(ctx context.Context, provider, language, name string) ([]storage.DownloadRecord, error) {
				return nil, errors.New("db error")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &Handler{
				Store: &mockStore{ListFn: tt.mockListFn},
				Log:   logrus.New(),
			}

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rr := httptest.NewRecorder()

			handler.ListDownloads(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.NotEqual(t, "null\n", rr.Body.String())
			}
		})
	}
}

func TestGetDownload(t *testing.T) {
	tests := []struct {
		name           string
		provider       string
		subtitleID     string
		mockGetFn      func(ctx context.Context, provider, subtitleID string) (storage.DownloadRecord, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:       "valid download entry",
			provider:   "subdl",
			subtitleID: "42",
			mockGetFn: func(ctx context.Context, provider, subtitleID string) (storage.DownloadRecord, error) {
				return storage.DownloadRecord{
					Provider:      provider,
					SubtitleID:    subtitleID,
					FileName:      "matrix.srt",
					DownloadCount: 2,
				}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"provider":"subdl","subtitle_id":"42","file_name":"matrix.srt","download_count":2,"last_downloaded_at":"0001-01-01T00:00:00Z"}` + "\n",
		},
		{
			name:           "missing path parameters",
			provider:       "",
			subtitleID:     "42",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "missing path parameters\n",
		},
		{
			name:       "download not found",
			provider:   "subdl",
			subtitleID: "99",
			mockGetFn: func(ctx context.Context, provider, subtitleID string) (storage.DownloadRecord, error) {
				return storage.DownloadRecord{}, errors.New("not found")
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "download not found\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &Handler{
				Store: &mockStore{GetFn: tt.mockGetFn},
				Log:   logrus.New(),
			}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rr := httptest.NewRecorder()

			routeCtx := chi.NewRouteContext()
			routeCtx.URLParams.Add("provider", tt.provider)
			routeCtx.URLParams.Add("subtitleID", tt.subtitleID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

			handler.GetDownload(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedBody, rr.Body.String())
		})
	}
}

func TestDeleteDownload(t *testing.T) {
	tests := []struct {
		name           string
		provider       string
		subtitleID     string
		deleteFn       func(ctx context.Context, provider, subtitleID string) error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "missing path parameters",
			provider:       "",
			subtitleID:     "42",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "missing path parameters\n",
		},
		{
			name:       "delete fails",
			provider:   "subdl",
			subtitleID: "42",
			deleteFn: func(ctx context.Context, provider, subtitleID string) error {
				return errors.New("delete error")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "failed to delete download\n",
		},
		{
			name:       "successful delete",
			provider:   "subdl",
			subtitleID: "42",
			deleteFn: func(ctx context.Context, provider, subtitleID string) error {
				assert.Equal(t, "subdl", provider)
				assert.Equal(t, "42", subtitleID)
				return nil
			},
			expectedStatus: http.StatusNoContent,
			expectedBody:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &Handler{
				Store: &mockStore{DeleteFn: tt.deleteFn},
				Log:   logrus.New(),
			}

			req := httptest.NewRequest(http.MethodDelete, "/", nil)
			rr := httptest.NewRecorder()

			routeCtx := chi.NewRouteContext()
			routeCtx.URLParams.Add("provider", tt.provider)
			routeCtx.URLParams.Add("subtitleID", tt.subtitleID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

			handler.DeleteDownload(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedBody, rr.Body.String())
		})
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name           string
		configuredKey  string
		requestKey     string
		expectedStatus int
	}{
		{
			name:           "no key configured, no key sent",
			configuredKey:  "",
			requestKey:     "",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "key configured, missing header",
			configuredKey:  "secret",
			requestKey:     "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "key configured, wrong key",
			configuredKey:  "secret",
			requestKey:     "wrong",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "key configured, correct key",
			configuredKey:  "secret",
			requestKey:     "secret",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := APIKeyMiddleware(tt.configuredKey)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/subtitles", nil)
			if tt.requestKey != "" {
				req.Header.Set("X-API-Key", tt.requestKey)
			}
			rr := httptest.NewRecorder()

			mw(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestHealthz(t *testing.T) {
	handler := &Handler{Log: logrus.New()}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	handler.Healthz(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"status":"ok"}`, rr.Body.String())
}
