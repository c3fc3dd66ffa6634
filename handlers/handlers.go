package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"subtitles-api/data"
	"subtitles-api/models"
	"subtitles-api/providers"
	"subtitles-api/storage"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type Storage interface {
	ListDownloadsFiltered(ctx context.Context, provider, language, name string) ([]storage.DownloadRecord, error)
	GetDownload(ctx context.Context, provider, subtitleID string) (storage.DownloadRecord, error)
	DeleteDownload(ctx context.Context, provider, subtitleID string) error
}

type Manager interface {
	Search(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error)
	Download(ctx context.Context, req models.DownloadRequest) (*models.DownloadResponse, error)
	Languages(ctx context.Context) ([]models.Language, error)
	Formats(ctx context.Context) ([]string, error)
}

type Handler struct {
	Store   Storage
	Manager Manager
	Log     *logrus.Logger
}

// APIKeyMiddleware rejects requests missing the configured X-API-Key.
// An empty configured key disables the check.
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey != "" {
				got := r.Header.Get("X-API-Key")
				if got == "" {
					http.Error(w, "X-API-Key header is required", http.StatusUnauthorized)
					return
				}
				if got != apiKey {
					http.Error(w, "invalid API key", http.StatusUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseSearchParams(r *http.Request) (models.SearchParams, string) {
	q := r.URL.Query()
	params := models.SearchParams{
		Query:        q.Get("query"),
		IMDBID:       q.Get("imdb_id"),
		Type:         q.Get("type"),
		Languages:    q.Get("languages"),
		ParentIMDBID: q.Get("parent_imdb_id"),
		MovieHash:    q.Get("moviehash"),
		Page:         1,
	}

	intFields := []struct {
		name string
		dst  *int
	}{
		{"tmdb_id", &params.TMDBID},
		{"year", &params.Year},
		{"season_number", &params.SeasonNumber},
		{"episode_number", &params.EpisodeNumber},
		{"parent_tmdb_id", &params.ParentTMDBID},
		{"page", &params.Page},
	}
	for _, f := range intFields {
		if raw := q.Get(f.name); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return params, "invalid " + f.name + " value"
			}
			*f.dst = v
		}
	}

	if raw := q.Get("moviebytesize"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return params, "invalid moviebytesize value"
		}
		params.MovieByteSize = v
	}

	if raw := q.Get("providers"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				params.Providers = append(params.Providers, p)
			}
		}
	}

	if params.IMDBID == "" && params.Query == "" {
		return params, "imdb_id or query is required"
	}

	return params, ""
}

func (h *Handler) SearchSubtitles(w http.ResponseWriter, r *http.Request) {
	params, badRequest := parseSearchParams(r)
	if badRequest != "" {
		http.Error(w, badRequest, http.StatusBadRequest)
		return
	}

	resp, err := h.Manager.Search(r.Context(), params)
	if err != nil {
		if errors.Is(err, data.ErrUnknownProvider) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Log.WithError(err).Error("searching subtitles")
		http.Error(w, "failed to search subtitles", upstreamStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Log.WithError(err).Error("encoding search response")
	}
}

// upstreamStatus maps provider auth/throttle failures through and hides the
// rest behind 502.
func upstreamStatus(err error) int {
	var perr *providers.Error
	if errors.As(err, &perr) {
		switch perr.StatusCode {
		case http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusBadRequest:
			return perr.StatusCode
		}
	}
	return http.StatusBadGateway
}

func (h *Handler) DownloadSubtitle(w http.ResponseWriter, r *http.Request) {
	var req models.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	resp, err := h.Manager.Download(r.Context(), req)
	if err != nil {
		if errors.Is(err, data.ErrUnknownProvider) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Log.WithError(err).Error("downloading subtitle")
		http.Error(w, "failed to download subtitle", upstreamStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Log.WithError(err).Error("encoding download response")
	}
}

func (h *Handler) GetLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := h.Manager.Languages(r.Context())
	if err != nil {
		h.Log.WithError(err).Error("fetching languages")
		http.Error(w, "failed to fetch languages", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"data": langs}); err != nil {
		h.Log.WithError(err).Error("encoding languages response")
	}
}

func (h *Handler) GetFormats(w http.ResponseWriter, r *http.Request) {
	formats, err := h.Manager.Formats(r.Context())
	if err != nil {
		h.Log.WithError(err).Error("fetching formats")
		http.Error(w, "failed to fetch formats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"data": formats}); err != nil {
		h.Log.WithError(err).Error("encoding formats response")
	}
}

func (h *Handler) ListDownloads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	list, err := h.Store.ListDownloadsFiltered(r.Context(), q.Get("provider"), q.Get("language"), q.Get("name"))
	if err != nil {
		h.Log.WithError(err).Error("listing download history")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []storage.DownloadRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		h.Log.WithError(err).Error("encoding download history response")
	}
}

func (h *Handler) GetDownload(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	subtitleID := chi.URLParam(r, "subtitleID")

	if provider == "" || subtitleID == "" {
		http.Error(w, "missing path parameters", http.StatusBadRequest)
		return
	}

	rec, err := h.Store.GetDownload(r.Context(), provider, subtitleID)
	if err != nil {
		h.Log.WithFields(logrus.Fields{
			"provider":    provider,
			"subtitle_id": subtitleID,
		}).WithError(err).Error("fetching download history entry")
		http.Error(w, "download not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		h.Log.WithError(err).Error("encoding download history entry response")
	}
}

func (h *Handler) DeleteDownload(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	subtitleID := chi.URLParam(r, "subtitleID")

	if provider == "" || subtitleID == "" {
		http.Error(w, "missing path parameters", http.StatusBadRequest)
		return
	}

	if err := h.Store.DeleteDownload(r.Context(), provider, subtitleID); err != nil {
		h.Log.WithFields(logrus.Fields{
			"provider":    provider,
			"subtitle_id": subtitleID,
		}).WithError(err).Error("deleting download history entry")
		http.Error(w, "failed to delete download", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
