package data

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"subtitles-api/config"
	"subtitles-api/models"
	"subtitles-api/providers"
	"subtitles-api/storage"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var ErrUnknownProvider = errors.New("unknown provider")

const DefaultProvider = "opensubtitles"

type Storage interface {
	RecordDownload(ctx context.Context, rec storage.DownloadRecord) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Manager fans searches out across the registered providers, caches merged
// results, and throttles each upstream independently.
type Manager struct {
	Store Storage
	Log   *logrus.Logger

	// Limiters throttle each upstream independently, keyed by provider name.
	Limiters map[string]*rate.Limiter

	providers map[string]providers.Provider
	order     []string
	cache     *expirable.LRU[string, *models.SearchResponse]
}

func NewManager(provs []providers.Provider, store Storage, log *logrus.Logger) *Manager {
	m := &Manager{
		Store:     store,
		Log:       log,
		Limiters:  make(map[string]*rate.Limiter, len(provs)),
		providers: make(map[string]providers.Provider, len(provs)),
		cache:     expirable.NewLRU[string, *models.SearchResponse](config.SearchCacheSize, nil, config.SearchCacheTTL),
	}
	for _, p := range provs {
		m.providers[p.Name()] = p
		m.order = append(m.order, p.Name())
		m.Limiters[p.Name()] = rate.NewLimiter(rate.Limit(config.ProviderRateLimit), config.ProviderRateBurst)
	}
	return m
}

// ProviderNames lists the registered providers in registration order.
func (m *Manager) ProviderNames() []string {
	return append([]string(nil), m.order...)
}

func (m *Manager) selectProviders(names []string) ([]providers.Provider, error) {
	if len(names) == 0 {
		names = m.order
	}
	selected := make([]providers.Provider, 0, len(names))
	for _, name := range names {
		p, ok := m.providers[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
		}
		selected = append(selected, p)
	}
	return selected, nil
}

func cacheKey(params models.SearchParams) string {
	return params.Values().Encode() + "|" + strings.Join(params.Providers, ",")
}

// Search queries the selected providers concurrently and merges their pages
// into one response. Individual provider failures are logged and skipped;
// an error is returned only when every provider fails.
func (m *Manager) Search(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
	selected, err := m.selectProviders(params.Providers)
	if err != nil {
		return nil, err
	}

	key := cacheKey(params)
	if cached, ok := m.cache.Get(key); ok {
		return cached, nil
	}

	var (
		mu        sync.Mutex
		responses []*models.SearchResponse
		lastErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range selected {
		p := p
		g.Go(func() error {
			if err := m.Limiters[p.Name()].Wait(gctx); err != nil {
				return err
			}
			resp, err := p.Search(gctx, params)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				m.Log.WithError(err).Warnf("provider %s search failed", p.Name())
				lastErr = err
				return nil
			}
			responses = append(responses, resp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(responses) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, errors.New("no providers available")
	}

	merged := mergeResponses(responses, params.Page)
	m.cache.Add(key, merged)
	return merged, nil
}

func mergeResponses(responses []*models.SearchResponse, page int) *models.SearchResponse {
	if page < 1 {
		page = 1
	}
	merged := &models.SearchResponse{
		Data:       []models.Subtitle{},
		TotalPages: 1,
		Page:       page,
	}
	for _, resp := range responses {
		merged.Data = append(merged.Data, resp.Data...)
		merged.TotalCount += resp.TotalCount
		if resp.TotalPages > merged.TotalPages {
			merged.TotalPages = resp.TotalPages
		}
	}
	return merged
}

// Download dispatches to the named provider (opensubtitles when unset) and
// records the download in history. History failures are logged, not fatal.
func (m *Manager) Download(ctx context.Context, req models.DownloadRequest) (*models.DownloadResponse, error) {
	name := strings.ToLower(strings.TrimSpace(req.Provider))
	if name == "" {
		name = DefaultProvider
	}
	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	if err := m.Limiters[name].Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := p.Download(ctx, req)
	if err != nil {
		return nil, err
	}

	subtitleID := req.SubtitleID
	if subtitleID == "" && req.FileID != 0 {
		subtitleID = fmt.Sprintf("%d", req.FileID)
	}
	if subtitleID == "" {
		subtitleID = resp.Link
	}

	rec := storage.DownloadRecord{
		Provider:   name,
		SubtitleID: subtitleID,
		FileName:   resp.FileName,
		Language:   req.Language,
		IMDBID:     req.IMDBID,
		Link:       resp.Link,
	}
	if err := m.Store.RecordDownload(ctx, rec); err != nil {
		m.Log.WithError(err).Error("failed to record download history")
	}

	return resp, nil
}

// Languages merges the language catalogs of every provider that has one.
func (m *Manager) Languages(ctx context.Context) ([]models.Language, error) {
	var (
		mu    sync.Mutex
		langs []models.Language
		seen  = map[string]bool{}
		found bool
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range m.order {
		cat, ok := m.providers[name].(providers.Catalog)
		if !ok {
			continue
		}
		found = true
		name := name
		g.Go(func() error {
			list, err := cat.Languages(gctx)
			if err != nil {
				m.Log.WithError(err).Warnf("provider %s languages failed", name)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, lang := range list {
				code := strings.ToLower(lang.Code)
				if code == "" || seen[code] {
					continue
				}
				seen[code] = true
				langs = append(langs, models.Language{Code: code, Name: lang.Name})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("no providers publish a language catalog")
	}

	sort.Slice(langs, func(i, j int) bool { return langs[i].Code < langs[j].Code })
	return langs, nil
}

// Formats merges the supported format lists of every catalog provider.
func (m *Manager) Formats(ctx context.Context) ([]string, error) {
	var (
		mu      sync.Mutex
		formats []string
		seen    = map[string]bool{}
		found   bool
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range m.order {
		cat, ok := m.providers[name].(providers.Catalog)
		if !ok {
			continue
		}
		found = true
		name := name
		g.Go(func() error {
			list, err := cat.Formats(gctx)
			if err != nil {
				m.Log.WithError(err).Warnf("provider %s formats failed", name)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, f := range list {
				f = strings.ToLower(f)
				if f == "" || seen[f] {
					continue
				}
				seen[f] = true
				formats = append(formats, f)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("no providers publish a format catalog")
	}

	sort.Strings(formats)
	return formats, nil
}

// PurgeHistory drops history entries older than the retention window.
func (m *Manager) PurgeHistory(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	n, err := m.Store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		m.Log.WithError(err).Error("failed to purge download history")
		return err
	}
	m.Log.Infof("Purged %d download history entries older than %s", n, cutoff.Format("2006-01-02"))
	return nil
}
