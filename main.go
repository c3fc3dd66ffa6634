package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"subtitles-api/config"
	"subtitles-api/data"
	"subtitles-api/handlers"
	"subtitles-api/providers"
	"subtitles-api/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     true,
		DisableQuote:    true,
		PadLevelText:    true,
	})

	settings := config.Load()

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "./data/subtitles.db"
	}

	db, err := sql.Open("sqlite3", sqlitePath)
	if err != nil {
		logger.Fatalf("failed to open DB: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	store := &storage.Storage{DB: db}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.InitSchema(ctx); err != nil {
		logger.Fatalf("failed to initialize schema: %v", err)
	}

	httpClient := &http.Client{Timeout: config.HTTPTimeout}

	var provs []providers.Provider
	if settings.OpenSubtitlesAPIKey != "" {
		provs = append(provs, &providers.OpenSubtitlesClient{
			BaseURL:    config.OpenSubtitlesBaseURL,
			APIKey:     settings.OpenSubtitlesAPIKey,
			HTTPClient: httpClient,
		})
	} else {
		logger.Warn("OPENSUBTITLES_API_KEY not set, opensubtitles provider disabled")
	}
	if settings.SubDLAPIKey != "" {
		provs = append(provs, &providers.SubDLClient{
			BaseURL:         config.SubDLBaseURL,
			DownloadBaseURL: config.SubDLDownloadBaseURL,
			APIKey:          settings.SubDLAPIKey,
			HTTPClient:      httpClient,
		})
	} else {
		logger.Warn("SUBDL_API_KEY not set, subdl provider disabled")
	}
	provs = append(provs,
		&providers.SubSourceClient{
			BaseURL:    config.SubSourceBaseURL,
			HTTPClient: httpClient,
		},
		&providers.Addic7edClient{
			BaseURL:    config.Addic7edBaseURL,
			HTTPClient: httpClient,
		},
		&providers.BSPlayerClient{
			HTTPClient: httpClient,
		},
	)

	manager := data.NewManager(provs, store, logger)
	logger.Infof("registered providers: %v", manager.ProviderNames())

	handler := &handlers.Handler{
		Store:   store,
		Manager: manager,
		Log:     logger,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   settings.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Logger)

	r.Get("/healthz", handler.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(handlers.APIKeyMiddleware(settings.APIKey))

		r.Get("/subtitles", handler.SearchSubtitles)
		r.Get("/subtitles/languages", handler.GetLanguages)
		r.Get("/subtitles/formats", handler.GetFormats)
		r.Post("/subtitles/download", handler.DownloadSubtitle)

		r.Get("/downloads", handler.ListDownloads)
		r.Get("/downloads/{provider}/{subtitleID}", handler.GetDownload)
		r.Delete("/downloads/{provider}/{subtitleID}", handler.DeleteDownload)
	})

	if os.Getenv("WITH_DAILY_HISTORY_PURGE") == "true" {
		c := cron.New()
		_, err := c.AddFunc("0 3 * * *", func() {
			logger.Info("Scheduled history purge triggered")
			ctx := context.Background()
			if err := manager.PurgeHistory(ctx, settings.HistoryRetentionDays); err != nil {
				logger.Errorf("scheduled purge failed: %v", err)
			}
		})
		if err != nil {
			logger.Fatalf("failed to schedule cron: %v", err)
		}
		c.Start()
	}

	logger.Infof("starting %s %s on port %s...", config.AppName, config.AppVersion, settings.Port)
	if err := http.ListenAndServe(":"+settings.Port, r); err != nil {
		logger.Fatal(err)
	}
}
