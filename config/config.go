package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName    = "Subtitles API"
	AppVersion = "1.0.0"

	DefaultLanguages = "en"
	DefaultPageSize  = 30

	OpenSubtitlesBaseURL = "https://api.opensubtitles.com/api/v1"
	SubDLBaseURL         = "https://api.subdl.com/api/v1"
	SubDLDownloadBaseURL = "https://dl.subdl.com"
	SubSourceBaseURL     = "https://api.subsource.net/api"
	Addic7edBaseURL      = "https://www.addic7ed.com"

	HTTPTimeout = 10 * time.Second

	SearchCacheSize = 512
	SearchCacheTTL  = 5 * time.Minute

	// Requests per second allowed against each upstream.
	ProviderRateLimit = 4
	ProviderRateBurst = 8

	DefaultHistoryRetentionDays = 90
)

type Settings struct {
	Port                 string
	APIKey               string
	OpenSubtitlesAPIKey  string
	SubDLAPIKey          string
	AllowedOrigins       []string
	HistoryRetentionDays int
}

// Load reads settings from the environment, honoring a local .env file.
func Load() Settings {
	_ = godotenv.Load()

	s := Settings{
		Port:                 os.Getenv("PORT"),
		APIKey:               os.Getenv("API_KEY"),
		OpenSubtitlesAPIKey:  os.Getenv("OPENSUBTITLES_API_KEY"),
		SubDLAPIKey:          os.Getenv("SUBDL_API_KEY"),
		HistoryRetentionDays: DefaultHistoryRetentionDays,
	}

	if s.Port == "" {
		s.Port = "8000"
	}

	origins := os.Getenv("ALLOWED_ORIGINS")
	if origins == "" {
		origins = "http://localhost:5173,https://chillflix.win"
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			s.AllowedOrigins = append(s.AllowedOrigins, o)
		}
	}

	if v := os.Getenv("HISTORY_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			s.HistoryRetentionDays = days
		}
	}

	return s
}
