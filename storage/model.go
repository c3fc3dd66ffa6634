package storage

import "time"

type DownloadRecord struct {
	Provider         string    `json:"provider"`
	SubtitleID       string    `json:"subtitle_id"`
	FileName         string    `json:"file_name,omitempty"`
	Language         string    `json:"language,omitempty"`
	IMDBID           string    `json:"imdb_id,omitempty"`
	Link             string    `json:"link,omitempty"`
	DownloadCount    int       `json:"download_count"`
	LastDownloadedAt time.Time `json:"last_downloaded_at"`
}
