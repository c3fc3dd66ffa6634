package models

import (
	"net/url"
	"strconv"
)

type UploaderInfo struct {
	UploaderID *int   `json:"uploader_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Rank       string `json:"rank,omitempty"`
}

type FeatureDetails struct {
	FeatureID   int    `json:"feature_id,omitempty"`
	FeatureType string `json:"feature_type,omitempty"`
	Year        int    `json:"year,omitempty"`
	Title       string `json:"title,omitempty"`
	MovieName   string `json:"movie_name,omitempty"`
	IMDBID      int    `json:"imdb_id,omitempty"`
	TMDBID      int    `json:"tmdb_id,omitempty"`
}

type SubtitleFile struct {
	FileID   int    `json:"file_id"`
	CDNumber int    `json:"cd_number,omitempty"`
	FileName string `json:"file_name"`
}

type SubtitleAttributes struct {
	SubtitleID        string          `json:"subtitle_id"`
	Language          string          `json:"language"`
	DownloadCount     int             `json:"download_count"`
	NewDownloadCount  int             `json:"new_download_count"`
	HearingImpaired   bool            `json:"hearing_impaired"`
	HD                bool            `json:"hd"`
	FPS               float64         `json:"fps"`
	Votes             int             `json:"votes"`
	Points            int             `json:"points"`
	Ratings           float64         `json:"ratings"`
	FromTrusted       bool            `json:"from_trusted"`
	ForeignPartsOnly  bool            `json:"foreign_parts_only"`
	AITranslated      bool            `json:"ai_translated"`
	MachineTranslated bool            `json:"machine_translated"`
	UploadDate        string          `json:"upload_date,omitempty"`
	Release           string          `json:"release,omitempty"`
	Comments          string          `json:"comments,omitempty"`
	LegacySubtitleID  *int            `json:"legacy_subtitle_id,omitempty"`
	Provider          string          `json:"provider,omitempty"`
	URL               string          `json:"url,omitempty"`
	DownloadLink      string          `json:"download_link,omitempty"`
	Uploader          *UploaderInfo   `json:"uploader,omitempty"`
	FeatureDetails    *FeatureDetails `json:"feature_details,omitempty"`
	Files             []SubtitleFile  `json:"files,omitempty"`
}

type Subtitle struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Attributes SubtitleAttributes `json:"attributes"`
}

type SearchResponse struct {
	Data       []Subtitle `json:"data"`
	TotalPages int        `json:"total_pages"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
}

type SearchParams struct {
	Query         string
	IMDBID        string
	TMDBID        int
	Type          string
	Year          int
	Languages     string
	SeasonNumber  int
	EpisodeNumber int
	ParentIMDBID  string
	ParentTMDBID  int
	Page          int
	MovieHash     string
	MovieByteSize int64
	Providers     []string
}

// Values encodes the set fields as upstream query parameters.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	if p.Query != "" {
		v.Set("query", p.Query)
	}
	if p.IMDBID != "" {
		v.Set("imdb_id", p.IMDBID)
	}
	if p.TMDBID != 0 {
		v.Set("tmdb_id", strconv.Itoa(p.TMDBID))
	}
	if p.Type != "" {
		v.Set("type", p.Type)
	}
	if p.Year != 0 {
		v.Set("year", strconv.Itoa(p.Year))
	}
	if p.Languages != "" {
		v.Set("languages", p.Languages)
	}
	if p.SeasonNumber != 0 {
		v.Set("season_number", strconv.Itoa(p.SeasonNumber))
	}
	if p.EpisodeNumber != 0 {
		v.Set("episode_number", strconv.Itoa(p.EpisodeNumber))
	}
	if p.ParentIMDBID != "" {
		v.Set("parent_imdb_id", p.ParentIMDBID)
	}
	if p.ParentTMDBID != 0 {
		v.Set("parent_tmdb_id", strconv.Itoa(p.ParentTMDBID))
	}
	if p.MovieHash != "" {
		v.Set("moviehash", p.MovieHash)
	}
	if p.MovieByteSize != 0 {
		v.Set("moviebytesize", strconv.FormatInt(p.MovieByteSize, 10))
	}
	if p.Page != 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	return v
}

type DownloadRequest struct {
	Provider   string `json:"provider,omitempty"`
	FileID     int    `json:"file_id,omitempty"`
	SubFormat  string `json:"sub_format,omitempty"`
	URL        string `json:"url,omitempty"`
	FullLink   string `json:"full_link,omitempty"`
	SubtitleID string `json:"subtitle_id,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	Language   string `json:"language,omitempty"`
	IMDBID     string `json:"imdb_id,omitempty"`
}

type DownloadResponse struct {
	Link         string `json:"link"`
	FileName     string `json:"file_name"`
	Requests     int    `json:"requests"`
	Remaining    int    `json:"remaining"`
	Message      string `json:"message"`
	ResetTime    string `json:"reset_time"`
	ResetTimeUTC string `json:"reset_time_utc"`
}

type Language struct {
	Code string `json:"language_code"`
	Name string `json:"language_name,omitempty"`
}
