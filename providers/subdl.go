package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"subtitles-api/models"
)

const subDLName = "subdl"

type SubDLClient struct {
	BaseURL         string
	DownloadBaseURL string
	APIKey          string
	HTTPClient      *http.Client
}

type subDLSubtitle struct {
	SDID        int    `json:"sd_id"`
	ReleaseName string `json:"release_name"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	Author      string `json:"author"`
	URL         string `json:"url"`
	HI          bool   `json:"hi"`
	Season      int    `json:"season"`
	Episode     int    `json:"episode"`
}

type subDLEnvelope struct {
	Status      bool            `json:"status"`
	Message     string          `json:"message"`
	Subtitles   []subDLSubtitle `json:"subtitles"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

func (c *SubDLClient) Name() string { return subDLName }

func (c *SubDLClient) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.APIKey)

	u := fmt.Sprintf("%s/%s?%s", c.BaseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error connecting to SubDL: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newError(subDLName, http.StatusBadGateway, "invalid response from SubDL API")
	}
	return nil
}

func (c *SubDLClient) Search(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
	searchType := params.Type
	if searchType == "" || searchType == "movie" {
		searchType = "movie"
	} else {
		searchType = "tv"
	}

	q := url.Values{}
	q.Set("type", searchType)
	q.Set("subs_per_page", "30")
	if params.Languages != "" {
		q.Set("languages", params.Languages)
	} else {
		q.Set("languages", "en")
	}

	imdbID := params.IMDBID
	if imdbID != "" && !strings.HasPrefix(imdbID, "tt") {
		imdbID = "tt" + imdbID
	}
	if imdbID != "" {
		q.Set("imdb_id", imdbID)
	} else if params.Query != "" {
		q.Set("film_name", params.Query)
	}

	if searchType == "tv" {
		if params.SeasonNumber != 0 {
			q.Set("season", strconv.Itoa(params.SeasonNumber))
		}
		if params.EpisodeNumber != 0 {
			q.Set("episode", strconv.Itoa(params.EpisodeNumber))
		}
	}

	var env subDLEnvelope
	if err := c.get(ctx, "subtitles", q, &env); err != nil {
		return nil, err
	}
	if !env.Status {
		msg := env.Message
		if msg == "" {
			msg = "unknown error from SubDL"
		}
		return nil, newError(subDLName, http.StatusBadGateway, "%s", msg)
	}

	out := &models.SearchResponse{
		Data:       make([]models.Subtitle, 0, len(env.Subtitles)),
		TotalCount: len(env.Subtitles),
		TotalPages: env.TotalPages,
		Page:       env.CurrentPage,
	}
	if out.TotalPages == 0 {
		out.TotalPages = 1
	}
	if out.Page == 0 {
		out.Page = 1
	}
	for _, sub := range env.Subtitles {
		out.Data = append(out.Data, c.convert(sub))
	}
	return out, nil
}

func (c *SubDLClient) convert(sub subDLSubtitle) models.Subtitle {
	id := strconv.Itoa(sub.SDID)
	featureType := "movie"
	if sub.Season != 0 {
		featureType = "tv"
	}
	author := sub.Author
	if author == "" {
		author = "Anonymous"
	}
	return models.Subtitle{
		ID:   id,
		Type: "subtitle",
		Attributes: models.SubtitleAttributes{
			SubtitleID:      id,
			Language:        strings.ToLower(sub.Language),
			HearingImpaired: sub.HI,
			Release:         sub.ReleaseName,
			URL:             sub.URL,
			Provider:        subDLName,
			Uploader: &models.UploaderInfo{
				Name: author,
				Rank: "anonymous",
			},
			FeatureDetails: &models.FeatureDetails{
				FeatureID:   sub.SDID,
				FeatureType: featureType,
				Title:       sub.ReleaseName,
				MovieName:   sub.ReleaseName,
			},
			Files: []models.SubtitleFile{
				{FileID: 0, CDNumber: 1, FileName: sub.Name},
			},
		},
	}
}

// Download builds the direct download link from the relative URL SubDL
// returned in search results. No upstream call is needed.
func (c *SubDLClient) Download(ctx context.Context, dr models.DownloadRequest) (*models.DownloadResponse, error) {
	if dr.URL == "" {
		return nil, newError(subDLName, http.StatusBadRequest, "url is required")
	}

	full := c.DownloadBaseURL + dr.URL
	parts := strings.Split(dr.URL, "/")
	return &models.DownloadResponse{
		Link:     full,
		FileName: parts[len(parts)-1],
		Message:  "Success",
	}, nil
}

func (c *SubDLClient) Languages(ctx context.Context) ([]models.Language, error) {
	var env struct {
		Status    bool              `json:"status"`
		Languages map[string]string `json:"languages"`
	}
	if err := c.get(ctx, "languages", nil, &env); err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, newError(subDLName, http.StatusBadGateway, "unknown error from SubDL")
	}
	langs := make([]models.Language, 0, len(env.Languages))
	for code, name := range env.Languages {
		langs = append(langs, models.Language{Code: strings.ToLower(code), Name: name})
	}
	return langs, nil
}

func (c *SubDLClient) Formats(ctx context.Context) ([]string, error) {
	var env struct {
		Status  bool     `json:"status"`
		Formats []string `json:"formats"`
	}
	if err := c.get(ctx, "formats", nil, &env); err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, newError(subDLName, http.StatusBadGateway, "unknown error from SubDL")
	}
	return env.Formats, nil
}
