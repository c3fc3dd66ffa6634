package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"subtitles-api/models"
)

const subSourceName = "subsource"

// SubSource reports languages by display name; map the known ones to tags.
var subSourceLanguageMap = map[string]string{
	"Big 5 code":             "zh",
	"Brazilian Portuguese":   "pt-BR",
	"Bulgarian":              "bg",
	"Chinese BG code":        "zh",
	"Farsi/Persian":          "fa",
	"Chinese(Simplified)":    "zh-Hans",
	"Chinese(Traditional)":   "zh-Hant",
	"French(France)":         "fr-FR",
	"Icelandic":              "is",
	"Spanish(Latin America)": "es-419",
	"Spanish(Spain)":         "es-ES",
}

type SubSourceClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

type subSourceFound struct {
	LinkName string `json:"linkName"`
	Title    string `json:"title"`
}

type subSourceSub struct {
	SubID       int     `json:"subId"`
	Lang        string  `json:"lang"`
	ReleaseName string  `json:"releaseName"`
	HI          int     `json:"hi"`
	Rating      float64 `json:"rating"`
	FullLink    string  `json:"fullLink"`
}

func (c *SubSourceClient) Name() string { return subSourceName }

func (c *SubSourceClient) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach SubSource: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newError(subSourceName, resp.StatusCode, "%s request failed: %s", endpoint, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// Search runs the two-step SubSource flow: find the title, then fetch its
// subtitle list for the requested languages.
func (c *SubSourceClient) Search(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
	query := params.IMDBID
	if query == "" {
		query = params.Query
	}
	if query == "" {
		return emptyResponse(params.Page), nil
	}

	var found struct {
		Found []subSourceFound `json:"found"`
	}
	if err := c.post(ctx, "searchMovie", map[string]string{"query": query}, &found); err != nil {
		return nil, err
	}
	if len(found.Found) == 0 {
		return emptyResponse(params.Page), nil
	}

	languages := params.Languages
	if languages == "" {
		languages = "en"
	}
	movieReq := map[string]any{
		"movieName": found.Found[0].LinkName,
		"langs":     strings.Split(languages, ","),
	}
	if params.Type == "tv" || params.Type == "episode" {
		if params.SeasonNumber != 0 {
			movieReq["season"] = fmt.Sprintf("season-%d", params.SeasonNumber)
		}
	}

	var movie struct {
		Subs []subSourceSub `json:"subs"`
	}
	if err := c.post(ctx, "getMovie", movieReq, &movie); err != nil {
		return nil, err
	}
	if len(movie.Subs) == 0 {
		return emptyResponse(params.Page), nil
	}

	out := &models.SearchResponse{
		Data:       make([]models.Subtitle, 0, len(movie.Subs)),
		TotalCount: len(movie.Subs),
		TotalPages: 1,
		Page:       1,
	}
	for _, sub := range movie.Subs {
		out.Data = append(out.Data, c.convert(sub))
	}
	return out, nil
}

func (c *SubSourceClient) convert(sub subSourceSub) models.Subtitle {
	id := fmt.Sprintf("%d", sub.SubID)
	return models.Subtitle{
		ID:   id,
		Type: "subtitle",
		Attributes: models.SubtitleAttributes{
			SubtitleID:      id,
			Language:        mapSubSourceLanguage(sub.Lang),
			HearingImpaired: sub.HI != 0,
			Release:         sub.ReleaseName,
			Ratings:         sub.Rating,
			URL:             sub.FullLink,
			Provider:        subSourceName,
			Files: []models.SubtitleFile{
				{FileID: 0, FileName: sub.ReleaseName},
			},
		},
	}
}

func mapSubSourceLanguage(lang string) string {
	if tag, ok := subSourceLanguageMap[lang]; ok {
		return tag
	}
	return strings.ToLower(lang)
}

// Download resolves a download token for a subtitle page URL of the form
// .../subtitle/{movie}/{lang}/{id} and returns the direct link built from it.
func (c *SubSourceClient) Download(ctx context.Context, dr models.DownloadRequest) (*models.DownloadResponse, error) {
	link := dr.FullLink
	if link == "" {
		link = dr.URL
	}
	parts := strings.Split(strings.TrimRight(link, "/"), "/")
	if len(parts) < 3 {
		return nil, newError(subSourceName, http.StatusBadRequest, "full_link is required")
	}
	movie, lang, subID := parts[len(parts)-3], parts[len(parts)-2], parts[len(parts)-1]

	var sub struct {
		Sub struct {
			DownloadToken string `json:"downloadToken"`
		} `json:"sub"`
	}
	payload := map[string]string{"movie": movie, "lang": lang, "id": subID}
	if err := c.post(ctx, "getSub", payload, &sub); err != nil {
		return nil, err
	}
	if sub.Sub.DownloadToken == "" {
		return nil, newError(subSourceName, http.StatusBadGateway, "no download token returned")
	}

	return &models.DownloadResponse{
		Link:     fmt.Sprintf("%s/downloadSub/%s", c.BaseURL, sub.Sub.DownloadToken),
		FileName: fmt.Sprintf("%s_%s.srt", movie, lang),
		Message:  "Success",
	}, nil
}

func (c *SubSourceClient) Languages(ctx context.Context) ([]models.Language, error) {
	seen := map[string]bool{}
	var langs []models.Language
	for _, tag := range subSourceLanguageMap {
		if !seen[tag] {
			seen[tag] = true
			langs = append(langs, models.Language{Code: tag})
		}
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].Code < langs[j].Code })
	return langs, nil
}

func (c *SubSourceClient) Formats(ctx context.Context) ([]string, error) {
	return []string{"srt"}, nil
}
