package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"subtitles-api/models"
)

const addic7edName = "addic7ed"

// Addic7ed has no API; search scrapes the show page rows.
var addic7edRowPattern = regexp.MustCompile(
	`(?s)<td>(\d+)</td>` + // season
		`<td>(\d+)</td>` + // episode
		`<td>.*?</td>` + // language id
		`<td>(.*?)</td>` + // language name
		`<td[^>]*>(.*?)</td>` + // version/release
		`\s*?<td[^>]*>.*?</td>` + // completed
		`<td[^>]*>(.*?)</td>` + // hearing impaired
		`<td[^>]*>.*?</td>` + // corrected
		`<td[^>]*>.*?</td>` + // hd
		`<td[^>]*>.*?href="(.*?)".*?</td>`) // download link

var addic7edLanguageIDs = map[string]string{
	"en": "1",
	"es": "5",
	"it": "7",
	"fr": "8",
	"pt": "10",
	"de": "11",
}

type Addic7edClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (c *Addic7edClient) Name() string { return addic7edName }

// Search only supports episode lookups; anything else returns an empty page.
func (c *Addic7edClient) Search(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
	if !strings.EqualFold(params.Type, "episode") {
		return emptyResponse(params.Page), nil
	}
	if params.Query == "" || params.SeasonNumber == 0 || params.EpisodeNumber == 0 {
		return emptyResponse(params.Page), nil
	}

	languages := params.Languages
	if languages == "" {
		languages = "en"
	}
	langs := strings.Split(languages, ",")

	showTitle := strings.ReplaceAll(params.Query, " ", "_")
	q := url.Values{}
	q.Set("show", showTitle)
	q.Set("season", strconv.Itoa(params.SeasonNumber))
	q.Set("langs", "|"+strings.Join(languageIDs(langs), "|")+"|")

	u := fmt.Sprintf("%s/ajax_loadShow.php?%s", c.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Referer", fmt.Sprintf("%s/serie/%s/%d/%d",
		c.BaseURL, showTitle, params.SeasonNumber, params.EpisodeNumber))
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search addic7ed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return emptyResponse(params.Page), nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read addic7ed response: %w", err)
	}

	subs := c.parseRows(string(body), params.SeasonNumber, params.EpisodeNumber, langs)
	return &models.SearchResponse{
		Data:       subs,
		TotalCount: len(subs),
		TotalPages: 1,
		Page:       1,
	}, nil
}

func languageIDs(langs []string) []string {
	ids := make([]string, 0, len(langs))
	for _, lang := range langs {
		id, ok := addic7edLanguageIDs[strings.ToLower(strings.TrimSpace(lang))]
		if !ok {
			id = "1"
		}
		ids = append(ids, id)
	}
	return ids
}

func (c *Addic7edClient) parseRows(html string, season, episode int, langs []string) []models.Subtitle {
	results := []models.Subtitle{}

	for _, m := range addic7edRowPattern.FindAllStringSubmatch(html, -1) {
		rowSeason, _ := strconv.Atoi(m[1])
		rowEpisode, _ := strconv.Atoi(m[2])
		if rowSeason != season || rowEpisode != episode {
			continue
		}

		language := strings.TrimSpace(m[3])
		if !matchesLanguage(language, langs) {
			continue
		}

		version := strings.TrimSpace(m[4])
		hearingImpaired := strings.TrimSpace(m[5]) != ""
		downloadLink := c.BaseURL + m[6]

		code := strings.ToLower(language)
		if len(code) > 2 {
			code = code[:2]
		}

		results = append(results, models.Subtitle{
			ID:   downloadLink,
			Type: "subtitle",
			Attributes: models.SubtitleAttributes{
				SubtitleID:      downloadLink,
				Provider:        addic7edName,
				Language:        code,
				HearingImpaired: hearingImpaired,
				DownloadLink:    downloadLink,
				Release:         version,
			},
		})
	}

	return results
}

func matchesLanguage(rowLanguage string, langs []string) bool {
	for _, lang := range langs {
		if strings.Contains(strings.ToLower(rowLanguage), strings.ToLower(strings.TrimSpace(lang))) {
			return true
		}
	}
	return false
}

// Download fetches the scraped link; Addic7ed requires a Referer from its
// own domain or it serves an error page.
func (c *Addic7edClient) Download(ctx context.Context, dr models.DownloadRequest) (*models.DownloadResponse, error) {
	link := dr.SubtitleID
	if link == "" {
		link = dr.URL
	}
	if link == "" {
		return nil, newError(addic7edName, http.StatusBadRequest, "subtitle_id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Referer", c.BaseURL)
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download subtitle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError(addic7edName, resp.StatusCode, "failed to download subtitle")
	}

	parts := strings.Split(link, "/")
	return &models.DownloadResponse{
		Link:     link,
		FileName: fmt.Sprintf("subtitle_%s.srt", parts[len(parts)-1]),
		Message:  "Success",
	}, nil
}
