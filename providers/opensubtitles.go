package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"subtitles-api/models"
)

const openSubtitlesName = "opensubtitles"

type OpenSubtitlesClient struct {
	BaseURL    string
	APIKey     string
	UserAgent  string
	HTTPClient *http.Client
}

func (c *OpenSubtitlesClient) Name() string { return openSubtitlesName }

func (c *OpenSubtitlesClient) setHeaders(req *http.Request) {
	req.Header.Set("Api-Key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	ua := c.UserAgent
	if ua == "" {
		ua = "SubtitlesAPI v1.0"
	}
	req.Header.Set("User-Agent", ua)
}

func (c *OpenSubtitlesClient) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return newError(openSubtitlesName, http.StatusUnauthorized, "invalid or expired API key")
	case resp.StatusCode == http.StatusTooManyRequests:
		return newError(openSubtitlesName, http.StatusTooManyRequests, "rate limit exceeded")
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return newError(openSubtitlesName, resp.StatusCode, "API error: %s", bytes.TrimSpace(body))
	}
	return nil
}

func (c *OpenSubtitlesClient) Search(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
	u := fmt.Sprintf("%s/subtitles?%s", c.BaseURL, params.Values().Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search subtitles: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var out models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	for i := range out.Data {
		if out.Data[i].Attributes.Provider == "" {
			out.Data[i].Attributes.Provider = openSubtitlesName
		}
	}
	return &out, nil
}

func (c *OpenSubtitlesClient) Download(ctx context.Context, dr models.DownloadRequest) (*models.DownloadResponse, error) {
	payload := map[string]any{"file_id": dr.FileID}
	if dr.SubFormat != "" {
		payload["sub_format"] = dr.SubFormat
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode download request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/download", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request download: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var out models.DownloadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode download response: %w", err)
	}
	return &out, nil
}

func (c *OpenSubtitlesClient) Languages(ctx context.Context) ([]models.Language, error) {
	var out struct {
		Data []models.Language `json:"data"`
	}
	if err := c.getInfo(ctx, "/infos/languages", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *OpenSubtitlesClient) Formats(ctx context.Context) ([]string, error) {
	var out struct {
		Data struct {
			OutputFormats []string `json:"output_formats"`
		} `json:"data"`
	}
	if err := c.getInfo(ctx, "/infos/formats", &out); err != nil {
		return nil, err
	}
	return out.Data.OutputFormats, nil
}

func (c *OpenSubtitlesClient) getInfo(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
