package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"subtitles-api/models"
)

const (
	bsPlayerName  = "bsplayer"
	bsPlayerAppID = "BSPlayer v2.72"
)

var bsPlayerSubdomains = []int{1, 2, 3, 4, 5, 6, 7, 8, 101, 102, 103, 104, 105, 106, 107, 108, 109}

// BSPlayerClient speaks the legacy BSPlayer SOAP protocol. The service load
// balances by client-side subdomain rotation, keyed off the current second.
type BSPlayerClient struct {
	// BaseURL overrides subdomain rotation; used in tests.
	BaseURL    string
	HTTPClient *http.Client
}

func (c *BSPlayerClient) Name() string { return bsPlayerName }

func (c *BSPlayerClient) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	sub := bsPlayerSubdomains[time.Now().Second()%len(bsPlayerSubdomains)]
	return fmt.Sprintf("http://s%d.api.bsplayer-subtitles.com/v1.php", sub)
}

func (c *BSPlayerClient) soapRequest(ctx context.Context, baseURL, action, params string) (*http.Response, error) {
	envelope := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" ` +
		`xmlns:SOAP-ENC="http://schemas.xmlsoap.org/soap/encoding/" ` +
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" ` +
		`xmlns:xsd="http://www.w3.org/2001/XMLSchema" ` +
		`xmlns:ns1="` + baseURL + `">` +
		`<SOAP-ENV:Body SOAP-ENV:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">` +
		`<ns1:` + action + `>` + params + `</ns1:` + action + `>` +
		`</SOAP-ENV:Body>` +
		`</SOAP-ENV:Envelope>`

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "BSPlayer/2.x (1022.12362)")
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", fmt.Sprintf("%q", baseURL+"#"+action))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach BSPlayer: %w", err)
	}
	return resp, nil
}

type bsLoginResponse struct {
	Return struct {
		Result string `xml:"result"`
		Data   string `xml:"data"`
	} `xml:"Body>logInResponse>return"`
}

type bsSearchItem struct {
	SubID           string `xml:"subID"`
	SubLang         string `xml:"subLang"`
	SubName         string `xml:"subName"`
	SubDownloadsCnt string `xml:"subDownloadsCnt"`
	SubRating       string `xml:"subRating"`
	SubDownloadLink string `xml:"subDownloadLink"`
}

type bsSearchResponse struct {
	Return struct {
		Result struct {
			Code string `xml:"result"`
		} `xml:"result"`
		Items []bsSearchItem `xml:"data>item"`
	} `xml:"Body>searchSubtitlesResponse>return"`
}

func (c *BSPlayerClient) login(ctx context.Context, baseURL string) (string, error) {
	params := "<username></username><password></password><AppID>" + bsPlayerAppID + "</AppID>"

	resp, err := c.soapRequest(ctx, baseURL, "logIn", params)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newError(bsPlayerName, resp.StatusCode, "login failed")
	}

	var out bsLoginResponse
	if err := xml.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if out.Return.Result != "200" || out.Return.Data == "" {
		return "", newError(bsPlayerName, http.StatusUnauthorized, "failed to authenticate with BSPlayer")
	}
	return out.Return.Data, nil
}

func (c *BSPlayerClient) logout(ctx context.Context, baseURL, handle string) {
	resp, err := c.soapRequest(ctx, baseURL, "logOut", "<handle>"+handle+"</handle>")
	if err == nil {
		resp.Body.Close()
	}
}

func (c *BSPlayerClient) Search(ctx context.Context, params models.SearchParams) (*models.SearchResponse, error) {
	baseURL := c.baseURL()

	handle, err := c.login(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	defer c.logout(ctx, baseURL, handle)

	imdbID := strings.TrimPrefix(params.IMDBID, "tt")
	if imdbID == "" {
		imdbID = "0"
	}
	movieHash := params.MovieHash
	if movieHash == "" {
		movieHash = "0"
	}
	movieSize := "0"
	if params.MovieByteSize != 0 {
		movieSize = strconv.FormatInt(params.MovieByteSize, 10)
	}

	searchParams := "<handle>" + handle + "</handle>" +
		"<movieHash>" + movieHash + "</movieHash>" +
		"<movieSize>" + movieSize + "</movieSize>" +
		"<languageId>" + params.Languages + "</languageId>" +
		"<imdbId>" + imdbID + "</imdbId>"

	resp, err := c.soapRequest(ctx, baseURL, "searchSubtitles", searchParams)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError(bsPlayerName, resp.StatusCode, "failed to search subtitles")
	}

	var out bsSearchResponse
	if err := xml.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if out.Return.Result.Code != "200" {
		// A non-200 result code means no subtitles, reported with zero pages.
		return &models.SearchResponse{
			Data:       []models.Subtitle{},
			TotalPages: 0,
			TotalCount: 0,
			Page:       1,
		}, nil
	}

	subs := make([]models.Subtitle, 0, len(out.Return.Items))
	for _, item := range out.Return.Items {
		downloads, _ := strconv.Atoi(item.SubDownloadsCnt)
		rating, _ := strconv.ParseFloat(item.SubRating, 64)

		subs = append(subs, models.Subtitle{
			ID:   item.SubID,
			Type: "subtitle",
			Attributes: models.SubtitleAttributes{
				SubtitleID:    item.SubID,
				Provider:      bsPlayerName,
				Language:      item.SubLang,
				DownloadCount: downloads,
				Ratings:       rating,
				Release:       item.SubName,
				DownloadLink:  item.SubDownloadLink,
			},
		})
	}

	return &models.SearchResponse{
		Data:       subs,
		TotalCount: len(subs),
		TotalPages: 1,
		Page:       1,
	}, nil
}

// Download checks the direct link BSPlayer returned from search and echoes
// it back; the file itself is served gzip-compressed from their CDN.
func (c *BSPlayerClient) Download(ctx context.Context, dr models.DownloadRequest) (*models.DownloadResponse, error) {
	if dr.URL == "" {
		return nil, newError(bsPlayerName, http.StatusBadRequest, "url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dr.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "BSPlayer/2.x (1022.12362)")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download subtitle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError(bsPlayerName, resp.StatusCode, "failed to download subtitle")
	}

	return &models.DownloadResponse{
		Link:      dr.URL,
		FileName:  dr.FileName,
		Requests:  1,
		Remaining: 999,
		Message:   "Success",
	}, nil
}
