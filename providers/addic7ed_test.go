package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"subtitles-api/models"
)

const addic7edShowPage = `
<table>
<tr><td>2</td><td>5</td><td>1</td><td>English</td><td class="c">WEB-DL</td><td>100%</td><td class="c"></td><td></td><td></td><td><a href="/updated/1/12345/0">Download</a></td></tr>
<tr><td>2</td><td>5</td><td>8</td><td>French</td><td class="c">WEB-DL</td><td>100%</td><td class="c"></td><td></td><td></td><td><a href="/updated/8/12346/0">Download</a></td></tr>
<tr><td>2</td><td>6</td><td>1</td><td>English</td><td class="c">HDTV</td><td>100%</td><td class="c">HI</td><td></td><td></td><td><a href="/updated/1/12347/0">Download</a></td></tr>
<tr><td>2</td><td>5</td><td>1</td><td>English</td><td class="c">HDTV.x264</td><td>100%</td><td class="c">HI</td><td></td><td></td><td><a href="/updated/1/12348/0">Download</a></td></tr>
</table>`

func TestAddic7edSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ajax_loadShow.php" {
			t.Errorf("unexpected request path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("show") != "Breaking_Bad" {
			t.Errorf("unexpected show: %s", q.Get("show"))
		}
		if q.Get("season") != "2" {
			t.Errorf("unexpected season: %s", q.Get("season"))
		}
		if q.Get("langs") != "|1|" {
			t.Errorf("unexpected langs: %s", q.Get("langs"))
		}
		if r.Header.Get("Referer") == "" {
			t.Errorf("missing Referer header")
		}
		fmt.Fprint(w, addic7edShowPage)
	}))
	defer server.Close()

	client := &Addic7edClient{BaseURL: server.URL, HTTPClient: http.DefaultClient}

	params := models.SearchParams{
		Query:         "Breaking Bad",
		Type:          "episode",
		Languages:     "en",
		SeasonNumber:  2,
		EpisodeNumber: 5,
	}

	resp, err := client.Search(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// French row and episode 6 row are filtered out.
	if len(resp.Data) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Data))
	}

	first := resp.Data[0]
	if first.Attributes.Provider != "addic7ed" {
		t.Errorf("expected provider addic7ed, got %s", first.Attributes.Provider)
	}
	if first.Attributes.Language != "en" {
		t.Errorf("expected language en, got %s", first.Attributes.Language)
	}
	if first.Attributes.Release != "WEB-DL" {
		t.Errorf("expected release WEB-DL, got %s", first.Attributes.Release)
	}
	if first.Attributes.HearingImpaired {
		t.Errorf("expected hearing_impaired false for first row")
	}
	if first.Attributes.DownloadLink != server.URL+"/updated/1/12345/0" {
		t.Errorf("unexpected download link: %s", first.Attributes.DownloadLink)
	}

	if !resp.Data[1].Attributes.HearingImpaired {
		t.Errorf("expected hearing_impaired true for second row")
	}
}

func TestAddic7edSearchUnsupported(t *testing.T) {
	client := &Addic7edClient{BaseURL: "http://unused", HTTPClient: http.DefaultClient}

	tests := []struct {
		name   string
		params models.SearchParams
	}{
		{
			name:   "movie search",
			params: models.SearchParams{Type: "movie", IMDBID: "tt0133093"},
		},
		{
			name:   "missing season",
			params: models.SearchParams{Type: "episode", Query: "Breaking Bad", EpisodeNumber: 5},
		},
		{
			name:   "missing query",
			params: models.SearchParams{Type: "episode", SeasonNumber: 2, EpisodeNumber: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Search(context.Background(), tt.params)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(resp.Data) != 0 {
				t.Errorf("expected empty response, got %d results", len(resp.Data))
			}
		})
	}
}

func TestAddic7edDownload(t *testing.T) {
	var gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		fmt.Fprint(w, "1\n00:00:01,000 --> 00:00:02,000\nhello\n")
	}))
	defer server.Close()

	client := &Addic7edClient{BaseURL: server.URL, HTTPClient: http.DefaultClient}

	resp, err := client.Download(context.Background(), models.DownloadRequest{
		SubtitleID: server.URL + "/updated/1/12345/0",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotReferer != server.URL {
		t.Errorf("expected Referer %s, got %s", server.URL, gotReferer)
	}
	if resp.FileName != "subtitle_0.srt" {
		t.Errorf("unexpected file name: %s", resp.FileName)
	}

	t.Run("missing link", func(t *testing.T) {
		_, err := client.Download(context.Background(), models.DownloadRequest{})
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
	})
}
