package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"
)

const seriesPageURL = "https://areena.yle.fi/1-3826480"

func seriesPageHTML(nextData string) string {
	return fmt.Sprintf(
		`<html><head><script id="__NEXT_DATA__" type="application/json">%s</script></head><body></body></html>`,
		nextData)
}

func simpleSeriesNextData(listURL string) string {
	return fmt.Sprintf(`{"props": {"pageProps": {
		"meta": {"item": {"type": "TVSeries"}},
		"selectedTab": "",
		"view": {"tabs": [{
			"type": "tab",
			"slug": "jaksot",
			"content": [{"source": {"uri": "%s"}}]
		}]}
	}}}`, listURL)
}

func episodeItem(title, programID, dateLabel string) string {
	labels := ""
	if dateLabel != "" {
		labels = fmt.Sprintf(`, "labels": [{"type": "generic", "formatted": "%s"}]`, dateLabel)
	}
	return fmt.Sprintf(`{"title": "%s", "pointer": {"uri": "yleareena://items/%s"}%s}`,
		title, programID, labels)
}

func playlistPage(items ...string) string {
	return fmt.Sprintf(`{"data": [%s]}`, strings.Join(items, ","))
}

func newPlaylistClient(listURL string, pages map[int]string) *fakeWebClient {
	return &fakeWebClient{
		html: map[string]string{
			seriesPageURL: seriesPageHTML(simpleSeriesNextData(listURL)),
		},
		jsonBody: func(requestURL string) (string, error) {
			parsed, err := url.Parse(requestURL)
			if err != nil {
				return "", err
			}
			offset, _ := strconv.Atoi(parsed.Query().Get("offset"))
			page, ok := pages[offset]
			if !ok {
				return "", fmt.Errorf("no page at offset %d", offset)
			}
			return page, nil
		},
	}
}

func TestPlaylistSortsByEpisodeNumber(t *testing.T) {
	listURL := "https://areena.api.yle.fi/v1/ui/content/list?series=1-3826480"
	client := newPlaylistClient(listURL, map[int]string{
		0: playlistPage(
			episodeItem("Jakso 3", "1-333", ""),
			episodeItem("Jakso 1", "1-111", ""),
			episodeItem("Jakso 2", "1-222", ""),
		),
	})

	playlist, err := NewPlaylistParser(client, nil).Playlist(context.Background(), seriesPageURL, false)
	if err != nil {
		t.Fatalf("Playlist() error = %v", err)
	}
	want := []string{
		"https://areena.yle.fi/1-111",
		"https://areena.yle.fi/1-222",
		"https://areena.yle.fi/1-333",
	}
	if !reflect.DeepEqual(playlist, want) {
		t.Errorf("Playlist() = %v, want %v", playlist, want)
	}
}

func TestPlaylistLatestOnly(t *testing.T) {
	listURL := "https://areena.api.yle.fi/v1/ui/content/list?series=1-3826480"
	client := newPlaylistClient(listURL, map[int]string{
		0: playlistPage(
			episodeItem("Jakso 2", "1-222", ""),
			episodeItem("Jakso 1", "1-111", ""),
		),
	})

	playlist, err := NewPlaylistParser(client, nil).Playlist(context.Background(), seriesPageURL, true)
	if err != nil {
		t.Fatalf("Playlist() error = %v", err)
	}
	want := []string{"https://areena.yle.fi/1-222"}
	if !reflect.DeepEqual(playlist, want) {
		t.Errorf("Playlist() = %v, want %v", playlist, want)
	}
}

func TestPlaylistFetchesAllPages(t *testing.T) {
	listURL := "https://areena.api.yle.fi/v1/ui/content/list?series=1-3826480"

	var fullPage []string
	for i := 1; i <= playlistPageLen; i++ {
		fullPage = append(fullPage, episodeItem(
			fmt.Sprintf("Jakso %d", i), fmt.Sprintf("1-%04d", i), ""))
	}
	var lastPage []string
	for i := playlistPageLen + 1; i <= playlistPageLen+23; i++ {
		lastPage = append(lastPage, episodeItem(
			fmt.Sprintf("Jakso %d", i), fmt.Sprintf("1-%04d", i), ""))
	}

	client := newPlaylistClient(listURL, map[int]string{
		0:               playlistPage(fullPage...),
		playlistPageLen: playlistPage(lastPage...),
	})

	playlist, err := NewPlaylistParser(client, nil).Playlist(context.Background(), seriesPageURL, false)
	if err != nil {
		t.Fatalf("Playlist() error = %v", err)
	}
	if len(playlist) != playlistPageLen+23 {
		t.Fatalf("Playlist() returned %d episodes, want %d", len(playlist), playlistPageLen+23)
	}
	if playlist[0] != "https://areena.yle.fi/1-0001" {
		t.Errorf("first episode = %s, want https://areena.yle.fi/1-0001", playlist[0])
	}
	if playlist[len(playlist)-1] != "https://areena.yle.fi/1-0123" {
		t.Errorf("last episode = %s, want https://areena.yle.fi/1-0123", playlist[len(playlist)-1])
	}
}

func TestPlaylistReversesDescendingDateOrder(t *testing.T) {
	listURL := "https://areena.api.yle.fi/v1/ui/content/list?series=1-3826480"
	client := newPlaylistClient(listURL, map[int]string{
		0: playlistPage(
			episodeItem("Uusin", "1-333", "pe 16.9.2022"),
			episodeItem("Keskimmäinen", "1-222", "to 15.9.2022"),
			episodeItem("Vanhin", "1-111", "ke 14.9.2022"),
		),
	})

	playlist, err := NewPlaylistParser(client, nil).Playlist(context.Background(), seriesPageURL, false)
	if err != nil {
		t.Fatalf("Playlist() error = %v", err)
	}
	want := []string{
		"https://areena.yle.fi/1-111",
		"https://areena.yle.fi/1-222",
		"https://areena.yle.fi/1-333",
	}
	if !reflect.DeepEqual(playlist, want) {
		t.Errorf("Playlist() = %v, want %v", playlist, want)
	}
}

func TestPlaylistLatestOnlyDownloadsOnlyTheLastSeason(t *testing.T) {
	listURL := "https://areena.api.yle.fi/v1/ui/content/list?series=1-3826480"
	nextData := fmt.Sprintf(`{"props": {"pageProps": {
		"meta": {"item": {"type": "TVSeries"}},
		"view": {"tabs": [{
			"type": "tab",
			"slug": "jaksot",
			"content": [{
				"source": {"uri": "%s"},
				"filters": [{"options": [
					{"parameters": {"seasonId": "1-s1"}},
					{"parameters": {"seasonId": "1-s2"}}
				]}]
			}]
		}]}
	}}}`, listURL)

	client := &fakeWebClient{
		html: map[string]string{seriesPageURL: seriesPageHTML(nextData)},
		jsonBody: func(requestURL string) (string, error) {
			parsed, err := url.Parse(requestURL)
			if err != nil {
				return "", err
			}
			if parsed.Query().Get("seasonId") != "1-s2" {
				return "", fmt.Errorf("unexpected season request: %s", requestURL)
			}
			return playlistPage(
				episodeItem("Jakso 1", "1-201", ""),
				episodeItem("Jakso 2", "1-202", ""),
			), nil
		},
	}

	playlist, err := NewPlaylistParser(client, nil).Playlist(context.Background(), seriesPageURL, true)
	if err != nil {
		t.Fatalf("Playlist() error = %v", err)
	}
	want := []string{"https://areena.yle.fi/1-202"}
	if !reflect.DeepEqual(playlist, want) {
		t.Errorf("Playlist() = %v, want %v", playlist, want)
	}
}

func TestPlaylistNonSeriesPageYieldsItself(t *testing.T) {
	pageURL := "https://areena.yle.fi/1-50097921"
	client := &fakeWebClient{
		html: map[string]string{
			pageURL: `<html><body><h1>Yksittäinen ohjelma</h1></body></html>`,
		},
	}

	playlist, err := NewPlaylistParser(client, nil).Playlist(context.Background(), pageURL, false)
	if err != nil {
		t.Fatalf("Playlist() error = %v", err)
	}
	if !reflect.DeepEqual(playlist, []string{pageURL}) {
		t.Errorf("Playlist() = %v, want [%s]", playlist, pageURL)
	}
}

func TestPlaylistPageDownloadFailureYieldsPageItself(t *testing.T) {
	pageURL := "https://areena.yle.fi/1-50097921"
	client := &fakeWebClient{}

	playlist, err := NewPlaylistParser(client, nil).Playlist(context.Background(), pageURL, false)
	if err != nil {
		t.Fatalf("Playlist() error = %v", err)
	}
	if !reflect.DeepEqual(playlist, []string{pageURL}) {
		t.Errorf("Playlist() = %v, want [%s]", playlist, pageURL)
	}
}

func TestEpisodeNumberFromTitle(t *testing.T) {
	tests := []struct {
		title string
		want  int
	}{
		{"Jakso 12", 12},
		{"jakso 7", 7},
		{"Jakso 3: Sarjan loppu", 3},
		// the pattern matches only at the start of the title
		{"Sarja, Jakso 5 uusinta", 0},
		{"Viimeinen jakso", 0},
		{"", 0},
	}
	for _, tt := range tests {
		item := playlistAPIItem{Title: tt.title}
		if got := episodeNumber(item); got != tt.want {
			t.Errorf("episodeNumber(%q) = %d, want %d", tt.title, got, tt.want)
		}
	}
}

func TestReleaseDateFromLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels string
		want   *time.Time
	}{
		{
			name:   "tv date label",
			labels: `[{"type": "generic", "formatted": "pe 15.3.2019"}]`,
			want:   timePtr(time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:   "date must start the label",
			labels: `[{"type": "generic", "formatted": "Kausi 2 alkaa pe 15.3.2019 Areenassa"}]`,
			want:   nil,
		},
		{
			name:   "radio releaseDate label",
			labels: `[{"type": "releaseDate", "raw": "2019-03-15T06:00:00+02:00"}]`,
			want:   timePtr(time.Date(2019, 3, 15, 6, 0, 0, 0, time.FixedZone("", 2*3600))),
		},
		{
			name:   "no date labels",
			labels: `[{"type": "generic", "formatted": "Uusi sarja"}]`,
			want:   nil,
		},
	}
	for _, tt := range tests {
		var item playlistAPIItem
		if err := json.Unmarshal([]byte(`{"title": "x", "labels": `+tt.labels+`}`), &item); err != nil {
			t.Fatalf("%s: unmarshal labels: %v", tt.name, err)
		}
		got := releaseDate(item)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("%s: releaseDate() = %v, want nil", tt.name, got)
		case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
			t.Errorf("%s: releaseDate() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }
