package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/famomatic/yledl/internal/localization"
)

func programsFromJSON(t *testing.T, body string) *ProgramsParser {
	t.Helper()
	var doc programsDocument
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatalf("unmarshal programs fixture: %v", err)
	}
	return NewProgramsParser(doc)
}

func TestProgramsTitleParts(t *testing.T) {
	chooser := localization.NewTranslationChooser("fin")

	programs := programsFromJSON(t, `{"data": {
		"itemTitle": {"fi": "Jakson nimi"},
		"partOfSeries": {"title": {"fi": "Sarjan nimi"}}
	}}`)
	title, series := programs.TitleParts(chooser)
	if title != "Jakson nimi" || series != "Sarjan nimi" {
		t.Errorf("TitleParts() = (%q, %q), want (%q, %q)", title, series, "Jakson nimi", "Sarjan nimi")
	}
}

func TestProgramsPromotionTitleFallback(t *testing.T) {
	chooser := localization.NewTranslationChooser("fin")

	short := programsFromJSON(t, `{"data": {"promotionTitle": {"fi": "Lyhyt promo"}}}`)
	if title, _ := short.TitleParts(chooser); title != "Lyhyt promo" {
		t.Errorf("TitleParts() title = %q, want the promotion title", title)
	}

	long := programsFromJSON(t, `{"data": {"promotionTitle":
		{"fi": "Tämä promoteksti on niin pitkä että se on oikeasti ohjelman kuvaus eikä nimi"}}}`)
	if title, _ := long.TitleParts(chooser); title != "" {
		t.Errorf("TitleParts() title = %q, want empty for a long promotion title", title)
	}
}

func TestProgramsDurationSeconds(t *testing.T) {
	tests := []struct {
		duration string
		want     int
	}{
		{"PT27M30S", 1650},
		{"PT1H2M3S", 3723},
		{"PT45S", 45},
		{"PT2H", 7200},
		{"", 0},
		{"bogus", 0},
	}
	for _, tt := range tests {
		programs := programsFromJSON(t, fmt.Sprintf(`{"data": {"duration": "%s"}}`, tt.duration))
		if got := programs.DurationSeconds(); got != tt.want {
			t.Errorf("DurationSeconds(%q) = %d, want %d", tt.duration, got, tt.want)
		}
	}
}

func TestProgramsPublishEventSelection(t *testing.T) {
	programs := programsFromJSON(t, `{"data": {"publicationEvent": [
		{"service": {"id": "yle-tv1"}, "temporalStatus": "currently",
		 "startTime": "2022-09-20T18:00:00+03:00", "media": {"id": "6-555"}},
		{"service": {"id": "yle-areena"}, "temporalStatus": "in-past",
		 "startTime": "2022-09-10T18:00:00+03:00", "media": {"id": "6-111"}},
		{"service": {"id": "yle-areena"}, "temporalStatus": "currently",
		 "startTime": "2022-09-16T18:00:00+03:00",
		 "endTime": "2023-09-16T18:00:00+03:00",
		 "region": "World",
		 "media": {"id": "6-222", "downloadUrl": "https://example.com/media.mp4"}},
		{"service": {"id": "yle-areena"}, "temporalStatus": "currently",
		 "startTime": "2022-09-12T18:00:00+03:00", "media": {"id": "6-333"}}
	]}}`)

	// other services and non-current events are skipped; among current
	// Areena events the latest start time wins
	if got := programs.MediaID(); got != "6-222" {
		t.Errorf("MediaID() = %q, want %q", got, "6-222")
	}
	if got := programs.AvailableAtRegion(); got != "World" {
		t.Errorf("AvailableAtRegion() = %q, want %q", got, "World")
	}
	if got := programs.DownloadURL(); got != "https://example.com/media.mp4" {
		t.Errorf("DownloadURL() = %q, want the event media URL", got)
	}

	ts := programs.PublishTimestamp()
	if ts == nil || !ts.Equal(time.Date(2022, 9, 16, 18, 0, 0, 0, time.FixedZone("", 3*3600))) {
		t.Errorf("PublishTimestamp() = %v, want 2022-09-16T18:00:00+03:00", ts)
	}
	expiration := programs.ExpirationTimestamp()
	if expiration == nil || expiration.Year() != 2023 {
		t.Errorf("ExpirationTimestamp() = %v, want a 2023 timestamp", expiration)
	}
}

func TestProgramsTemporalStatus(t *testing.T) {
	pending := programsFromJSON(t, `{"data": {"publicationEvent": [
		{"service": {"id": "yle-areena"}, "temporalStatus": "in-future",
		 "startTime": "2030-01-01T18:00:00+02:00", "media": {"id": "6-111"}}
	]}}`)
	if !pending.IsPending() || pending.IsExpired() {
		t.Error("in-future event should be pending and not expired")
	}

	expired := programsFromJSON(t, `{"data": {"publicationEvent": [
		{"service": {"id": "yle-areena"}, "temporalStatus": "in-past",
		 "startTime": "2010-01-01T18:00:00+02:00", "media": {"id": "6-111"}}
	]}}`)
	if !expired.IsExpired() || expired.IsPending() {
		t.Error("in-past event should be expired and not pending")
	}
}

func TestProgramsNilParserIsEmpty(t *testing.T) {
	var programs *ProgramsParser
	if got := programs.MediaID(); got != "" {
		t.Errorf("MediaID() = %q, want empty", got)
	}
	if got := programs.DurationSeconds(); got != 0 {
		t.Errorf("DurationSeconds() = %d, want 0", got)
	}
	if programs.IsPending() || programs.IsExpired() {
		t.Error("nil parser should be neither pending nor expired")
	}
	if ts := programs.PublishTimestamp(); ts != nil {
		t.Errorf("PublishTimestamp() = %v, want nil", ts)
	}
}

func TestExtractClipMergesProgramsDocument(t *testing.T) {
	pid := "1-50097921"
	pageURL := "https://areena.yle.fi/" + pid
	client := &fakeWebClient{
		jsonBody: func(url string) (string, error) {
			switch {
			case strings.Contains(url, "/v1/preview/"+pid+".json"):
				return `{"data": {"ongoing_ondemand": {
					"media_id": "6-abc",
					"title": {"fin": "Esikatselun nimi"},
					"region": "Finland"
				}}}`, nil
			case strings.Contains(url, "programs.api.yle.fi/v1/id/"+pid+".json"):
				return `{"data": {
					"itemTitle": {"fi": "Katalogin nimi"},
					"partOfSeries": {"title": {"fi": "Sarja"}},
					"description": {"fi": "Katalogin kuvaus"},
					"duration": "PT30M",
					"publicationEvent": [
						{"service": {"id": "yle-areena"}, "temporalStatus": "currently",
						 "startTime": "2022-09-16T18:00:00+03:00",
						 "endTime": "2023-09-16T18:00:00+03:00",
						 "media": {"id": "6-abc", "downloadUrl": "https://example.com/archive.mp4"}}
					]
				}}`, nil
			}
			return "", fmt.Errorf("unexpected request: %s", url)
		},
	}

	ex := NewAreenaExtractor(Config{Client: client, Logger: testLogger()})
	clip := ex.ExtractClip(context.Background(), pageURL, pageURL)

	// catalog metadata wins over the preview
	if !strings.Contains(clip.Title, "Sarja: Katalogin nimi") {
		t.Errorf("Title = %q, want the catalog title parts", clip.Title)
	}
	if clip.Description != "Katalogin kuvaus" {
		t.Errorf("Description = %q, want %q", clip.Description, "Katalogin kuvaus")
	}
	if clip.DurationSeconds != 1800 {
		t.Errorf("DurationSeconds = %d, want 1800", clip.DurationSeconds)
	}
	if clip.ExpirationTimestamp == nil {
		t.Error("ExpirationTimestamp = nil, want the publication event end time")
	}

	// archive media downloads as plain HTTP from the catalog downloadUrl
	if len(clip.Flavors) != 1 || len(clip.Flavors[0].Streams) != 1 {
		t.Fatalf("Flavors = %+v, want one flavor with one stream", clip.Flavors)
	}
	if got := clip.Flavors[0].Streams[0].StreamURL(); got != "https://example.com/archive.mp4" {
		t.Errorf("StreamURL() = %q, want the archive download URL", got)
	}
}
