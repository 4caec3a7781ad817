package extractor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/famomatic/yledl/internal/types"
)

type fakeProber struct {
	flavors []types.StreamFlavor
}

func (p fakeProber) ProbeFlavors(context.Context, string, bool) []types.StreamFlavor {
	return p.flavors
}

func previewClient(pid, body string) *fakeWebClient {
	return &fakeWebClient{
		jsonBody: func(url string) (string, error) {
			if !strings.Contains(url, "/v1/preview/"+pid+".json") {
				return "", fmt.Errorf("unexpected request: %s", url)
			}
			return body, nil
		},
	}
}

func TestExtractClipOndemandProgram(t *testing.T) {
	pid := "1-50097921"
	pageURL := "https://areena.yle.fi/" + pid
	client := previewClient(pid, `{"data": {"ongoing_ondemand": {
		"media_id": "55-abcdef",
		"duration": {"duration_in_seconds": 1620},
		"title": {"fin": "Jakson nimi"},
		"series": {"title": {"fin": "Sarjan nimi"}},
		"description": {"fin": "Jakson kuvaus."},
		"region": "World",
		"start_time": "2019-03-15T18:00:00+02:00",
		"manifest_url": "https://example.com/manifest.m3u8",
		"content_type": "VideoObject"
	}}}`)

	prober := fakeProber{flavors: []types.StreamFlavor{
		{MediaType: types.MediaTypeVideo, Height: 720, Width: 1280},
		{MediaType: types.MediaTypeVideo, Height: 1080, Width: 1920},
	}}
	ex := NewAreenaExtractor(Config{Client: client, Prober: prober, Logger: testLogger()})

	clip := ex.ExtractClip(context.Background(), pageURL, pageURL)
	if clip.Title != "Sarjan nimi: Jakson nimi-2019-03-15T18:00" {
		t.Errorf("Title = %q, want %q", clip.Title, "Sarjan nimi: Jakson nimi-2019-03-15T18:00")
	}
	if clip.EpisodeTitle != "Sarjan nimi: Jakson nimi" {
		t.Errorf("EpisodeTitle = %q, want %q", clip.EpisodeTitle, "Sarjan nimi: Jakson nimi")
	}
	if clip.Description != "Jakson kuvaus." {
		t.Errorf("Description = %q, want %q", clip.Description, "Jakson kuvaus.")
	}
	if clip.DurationSeconds != 1620 {
		t.Errorf("DurationSeconds = %d, want 1620", clip.DurationSeconds)
	}
	if clip.Region != "World" {
		t.Errorf("Region = %q, want %q", clip.Region, "World")
	}
	if len(clip.Flavors) != 2 {
		t.Fatalf("len(Flavors) = %d, want 2", len(clip.Flavors))
	}
	if clip.Flavors[1].Height != 1080 {
		t.Errorf("Flavors[1].Height = %d, want 1080", clip.Flavors[1].Height)
	}
	if clip.ProgramID != pid {
		t.Errorf("ProgramID = %q, want %q", clip.ProgramID, pid)
	}
}

func TestExtractClipPendingProgram(t *testing.T) {
	pid := "1-50097921"
	pageURL := "https://areena.yle.fi/" + pid
	client := previewClient(pid, `{"data": {"pending_event": {
		"title": {"fin": "Tuleva ohjelma"},
		"start_time": "2030-06-01T19:00:00+03:00"
	}}}`)

	ex := NewAreenaExtractor(Config{Client: client, Logger: testLogger()})
	clip := ex.ExtractClip(context.Background(), pageURL, pageURL)

	if len(clip.Flavors) != 1 || len(clip.Flavors[0].Streams) != 1 {
		t.Fatal("pending program should produce a single failed stream")
	}
	stream := clip.Flavors[0].Streams[0]
	if stream.IsValid() {
		t.Error("pending program stream reported as valid")
	}
	want := "Stream not yet available. Becomes available on 2030-06-01T19:00:00+03:00"
	if got := stream.ErrorMessage(); got != want {
		t.Errorf("ErrorMessage() = %q, want %q", got, want)
	}
}

func TestExtractClipExpiredProgram(t *testing.T) {
	pid := "1-50097921"
	pageURL := "https://areena.yle.fi/" + pid
	client := previewClient(pid, `{"data": {"gone": {}}}`)

	ex := NewAreenaExtractor(Config{Client: client, Logger: testLogger()})
	clip := ex.ExtractClip(context.Background(), pageURL, pageURL)

	if len(clip.Flavors) != 1 || len(clip.Flavors[0].Streams) != 1 {
		t.Fatal("expired program should produce a single failed stream")
	}
	if got := clip.Flavors[0].Streams[0].ErrorMessage(); got != "This stream has expired" {
		t.Errorf("ErrorMessage() = %q, want %q", got, "This stream has expired")
	}
}

func TestExtractClipPreviewDownloadFails(t *testing.T) {
	pageURL := "https://areena.yle.fi/1-50097921"
	client := &fakeWebClient{}

	ex := NewAreenaExtractor(Config{Client: client, Logger: testLogger()})
	clip := ex.ExtractClip(context.Background(), pageURL, pageURL)

	if len(clip.Flavors) != 1 || len(clip.Flavors[0].Streams) != 1 {
		t.Fatal("failed download should produce a single failed stream")
	}
	if got := clip.Flavors[0].Streams[0].ErrorMessage(); got != "Failed to download program data" {
		t.Errorf("ErrorMessage() = %q, want %q", got, "Failed to download program data")
	}
}

func TestExtractClipPodcastDownloadURL(t *testing.T) {
	pid := "1-50198109"
	pageURL := "https://areena.yle.fi/podcastit/" + pid
	client := previewClient(pid, `{"data": {"ongoing_ondemand": {
		"media_id": "78-123456",
		"title": {"fin": "Podcast-jakso"},
		"media_url": "https://example.com/media/episode.mp3",
		"content_type": "AudioObject"
	}}}`)

	ex := NewAreenaExtractor(Config{Client: client, Logger: testLogger()})
	clip := ex.ExtractClip(context.Background(), pageURL, pageURL)

	if len(clip.Flavors) != 1 {
		t.Fatalf("len(Flavors) = %d, want 1", len(clip.Flavors))
	}
	flavor := clip.Flavors[0]
	if flavor.MediaType != types.MediaTypeAudio {
		t.Errorf("MediaType = %q, want %q", flavor.MediaType, types.MediaTypeAudio)
	}
	if len(flavor.Streams) != 1 || !flavor.Streams[0].IsValid() {
		t.Fatal("podcast should produce one valid download stream")
	}
	if got := flavor.Streams[0].StreamURL(); got != "https://example.com/media/episode.mp3" {
		t.Errorf("StreamURL() = %q, want the media_url", got)
	}
}

func TestIgnoreInvalidDownloadURL(t *testing.T) {
	if got := ignoreInvalidDownloadURL("https://example.com/media/"); got != "" {
		t.Errorf("ignoreInvalidDownloadURL() = %q, want empty", got)
	}
	if got := ignoreInvalidDownloadURL("https://example.com/media/a.mp3"); got == "" {
		t.Error("ignoreInvalidDownloadURL() dropped a valid URL")
	}
}

func TestKalturaEntryID(t *testing.T) {
	if got := kalturaEntryID("29-1_abcdef"); got != "1_abcdef" {
		t.Errorf("kalturaEntryID() = %q, want %q", got, "1_abcdef")
	}
	if got := kalturaEntryID("noprefix"); got != "noprefix" {
		t.Errorf("kalturaEntryID() = %q, want %q", got, "noprefix")
	}
}
