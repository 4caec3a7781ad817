package selector

import (
	"context"
	"testing"

	"github.com/famomatic/yledl/internal/types"
)

// fakeBackend is a stand-in stream for selection tests.
type fakeBackend struct {
	name string
	url  string
}

func (b *fakeBackend) Name() string                     { return b.name }
func (b *fakeBackend) IsValid() bool                    { return true }
func (b *fakeBackend) ErrorMessage() string             { return "" }
func (b *fakeBackend) Capabilities() types.IOCapability { return 0 }
func (b *fakeBackend) StreamURL() string                { return b.url }
func (b *fakeBackend) FileExtension(string) types.FileExtension {
	return types.PreferredFileExtension(".mp4")
}

func (b *fakeBackend) SaveStream(_ context.Context, _ string, _ *types.Clip, _ *types.IOContext) (types.RDCode, error) {
	return types.RDSuccess, nil
}

func (b *fakeBackend) Pipe(_ context.Context, _ *types.IOContext) (types.RDCode, error) {
	return types.RDSuccess, nil
}

func (b *fakeBackend) FullStreamAlreadyDownloaded(string, *types.Clip, *types.IOContext) bool {
	return false
}

func videoFlavor(height, bitrate int, backends ...string) types.StreamFlavor {
	fl := types.StreamFlavor{
		MediaType: types.MediaTypeVideo,
		Height:    height,
		Width:     height * 16 / 9,
		Bitrate:   bitrate,
	}
	for _, name := range backends {
		fl.Streams = append(fl.Streams, &fakeBackend{name: name, url: name + "://stream"})
	}
	return fl
}

func testFlavors() []types.StreamFlavor {
	return []types.StreamFlavor{
		videoFlavor(360, 190, types.BackendFfmpeg),
		videoFlavor(360, 469, types.BackendFfmpeg),
		videoFlavor(480, 652, types.BackendFfmpeg),
		videoFlavor(720, 1506, types.BackendFfmpeg),
		videoFlavor(1080, 2628, types.BackendFfmpeg),
		videoFlavor(1080, 4128, types.BackendFfmpeg),
	}
}

func selectedBitrate(t *testing.T, flavors []types.StreamFlavor, filters types.StreamFilters) int {
	t.Helper()
	flavor := New(nil).selectFlavor(flavors, filters)
	if flavor == nil {
		t.Fatal("selectFlavor() = nil, want a flavor")
	}
	return flavor.Bitrate
}

func TestSelectFlavorDefaultIsBest(t *testing.T) {
	got := selectedBitrate(t, testFlavors(), types.DefaultStreamFilters())
	if got != 4128 {
		t.Errorf("selected bitrate = %d, want 4128", got)
	}
}

func TestSelectFlavorMaxBitrate(t *testing.T) {
	tests := []struct {
		maxBitrate  int
		wantBitrate int
	}{
		{999999, 4128},
		{4128, 4128},
		{3000, 2628},
		{1000, 652},
		{652, 652},
		{200, 190},
		// every flavor over budget: pick the least excessive one
		{100, 190},
		{0, 190},
	}
	for _, tt := range tests {
		filters := types.DefaultStreamFilters()
		filters.MaxBitrate = tt.maxBitrate
		got := selectedBitrate(t, testFlavors(), filters)
		if got != tt.wantBitrate {
			t.Errorf("maxbitrate %d: selected bitrate = %d, want %d",
				tt.maxBitrate, got, tt.wantBitrate)
		}
	}
}

func TestSelectFlavorMaxHeight(t *testing.T) {
	tests := []struct {
		maxHeight   int
		wantBitrate int
	}{
		// lowest bitrate at the best allowed resolution
		{1080, 2628},
		{720, 1506},
		{480, 652},
		{360, 190},
		// nothing fits: the least excessive height wins
		{240, 190},
	}
	for _, tt := range tests {
		filters := types.DefaultStreamFilters()
		filters.MaxHeight = tt.maxHeight
		got := selectedBitrate(t, testFlavors(), filters)
		if got != tt.wantBitrate {
			t.Errorf("maxheight %d: selected bitrate = %d, want %d",
				tt.maxHeight, got, tt.wantBitrate)
		}
	}
}

func TestSelectFlavorMaxHeightAndBitrate(t *testing.T) {
	filters := types.DefaultStreamFilters()
	filters.MaxHeight = 1080
	filters.MaxBitrate = 3000
	got := selectedBitrate(t, testFlavors(), filters)
	if got != 2628 {
		t.Errorf("selected bitrate = %d, want 2628", got)
	}
}

func TestSelectStreamsBackendPreferenceOrder(t *testing.T) {
	flavors := []types.StreamFlavor{
		videoFlavor(720, 1506, types.BackendWget, types.BackendFfmpeg),
	}
	filters := types.DefaultStreamFilters()
	filters.EnabledBackends = []string{types.BackendFfmpeg, types.BackendWget}

	streams := New(nil).SelectStreams(flavors, filters)
	if len(streams) != 2 {
		t.Fatalf("SelectStreams() returned %d streams, want 2", len(streams))
	}
	if streams[0].Name() != types.BackendFfmpeg || streams[1].Name() != types.BackendWget {
		t.Errorf("stream order = [%s, %s], want [ffmpeg, wget]",
			streams[0].Name(), streams[1].Name())
	}
}

func TestSelectStreamsBackendNotEnabled(t *testing.T) {
	flavors := []types.StreamFlavor{
		videoFlavor(720, 1506, types.BackendWget),
	}
	filters := types.DefaultStreamFilters()
	filters.EnabledBackends = []string{types.BackendFfmpeg}

	streams := New(nil).SelectStreams(flavors, filters)
	if len(streams) != 1 {
		t.Fatalf("SelectStreams() returned %d streams, want 1", len(streams))
	}
	if streams[0].IsValid() {
		t.Error("expected an invalid placeholder stream")
	}
	want := "Required backend not enabled. Try: --backend wget"
	if got := streams[0].ErrorMessage(); got != want {
		t.Errorf("error message = %q, want %q", got, want)
	}
}

func TestSelectStreamsFailedFlavorMessage(t *testing.T) {
	flavors := []types.StreamFlavor{types.FailedFlavor("Media not found")}

	streams := New(nil).SelectStreams(flavors, types.DefaultStreamFilters())
	if len(streams) != 1 {
		t.Fatalf("SelectStreams() returned %d streams, want 1", len(streams))
	}
	if got := streams[0].ErrorMessage(); got != "Media not found" {
		t.Errorf("error message = %q, want %q", got, "Media not found")
	}
}

func TestSelectStreamsNoFlavors(t *testing.T) {
	if streams := New(nil).SelectStreams(nil, types.DefaultStreamFilters()); streams != nil {
		t.Errorf("SelectStreams() = %v, want nil", streams)
	}
}

func TestSelectSubtitles(t *testing.T) {
	subs := []types.Subtitle{
		{URL: "https://example.com/fin.srt", Lang: "fin"},
		{URL: "https://example.com/swe.srt", Lang: "swe"},
	}

	filters := types.DefaultStreamFilters()
	if got := SelectSubtitles(subs, filters); len(got) != 2 {
		t.Errorf("all: got %d subtitles, want 2", len(got))
	}

	filters.SubLang = "swe"
	got := SelectSubtitles(subs, filters)
	if len(got) != 1 || got[0].Lang != "swe" {
		t.Errorf("swe: got %v, want the Swedish subtitle", got)
	}

	filters.SubLang = "none"
	if got := SelectSubtitles(subs, filters); got != nil {
		t.Errorf("none: got %v, want nil", got)
	}

	filters.SubLang = "all"
	filters.Hardsubs = true
	if got := SelectSubtitles(subs, filters); got != nil {
		t.Errorf("hardsubs: got %v, want nil", got)
	}
}
