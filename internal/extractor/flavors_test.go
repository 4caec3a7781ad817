package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/famomatic/yledl/internal/probe"
	"github.com/famomatic/yledl/internal/types"
)

type fakeManifestProber struct {
	body string
	err  error
}

func (f fakeManifestProber) ShowProgramsForURL(_ context.Context, _ string) (*probe.ProgramsDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	var doc probe.ProgramsDocument
	if err := json.Unmarshal([]byte(f.body), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func TestProbeFlavorsBitrateAndDedup(t *testing.T) {
	// the second 360p variant is a manifest duplicate
	prober := &FullHDFlavorProber{
		logger: testLogger(),
		prober: fakeManifestProber{body: `{"programs": [
			{"program_id": 0, "tags": {"variant_bitrate": "964000"},
			 "streams": [{"codec_type": "video", "width": 640, "height": 360},
			             {"codec_type": "audio"}]},
			{"program_id": 1, "tags": {"variant_bitrate": "964000"},
			 "streams": [{"codec_type": "video", "width": 640, "height": 360},
			             {"codec_type": "audio"}]},
			{"program_id": 2, "tags": {"variant_bitrate": "469000"},
			 "streams": [{"codec_type": "video", "width": 640, "height": 360},
			             {"codec_type": "audio"}]}
		]}`},
	}

	flavors := prober.ProbeFlavors(context.Background(), "https://example.com/manifest.m3u8", false)

	if len(flavors) != 2 {
		t.Fatalf("ProbeFlavors() returned %d flavors, want 2 after deduplication", len(flavors))
	}
	for i, want := range []int{469, 964} {
		if flavors[i].Bitrate != want {
			t.Errorf("flavors[%d].Bitrate = %d, want %d", i, flavors[i].Bitrate, want)
		}
		if flavors[i].Width != 640 || flavors[i].Height != 360 {
			t.Errorf("flavors[%d] resolution = %dx%d, want 640x360",
				i, flavors[i].Width, flavors[i].Height)
		}
		if flavors[i].MediaType != types.MediaTypeVideo {
			t.Errorf("flavors[%d].MediaType = %q, want video", i, flavors[i].MediaType)
		}
	}
}

func TestProbeFlavorsSortsByHeightThenBitrate(t *testing.T) {
	prober := &FullHDFlavorProber{
		logger: testLogger(),
		prober: fakeManifestProber{body: `{"programs": [
			{"program_id": 0, "tags": {"variant_bitrate": "2808000"},
			 "streams": [{"codec_type": "video", "width": 1280, "height": 720}]},
			{"program_id": 1, "tags": {"variant_bitrate": "964000"},
			 "streams": [{"codec_type": "video", "width": 640, "height": 360}]},
			{"program_id": 2, "tags": {"variant_bitrate": "1989000"},
			 "streams": [{"codec_type": "video", "width": 1280, "height": 720}]}
		]}`},
	}

	flavors := prober.ProbeFlavors(context.Background(), "https://example.com/manifest.m3u8", false)

	var got [][2]int
	for _, fl := range flavors {
		got = append(got, [2]int{fl.Height, fl.Bitrate})
	}
	want := [][2]int{{360, 964}, {720, 1989}, {720, 2808}}
	if len(got) != len(want) {
		t.Fatalf("ProbeFlavors() returned %d flavors, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("flavors[%d] = height %d bitrate %d, want height %d bitrate %d",
				i, got[i][0], got[i][1], want[i][0], want[i][1])
		}
	}
}

func TestProbeFlavorsFailure(t *testing.T) {
	prober := &FullHDFlavorProber{
		logger: testLogger(),
		prober: fakeManifestProber{err: errors.New("exit status 1")},
	}

	flavors := prober.ProbeFlavors(context.Background(), "https://example.com/manifest.m3u8", false)

	if len(flavors) != 1 {
		t.Fatalf("ProbeFlavors() returned %d flavors, want a single failed flavor", len(flavors))
	}
	streams := flavors[0].Streams
	if len(streams) != 1 || streams[0].IsValid() {
		t.Errorf("failed flavor streams = %+v, want one invalid stream", streams)
	}
}
