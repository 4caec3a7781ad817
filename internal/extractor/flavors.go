package extractor

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/backend"
	"github.com/famomatic/yledl/internal/kaltura"
	"github.com/famomatic/yledl/internal/probe"
	"github.com/famomatic/yledl/internal/types"
)

// FlavorProber discovers the quality variants available in an HLS
// manifest.
type FlavorProber interface {
	ProbeFlavors(ctx context.Context, manifestURL string, isLive bool) []types.StreamFlavor
}

// manifestProber is the part of probe.Ffprobe the flavor prober needs.
type manifestProber interface {
	ShowProgramsForURL(ctx context.Context, url string) (*probe.ProgramsDocument, error)
}

// FullHDFlavorProber probes a manifest with ffprobe. This is the only way
// to discover the 1080p variants, which the Areena APIs do not advertise.
type FullHDFlavorProber struct {
	prober manifestProber
	logger logrus.FieldLogger
}

// NewFullHDFlavorProber returns a prober running the given ffprobe binary.
func NewFullHDFlavorProber(ffprobeBinary, xForwardedFor string, logger logrus.FieldLogger) *FullHDFlavorProber {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FullHDFlavorProber{
		prober: probe.NewFfprobe(ffprobeBinary, xForwardedFor, logger),
		logger: logger,
	}
}

// ProbeFlavors returns one flavor per distinct program variant in the
// manifest, sorted by ascending height and bitrate. Manifests repeat
// variants, so duplicates are dropped.
func (p *FullHDFlavorProber) ProbeFlavors(ctx context.Context, manifestURL string, isLive bool) []types.StreamFlavor {
	doc, err := p.prober.ShowProgramsForURL(ctx, manifestURL)
	if err != nil {
		return []types.StreamFlavor{
			types.FailedFlavor(fmt.Sprintf("Failed to probe stream: %v", err)),
		}
	}

	type variantKey struct {
		width, height, bitrate int
		url                    string
	}
	seen := make(map[variantKey]bool, len(doc.Programs))

	flavors := make([]types.StreamFlavor, 0, len(doc.Programs))
	for _, program := range doc.Programs {
		mediaType := types.MediaTypeAudio
		var width, height int
		for _, stream := range program.Streams {
			if stream.CodecType == "video" {
				mediaType = types.MediaTypeVideo
			}
			if width == 0 && stream.Width > 0 {
				width = stream.Width
			}
			if height == 0 && stream.Height > 0 {
				height = stream.Height
			}
		}
		bitrate := program.VariantBitrate() / 1000

		key := variantKey{width, height, bitrate, manifestURL}
		if seen[key] {
			continue
		}
		seen[key] = true

		pid := program.ProgramID
		flavors = append(flavors, types.StreamFlavor{
			MediaType: mediaType,
			Height:    height,
			Width:     width,
			Bitrate:   bitrate,
			Streams: []types.Backend{
				backend.NewDASHHLSBackend(manifestURL, backend.DASHHLSConfig{
					LongProbe: true,
					ProgramID: &pid,
					Live:      isLive,
					Logger:    p.logger,
				}),
			},
		})
	}

	sort.SliceStable(flavors, func(i, j int) bool {
		if flavors[i].Height != flavors[j].Height {
			return flavors[i].Height < flavors[j].Height
		}
		return flavors[i].Bitrate < flavors[j].Bitrate
	})
	return flavors
}

// NullProber skips probing. Used when only metadata is needed or when the
// ffmpeg backend is disabled; the extractor then falls back to a generic
// manifest flavor.
type NullProber struct{}

func (NullProber) ProbeFlavors(context.Context, string, bool) []types.StreamFlavor {
	return nil
}

// execBackendFactory builds the real subprocess-backed downloaders. It
// satisfies the factory interface of the kaltura package.
type execBackendFactory struct {
	logger logrus.FieldLogger
}

func (f execBackendFactory) DASHHLS(url string) types.Backend {
	return backend.NewDASHHLSBackend(url, backend.DASHHLSConfig{Logger: f.logger})
}

func (f execBackendFactory) dashHLSWithSubtitles(url string) types.Backend {
	return backend.NewDASHHLSBackend(url, backend.DASHHLSConfig{
		ExperimentalSubtitles: true,
		Logger:                f.logger,
	})
}

func (f execBackendFactory) HLSAudio(url string) types.Backend {
	return backend.NewHLSAudioBackend(url, f.logger)
}

func (f execBackendFactory) Wget(url, fileExtension string) types.Backend {
	return backend.NewWgetBackend(url, fileExtension, f.logger)
}

// KalturaAPIClient is the transport needed for Kaltura requests.
type KalturaAPIClient interface {
	PostJSON(ctx context.Context, url string, payload any, extraHeaders map[string]string, v any) error
}

// NewKalturaSource returns a Kaltura mp4 source wired to the subprocess
// downloaders.
func NewKalturaSource(httpClient KalturaAPIClient, logger logrus.FieldLogger) KalturaSource {
	return kaltura.New(httpClient, execBackendFactory{logger: logger}, logger)
}
