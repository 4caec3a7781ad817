package types

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

// Clip is a single downloadable program: one web page together with the
// stream flavors discovered for it.
type Clip struct {
	WebURL      string
	Title       string
	EpisodeTitle string
	Description string
	Flavors     []StreamFlavor
	// DurationSeconds is zero when the duration is unknown.
	DurationSeconds int
	Region          string
	PublishTimestamp    *time.Time
	ExpirationTimestamp *time.Time
	Subtitles []Subtitle
	ProgramID string
	OriginURL string
	Thumbnail string
}

// NewFailedClip returns a clip whose only flavor reports the given error.
func NewFailedClip(webURL, errorMessage string, programID string) *Clip {
	return &Clip{
		WebURL:    webURL,
		Flavors:   []StreamFlavor{FailedFlavor(errorMessage)},
		Region:    "Finland",
		ProgramID: programID,
	}
}

// FlavorMetadata is the per-flavor section of the metadata document.
type FlavorMetadata struct {
	MediaType string   `json:"media_type,omitempty"`
	Height    int      `json:"height,omitempty"`
	Width     int      `json:"width,omitempty"`
	Bitrate   int      `json:"bitrate,omitempty"`
	Backends  []string `json:"backends,omitempty"`
	URL       string   `json:"url,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// SubtitleMetadata is the per-subtitle section of the metadata document.
type SubtitleMetadata struct {
	URL      string `json:"url"`
	Language string `json:"language"`
	Category string `json:"category"`
}

// ClipMetadata is the JSON document printed by the metadata mode.
type ClipMetadata struct {
	WebURL              string             `json:"webpage"`
	Title               string             `json:"title,omitempty"`
	EpisodeTitle        string             `json:"episode_title,omitempty"`
	Description         string             `json:"description,omitempty"`
	Filename            string             `json:"filename,omitempty"`
	Flavors             []FlavorMetadata   `json:"flavors,omitempty"`
	DurationSeconds     int                `json:"duration_seconds,omitempty"`
	Subtitles           []SubtitleMetadata `json:"subtitles,omitempty"`
	Region              string             `json:"region,omitempty"`
	PublishTimestamp    string             `json:"publish_timestamp,omitempty"`
	ExpirationTimestamp string             `json:"expiration_timestamp,omitempty"`
	ProgramID           string             `json:"program_id,omitempty"`
	Thumbnail           string             `json:"thumbnail,omitempty"`
}

// Metadata builds the metadata document for this clip. Flavors are listed
// in ascending bitrate order.
func (c *Clip) Metadata(io *IOContext) ClipMetadata {
	flavors := make([]StreamFlavor, len(c.Flavors))
	copy(flavors, c.Flavors)
	sort.SliceStable(flavors, func(i, j int) bool {
		return flavors[i].Bitrate < flavors[j].Bitrate
	})

	flavorsMeta := lo.Map(flavors, func(fl StreamFlavor, _ int) FlavorMetadata {
		return flavorMetadata(fl)
	})

	meta := ClipMetadata{
		WebURL:          c.WebURL,
		Title:           c.Title,
		EpisodeTitle:    c.EpisodeTitle,
		Description:     c.Description,
		Filename:        c.metadataFilename(flavors, io),
		Flavors:         flavorsMeta,
		DurationSeconds: c.DurationSeconds,
		Subtitles: lo.Map(c.Subtitles, func(s Subtitle, _ int) SubtitleMetadata {
			return SubtitleMetadata{URL: s.URL, Language: s.Lang, Category: s.Category}
		}),
		Region:    c.Region,
		ProgramID: c.ProgramID,
		Thumbnail: c.Thumbnail,
	}
	if c.PublishTimestamp != nil {
		meta.PublishTimestamp = c.PublishTimestamp.Format(time.RFC3339)
	}
	if c.ExpirationTimestamp != nil {
		meta.ExpirationTimestamp = c.ExpirationTimestamp.Format(time.RFC3339)
	}
	return meta
}

func flavorMetadata(fl StreamFlavor) FlavorMetadata {
	backends := lo.FilterMap(fl.Streams, func(s Backend, _ int) (string, bool) {
		return s.Name(), s.IsValid()
	})
	var url string
	var errorMessage string
	for _, s := range fl.Streams {
		if s.IsValid() {
			url = s.StreamURL()
			break
		}
	}
	if len(backends) == 0 {
		for _, s := range fl.Streams {
			if msg := s.ErrorMessage(); msg != "" {
				errorMessage = msg
				break
			}
		}
	}
	return FlavorMetadata{
		MediaType: fl.MediaType,
		Height:    fl.Height,
		Width:     fl.Width,
		Bitrate:   fl.Bitrate,
		Backends:  backends,
		URL:       url,
		Error:     errorMessage,
	}
}

func (c *Clip) metadataFilename(flavors []StreamFlavor, io *IOContext) string {
	for i := len(flavors) - 1; i >= 0; i-- {
		for _, s := range flavors[i].Streams {
			if s.IsValid() {
				ext := s.FileExtension(io.PreferredFormat)
				return OutputFileNameGenerator{}.Path(c.Title, ext, io)
			}
		}
	}
	return ""
}
