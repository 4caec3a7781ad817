package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/famomatic/yledl/internal/localization"
	"github.com/famomatic/yledl/internal/types"
)

// previewDocument is the response of the player preview API. The document
// carries exactly one of the event objects depending on the program state.
type previewDocument struct {
	Data struct {
		OngoingOndemand *previewEvent `json:"ongoing_ondemand"`
		OngoingEvent    *previewEvent `json:"ongoing_event"`
		OngoingChannel  *previewEvent `json:"ongoing_channel"`
		PendingEvent    *previewEvent `json:"pending_event"`
		PendingOndemand *previewEvent `json:"pending_ondemand"`
		Gone            *struct{}     `json:"gone"`
	} `json:"data"`
}

type previewEvent struct {
	MediaID string `json:"media_id"`
	Adobe   struct {
		YleMediaID string `json:"yle_media_id"`
	} `json:"adobe"`
	Duration struct {
		DurationInSeconds int `json:"duration_in_seconds"`
	} `json:"duration"`
	Title       map[string]string `json:"title"`
	Description map[string]string `json:"description"`
	Series      struct {
		Title map[string]string `json:"title"`
	} `json:"series"`
	EpisodeNumber *int   `json:"episode_number"`
	Region        string `json:"region"`
	StartTime     string `json:"start_time"`
	ManifestURL   string `json:"manifest_url"`
	MediaURL      string `json:"media_url"`
	ContentType   string `json:"content_type"`
	Subtitles     []struct {
		URI      string `json:"uri"`
		Language string `json:"language"`
		Kind     string `json:"kind"`
		Lang     string `json:"lang"`
	} `json:"subtitles"`
	Image struct {
		ID      string `json:"id"`
		Version int    `json:"version"`
	} `json:"image"`
}

// PreviewParser reads program metadata out of a preview API document.
type PreviewParser struct {
	doc previewDocument
}

// NewPreviewParser wraps a decoded preview document.
func NewPreviewParser(doc previewDocument) *PreviewParser {
	return &PreviewParser{doc: doc}
}

func (p *PreviewParser) ongoing() *previewEvent {
	d := p.doc.Data
	for _, ev := range []*previewEvent{
		d.OngoingOndemand, d.OngoingEvent, d.OngoingChannel, d.PendingEvent,
	} {
		if ev != nil {
			return ev
		}
	}
	return &previewEvent{}
}

// MediaID prefers the top-level media id and falls back to the id buried
// in the analytics object.
func (p *PreviewParser) MediaID() string {
	ev := p.ongoing()
	if ev.MediaID != "" {
		return ev.MediaID
	}
	return ev.Adobe.YleMediaID
}

func (p *PreviewParser) DurationSeconds() int {
	return p.ongoing().Duration.DurationInSeconds
}

// TitleParts returns the episode title and the series title. When the two
// are equal the episode is almost always named after its publication date,
// so the title is replaced with a formatted date.
func (p *PreviewParser) TitleParts(chooser *localization.TranslationChooser) (title, seriesTitle string) {
	ev := p.ongoing()
	title = strings.TrimSpace(chooser.Choose(ev.Title))
	seriesTitle = strings.TrimSpace(chooser.Choose(ev.Series.Title))

	if title != "" && title == seriesTitle {
		if ts := ParseAreenaTimestamp(ev.StartTime); ts != nil {
			title = FormatFinnishShortWeekdayAndDate(*ts)
		}
	}
	return title, seriesTitle
}

func (p *PreviewParser) Description(chooser *localization.TranslationChooser) string {
	return strings.TrimSpace(chooser.Choose(p.ongoing().Description))
}

var seasonFromDescriptionRe = regexp.MustCompile(`^Kausi (\d+)\b`)

// SeasonAndEpisode extracts the episode number from the preview data and
// the season number from a "Kausi N" description prefix. Zero means
// unknown.
func (p *PreviewParser) SeasonAndEpisode() (season, episode int, hasEpisode bool) {
	ev := p.ongoing()
	if ev.EpisodeNumber == nil {
		return 0, 0, false
	}
	episode = *ev.EpisodeNumber
	desc := p.Description(localization.NewTranslationChooser("fin"))
	if m := seasonFromDescriptionRe.FindStringSubmatch(desc); m != nil {
		season, _ = strconv.Atoi(m[1])
	}
	return season, episode, true
}

func (p *PreviewParser) AvailableAtRegion() string {
	return p.ongoing().Region
}

// Timestamp is the publish time of the program. Live streams report the
// current time.
func (p *PreviewParser) Timestamp() *time.Time {
	if p.IsLive() {
		now := time.Now().Truncate(time.Second)
		return &now
	}
	return ParseAreenaTimestamp(p.ongoing().StartTime)
}

func (p *PreviewParser) ManifestURL() string {
	return p.ongoing().ManifestURL
}

func (p *PreviewParser) MediaURL() string {
	return p.ongoing().MediaURL
}

func (p *PreviewParser) MediaType() string {
	if p.ongoing().ContentType == "AudioObject" {
		return types.MediaTypeAudio
	}
	return types.MediaTypeVideo
}

func (p *PreviewParser) IsLive() bool {
	return p.doc.Data.OngoingChannel != nil || p.doc.Data.OngoingEvent != nil
}

func (p *PreviewParser) IsPending() bool {
	return p.doc.Data.PendingEvent != nil || p.doc.Data.PendingOndemand != nil
}

func (p *PreviewParser) IsExpired() bool {
	return p.doc.Data.Gone != nil
}

var twoLetterSubtitleLangs = map[string]string{
	"fi": "fin", "fih": "fin",
	"sv": "swe", "svh": "swe",
	"se": "smi",
	"en": "eng",
}

// Subtitles handles both subtitle shapes the preview API has used: the
// newer {language, kind} objects and the older {lang} objects where a
// trailing "h" marks hard-of-hearing subtitles.
func (p *PreviewParser) Subtitles() []types.Subtitle {
	var subtitles []types.Subtitle
	for _, s := range p.ongoing().Subtitles {
		var lang, category string
		switch {
		case s.Language != "":
			lang = s.Language
			if s.Kind == "hardOfHearing" {
				category = types.CategoryHardOfHearing
			} else {
				category = types.CategoryTranslation
			}
		case s.Lang != "":
			lang = twoLetterSubtitleLangs[s.Lang]
			if lang == "" {
				lang = s.Lang
			}
			if s.Lang == "fih" || s.Lang == "svh" {
				category = types.CategoryHardOfHearing
			} else {
				category = types.CategoryTranslation
			}
		default:
			lang = "unk"
			category = types.CategoryTranslation
		}
		if s.URI != "" {
			subtitles = append(subtitles, types.Subtitle{URL: s.URI, Lang: lang, Category: category})
		}
	}
	return subtitles
}

// ThumbnailURL builds an image CDN URL for the program thumbnail.
func (p *PreviewParser) ThumbnailURL() string {
	image := p.ongoing().Image
	if image.ID == "" {
		return ""
	}
	version := image.Version
	if version == 0 {
		version = 1624522786
	}
	return fmt.Sprintf(
		"https://images.cdn.yle.fi/image/upload/f_auto,c_limit,w_1080,q_auto/v%d/%s",
		version, image.ID)
}
