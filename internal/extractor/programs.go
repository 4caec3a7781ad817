package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/famomatic/yledl/internal/localization"
)

const (
	programsAppID  = "areena_web_frontend_prod"
	programsAppKey = "4622a8f8505bb056c956832a70c105d4"
)

// programsDocument is the response of the programs catalog API. The
// catalog has richer structured metadata than the preview but knows
// nothing about the live playback state.
type programsDocument struct {
	Data *programsItem `json:"data"`
}

type programsItem struct {
	Title          map[string]string `json:"title"`
	ItemTitle      map[string]string `json:"itemTitle"`
	PromotionTitle map[string]string `json:"promotionTitle"`
	Description    map[string]string `json:"description"`
	EpisodeNumber  *int              `json:"episodeNumber"`
	PartOfSeason   struct {
		SeasonNumber *int `json:"seasonNumber"`
	} `json:"partOfSeason"`
	PartOfSeries struct {
		Title map[string]string `json:"title"`
	} `json:"partOfSeries"`
	Duration         string             `json:"duration"`
	DownloadURL      string             `json:"downloadUrl"`
	PublicationEvent []publicationEvent `json:"publicationEvent"`
}

type publicationEvent struct {
	TemporalStatus string `json:"temporalStatus"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	Region         string `json:"region"`
	Service        struct {
		ID string `json:"id"`
	} `json:"service"`
	Media *struct {
		ID          string `json:"id"`
		DownloadURL string `json:"downloadUrl"`
	} `json:"media"`
}

// ProgramsParser reads catalog metadata out of a programs API document.
type ProgramsParser struct {
	doc programsDocument
}

// NewProgramsParser wraps a decoded programs document.
func NewProgramsParser(doc programsDocument) *ProgramsParser {
	return &ProgramsParser{doc: doc}
}

func (p *ProgramsParser) item() *programsItem {
	if p == nil || p.doc.Data == nil {
		return &programsItem{}
	}
	return p.doc.Data
}

// Promotion titles longer than this are descriptions mislabeled as
// titles and are not usable as a title fallback.
const maxPromotionTitleLen = 40

// TitleParts returns the episode title and the series title from the
// catalog metadata. An empty item title falls back to a short promotion
// title.
func (p *ProgramsParser) TitleParts(chooser *localization.TranslationChooser) (title, seriesTitle string) {
	item := p.item()
	title = strings.TrimSpace(chooser.Choose(item.ItemTitle))
	if title == "" {
		promo := strings.TrimSpace(chooser.Choose(item.PromotionTitle))
		if len([]rune(promo)) <= maxPromotionTitleLen {
			title = promo
		}
	}
	seriesTitle = strings.TrimSpace(chooser.Choose(item.PartOfSeries.Title))
	if seriesTitle == "" {
		seriesTitle = strings.TrimSpace(chooser.Choose(item.Title))
	}
	return title, seriesTitle
}

func (p *ProgramsParser) Description(chooser *localization.TranslationChooser) string {
	return strings.TrimSpace(chooser.Choose(p.item().Description))
}

// SeasonAndEpisode returns the season and episode numbers. Zero means
// unknown.
func (p *ProgramsParser) SeasonAndEpisode() (season, episode int) {
	item := p.item()
	if item.PartOfSeason.SeasonNumber != nil {
		season = *item.PartOfSeason.SeasonNumber
	}
	if item.EpisodeNumber != nil {
		episode = *item.EpisodeNumber
	}
	return season, episode
}

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?$`)

// DurationSeconds parses the ISO 8601 duration of the program, e.g.
// "PT1H27M30S". Returns zero for missing or malformed durations.
func (p *ProgramsParser) DurationSeconds() int {
	m := isoDurationRe.FindStringSubmatch(p.item().Duration)
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.ParseFloat(m[3], 64)
	return hours*3600 + minutes*60 + int(seconds)
}

// publishEvent selects the authoritative Areena publication event: prefer
// currently running events, require an attached media object, and take the
// one with the latest start time.
func (p *ProgramsParser) publishEvent() *publicationEvent {
	events := lo.Filter(p.item().PublicationEvent, func(e publicationEvent, _ int) bool {
		return e.Service.ID == "yle-areena"
	})

	current := lo.Filter(events, func(e publicationEvent, _ int) bool {
		return e.TemporalStatus == "currently"
	})
	if len(current) > 0 {
		events = current
	}

	withMedia := lo.Filter(events, func(e publicationEvent, _ int) bool {
		return e.Media != nil
	})
	if len(withMedia) == 0 {
		return nil
	}
	sort.SliceStable(withMedia, func(i, j int) bool {
		return withMedia[i].StartTime > withMedia[j].StartTime
	})
	return &withMedia[0]
}

func (p *ProgramsParser) PublishTimestamp() *time.Time {
	if event := p.publishEvent(); event != nil {
		return ParseAreenaTimestamp(event.StartTime)
	}
	return nil
}

func (p *ProgramsParser) ExpirationTimestamp() *time.Time {
	if event := p.publishEvent(); event != nil {
		return ParseAreenaTimestamp(event.EndTime)
	}
	return nil
}

func (p *ProgramsParser) MediaID() string {
	if event := p.publishEvent(); event != nil && event.Media != nil {
		return event.Media.ID
	}
	return ""
}

func (p *ProgramsParser) AvailableAtRegion() string {
	if event := p.publishEvent(); event != nil {
		return event.Region
	}
	return ""
}

// DownloadURL returns the plain HTTP download URL, looking first at the
// selected publication event and then at the item itself.
func (p *ProgramsParser) DownloadURL() string {
	if event := p.publishEvent(); event != nil && event.Media != nil && event.Media.DownloadURL != "" {
		return event.Media.DownloadURL
	}
	return p.item().DownloadURL
}

func (p *ProgramsParser) IsPending() bool {
	event := p.publishEvent()
	return event != nil && event.TemporalStatus == "in-future"
}

func (p *ProgramsParser) IsExpired() bool {
	event := p.publishEvent()
	return event != nil && event.TemporalStatus == "in-past"
}
