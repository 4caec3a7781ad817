package extractor

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/types"
)

const (
	playlistAppID   = "areena-web-items"
	playlistAppKey  = "wlTs5D9OjIdeS9krPzRQR4I1PYVzoazN"
	playlistPageLen = 100
)

// PlaylistParser expands an Areena series page into a list of episode
// pages using the Areena list API.
type PlaylistParser struct {
	client WebClient
	logger logrus.FieldLogger
}

// NewPlaylistParser returns a playlist parser.
func NewPlaylistParser(client WebClient, logger logrus.FieldLogger) *PlaylistParser {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PlaylistParser{client: client, logger: logger}
}

// Playlist returns the episode page URLs of a series page in ascending
// episode order. A page that is not a series page yields itself.
func (p *PlaylistParser) Playlist(ctx context.Context, pageURL string, latestOnly bool) ([]string, error) {
	doc, err := p.client.GetHTML(ctx, pageURL)
	if err != nil {
		p.logger.WithField("url", pageURL).Warn("failed to download the page while looking for a playlist")
		return []string{pageURL}, nil
	}

	var data *types.PlaylistData
	switch {
	case p.isSeriesPage(doc):
		p.logger.Debug("TV playlist")
		data = p.parseSeriesPlaylist(doc)
	case p.isRadioSeriesPage(doc):
		p.logger.Debug("radio playlist")
		data = p.parseRadioPlaylist(doc)
	case p.packageID(doc) != "":
		p.logger.Debug("package playlist")
		data = p.parsePackagePlaylist(doc)
	default:
		p.logger.Debug("not a playlist")
		return []string{pageURL}, nil
	}

	if data == nil {
		return []string{pageURL}, nil
	}
	playlist := p.downloadPlaylistOrLatest(ctx, *data, latestOnly)
	p.logger.WithField("episodes", len(playlist)).Debug("playlist page")
	return playlist, nil
}

type nextData struct {
	Props struct {
		PageProps struct {
			Meta struct {
				Item struct {
					Type string `json:"type"`
				} `json:"item"`
			} `json:"meta"`
			SelectedTab string `json:"selectedTab"`
			View        struct {
				Tabs []nextDataTab `json:"tabs"`
			} `json:"view"`
		} `json:"pageProps"`
	} `json:"props"`
}

type nextDataTab struct {
	Type    string            `json:"type"`
	Slug    string            `json:"slug"`
	Title   *string           `json:"title"`
	Content []nextDataContent `json:"content"`
}

type nextDataContent struct {
	Title  string `json:"title"`
	Source struct {
		URI string `json:"uri"`
	} `json:"source"`
	Filters []struct {
		Options []struct {
			Parameters map[string]string `json:"parameters"`
		} `json:"options"`
	} `json:"filters"`
}

func (p *PlaylistParser) decodeNextData(doc *goquery.Document) *nextData {
	text := doc.Find(`script#__NEXT_DATA__`).First().Text()
	if text == "" {
		return nil
	}
	var data nextData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil
	}
	return &data
}

func (p *PlaylistParser) isSeriesPage(doc *goquery.Document) bool {
	data := p.decodeNextData(doc)
	if data == nil {
		return false
	}
	switch data.Props.PageProps.Meta.Item.Type {
	case "TVSeries", "TVSeason", "TVView", "RadioSeries", "Package":
		return true
	}
	return false
}

func (p *PlaylistParser) isRadioSeriesPage(doc *goquery.Document) bool {
	isRadioPage := doc.Find(`div[class*="RadioPlayer"]`).Length() > 0
	if !isRadioPage {
		return false
	}
	episodeModal := doc.Find(`div[class^="EpisodeModal"]`).Length() > 0
	playButton := doc.Find(`main button[class^="PlayButton"]`).Length() > 0
	return !episodeModal && !playButton
}

func (p *PlaylistParser) parseSeriesPlaylist(doc *goquery.Document) *types.PlaylistData {
	data := p.decodeNextData(doc)
	if data == nil {
		return nil
	}
	pageProps := data.Props.PageProps
	tabs := pageProps.View.Tabs

	selectedTab := pageProps.SelectedTab
	if selectedTab == "" && len(tabs) > 0 {
		selectedTab = tabs[0].Slug
	}
	if selectedTab == "" {
		selectedTab = "jaksot"
	}
	if pd := p.parseEpisodesTab(tabs, selectedTab); pd != nil {
		return pd
	}
	return p.parseEpisodesTab(tabs, "")
}

func (p *PlaylistParser) parseEpisodesTab(tabs []nextDataTab, tabSlug string) *types.PlaylistData {
	var episodesTabs []nextDataTab
	if tabSlug != "" {
		episodesTabs = lo.Filter(tabs, func(t nextDataTab, _ int) bool {
			return t.Slug == tabSlug
		})
	} else {
		episodesTabs = lo.Filter(tabs, func(t nextDataTab, _ int) bool {
			return t.Type == "tab" && t.Title == nil
		})
	}

	if len(episodesTabs) == 0 || len(episodesTabs[0].Content) == 0 {
		return nil
	}
	content := episodesTabs[0].Content[0]
	if content.Title == "Katso myös" || content.Title == "Kuuntele myös" {
		return nil
	}
	if content.Source.URI == "" {
		return nil
	}

	var seasonParameters []map[string]string
	if len(content.Filters) > 0 {
		for _, opt := range content.Filters[0].Options {
			seasonParameters = append(seasonParameters, opt.Parameters)
		}
	}
	return &types.PlaylistData{
		BaseURL:          content.Source.URI,
		SeasonParameters: seasonParameters,
	}
}

func (p *PlaylistParser) parsePackagePlaylist(doc *goquery.Document) *types.PlaylistData {
	packageTag, exists := doc.Find(`div.package-view`).First().Attr("data-view")
	if !exists {
		return nil
	}
	var packageData struct {
		Tabs []struct {
			Content []nextDataContent `json:"content"`
		} `json:"tabs"`
	}
	if err := json.Unmarshal([]byte(packageTag), &packageData); err != nil {
		return nil
	}
	if len(packageData.Tabs) == 0 || len(packageData.Tabs[0].Content) == 0 {
		return nil
	}
	uri := packageData.Tabs[0].Content[0].Source.URI
	if uri == "" {
		return nil
	}
	return &types.PlaylistData{BaseURL: uri}
}

func (p *PlaylistParser) parseRadioPlaylist(doc *goquery.Document) *types.PlaylistData {
	var stateText string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), "window.STORE_STATE_FROM_SERVER") {
			stateText = s.Text()
			return false
		}
		return true
	})
	if stateText == "" {
		return nil
	}

	_, jsonText, found := strings.Cut(stateText, "=")
	if !found {
		return nil
	}
	var state struct {
		ViewStore struct {
			ViewPageView struct {
				Tabs []struct {
					Title      string `json:"title"`
					AllContent []struct {
						Source struct {
							URI string `json:"uri"`
						} `json:"source"`
					} `json:"allContent"`
				} `json:"tabs"`
			} `json:"viewPageView"`
		} `json:"viewStore"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(jsonText)), &state); err != nil {
		return nil
	}

	for _, tab := range state.ViewStore.ViewPageView.Tabs {
		if tab.Title != "Jaksot" && tab.Title != "Avsnitt" {
			continue
		}
		if len(tab.AllContent) > 0 && tab.AllContent[0].Source.URI != "" {
			return &types.PlaylistData{BaseURL: tab.AllContent[0].Source.URI}
		}
	}
	return nil
}

func (p *PlaylistParser) packageID(doc *goquery.Document) string {
	id, _ := doc.Find("html > body").First().Attr("data-package-id")
	return id
}

func (p *PlaylistParser) downloadPlaylistOrLatest(ctx context.Context, data types.PlaylistData, latestOnly bool) []string {
	seasonURLs := data.SeasonPlaylistURLs()
	firstSeason := 1
	if latestOnly && len(seasonURLs) > 1 {
		// the latest episode belongs to the latest season
		firstSeason = len(seasonURLs)
		seasonURLs = seasonURLs[len(seasonURLs)-1:]
	}

	playlist := p.downloadPlaylist(ctx, seasonURLs, firstSeason)

	// If most episodes do not have an episode number, use time based
	// sorting instead.
	if episodeNumbersAreRare(playlist) && timestampsAreCommon(playlist) {
		playlist = lo.Map(playlist, func(e types.EpisodeMetadata, _ int) types.EpisodeMetadata {
			return e.WithoutEpisodeNumber()
		})
	}

	// The API may return the episodes in either order, and date-only
	// metadata cannot order intra-day episodes. Reversing a descending
	// playlist keeps intra-day episodes in ascending order.
	if isDescendingDateBasedPlaylist(playlist) {
		playlist = lo.Reverse(playlist)
	}

	sort.SliceStable(playlist, func(i, j int) bool {
		return playlist[i].Less(playlist[j])
	})

	// The list API cannot return just the latest episode; download
	// everything and pick the last one.
	if latestOnly && len(playlist) > 1 {
		playlist = playlist[len(playlist)-1:]
	}

	return lo.Map(playlist, func(e types.EpisodeMetadata, _ int) string {
		return e.URI
	})
}

func episodeNumbersAreRare(playlist []types.EpisodeMetadata) bool {
	numbered := lo.CountBy(playlist, func(e types.EpisodeMetadata) bool {
		return e.EpisodeNumber > 0
	})
	return float64(numbered) < 0.5*float64(len(playlist))
}

func timestampsAreCommon(playlist []types.EpisodeMetadata) bool {
	dated := lo.CountBy(playlist, func(e types.EpisodeMetadata) bool {
		return e.ReleaseDate != nil
	})
	return float64(dated) > 0.8*float64(len(playlist))
}

func isDescendingDateBasedPlaylist(playlist []types.EpisodeMetadata) bool {
	for _, e := range playlist {
		if e.EpisodeNumber > 0 {
			return false
		}
	}

	var prev *time.Time
	for _, e := range playlist {
		if prev != nil && e.ReleaseDate != nil && e.ReleaseDate.Before(*prev) {
			return true
		}
		prev = e.ReleaseDate
	}
	return false
}

func (p *PlaylistParser) downloadPlaylist(ctx context.Context, seasonURLs []string, firstSeason int) []types.EpisodeMetadata {
	var playlist []types.EpisodeMetadata
	for i, seasonURL := range seasonURLs {
		seasonNumber := firstSeason + i
		offset := 0
		for {
			p.logger.WithFields(logrus.Fields{
				"season": seasonNumber,
				"size":   playlistPageLen,
				"offset": offset,
			}).Debug("getting a playlist page")

			// The server fails with 502 when the page size is over 100
			pageURL := types.UpdateURLQuery(seasonURL, map[string]string{
				"offset":  strconv.Itoa(offset),
				"limit":   strconv.Itoa(playlistPageLen),
				"app_id":  playlistAppID,
				"app_key": playlistAppKey,
			})
			page, err := p.episodePage(ctx, pageURL, seasonNumber)
			if err != nil {
				p.logger.WithField("offset", offset).Warn(
					"Playlist failed. Some episodes may be missing!")
				break
			}

			playlist = append(playlist, page...)
			offset += len(page)
			if len(page) < playlistPageLen {
				break
			}
		}
	}
	return playlist
}

type playlistAPIPage struct {
	Data []playlistAPIItem `json:"data"`
}

type playlistAPIItem struct {
	Title   string `json:"title"`
	Pointer struct {
		URI string `json:"uri"`
	} `json:"pointer"`
	Labels []struct {
		Type      string `json:"type"`
		Formatted string `json:"formatted"`
		Raw       string `json:"raw"`
	} `json:"labels"`
}

func (p *PlaylistParser) episodePage(ctx context.Context, pageURL string, seasonNumber int) ([]types.EpisodeMetadata, error) {
	var page playlistAPIPage
	if err := p.client.GetJSON(ctx, pageURL, nil, &page); err != nil {
		return nil, err
	}

	episodes := make([]types.EpisodeMetadata, 0, len(page.Data))
	for _, item := range page.Data {
		uri := episodeURI(item)
		if uri == "" {
			continue
		}
		episodes = append(episodes, types.EpisodeMetadata{
			URI:           uri,
			SeasonNumber:  seasonNumber,
			EpisodeNumber: episodeNumber(item),
			ReleaseDate:   releaseDate(item),
		})
	}
	return episodes, nil
}

func episodeURI(item playlistAPIItem) string {
	programURI := item.Pointer.URI
	if programURI == "" {
		return ""
	}
	parts := strings.Split(programURI, "/")
	return "https://areena.yle.fi/" + parts[len(parts)-1]
}

var episodeNumberRe = regexp.MustCompile(`(?i)^Jakso (\d+)`)

// episodeNumber parses the episode number from the title, the only place
// the list API exposes it.
func episodeNumber(item playlistAPIItem) int {
	if m := episodeNumberRe.FindStringSubmatch(item.Title); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

var tvReleaseDateRe = regexp.MustCompile(`^[a-z]{2} (\d{1,2})\.(\d{1,2})\.(\d{4})`)

func releaseDate(item playlistAPIItem) *time.Time {
	// TV pages: a generic label like "pe 15.3.2019"
	for _, label := range item.Labels {
		if label.Type != "generic" || label.Formatted == "" {
			continue
		}
		if m := tvReleaseDateRe.FindStringSubmatch(label.Formatted); m != nil {
			day, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			year, _ := strconv.Atoi(m[3])
			ts := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			return &ts
		}
	}
	// radio pages: a raw releaseDate label
	for _, label := range item.Labels {
		if label.Type == "releaseDate" && label.Raw != "" {
			return ParseAreenaTimestamp(label.Raw)
		}
	}
	return nil
}
