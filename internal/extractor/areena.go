package extractor

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/localization"
	"github.com/famomatic/yledl/internal/title"
	"github.com/famomatic/yledl/internal/types"
)

// WebClient is the HTTP surface the extractors need.
type WebClient interface {
	GetJSON(ctx context.Context, url string, extraHeaders map[string]string, v any) error
	GetHTML(ctx context.Context, url string) (*goquery.Document, error)
}

// KalturaSource resolves mp4 renditions for a Kaltura entry.
type KalturaSource interface {
	MP4Flavors(ctx context.Context, entryID, referrer string) ([]types.StreamFlavor, error)
}

// Extractor turns a web page URL into downloadable clips.
type Extractor interface {
	// Playlist expands a series page into individual episode page URLs.
	// A non-series page yields itself.
	Playlist(ctx context.Context, url string, latestOnly bool) ([]string, error)

	// ExtractClip resolves one episode page into a clip. Failures are
	// reported as a clip whose only flavor carries the error.
	ExtractClip(ctx context.Context, clipURL, originURL string) *types.Clip
}

// ExtractClips expands a URL into its playlist and extracts every clip.
func ExtractClips(ctx context.Context, ex Extractor, pageURL string, latestOnly bool) ([]*types.Clip, error) {
	playlist, err := ex.Playlist(ctx, pageURL, latestOnly)
	if err != nil {
		return nil, err
	}
	clips := make([]*types.Clip, 0, len(playlist))
	for _, clipURL := range playlist {
		clips = append(clips, ex.ExtractClip(ctx, clipURL, pageURL))
	}
	return clips, nil
}

const (
	previewAppID  = "player_static_prod"
	previewAppKey = "8930d72170e48303cf5f3867780d549b"
)

// AreenaExtractor extracts clips from Areena program pages via the player
// preview API.
type AreenaExtractor struct {
	client  WebClient
	chooser *localization.TranslationChooser
	titles  *title.Formatter
	prober  FlavorProber
	kaltura KalturaSource
	logger  logrus.FieldLogger

	// overridden by the live TV/radio and article extractors
	programIDFromURL func(pageURL string) string
	playlist         func(ctx context.Context, pageURL string, latestOnly bool) ([]string, error)
}

// Config carries the collaborators shared by all extractors.
type Config struct {
	Client  WebClient
	Chooser *localization.TranslationChooser
	Titles  *title.Formatter
	Prober  FlavorProber
	Kaltura KalturaSource
	Logger  logrus.FieldLogger
}

// NewAreenaExtractor returns the extractor for regular Areena program and
// series pages.
func NewAreenaExtractor(cfg Config) *AreenaExtractor {
	e := newAreenaExtractor(cfg)
	e.programIDFromURL = areenaProgramID
	e.playlist = func(ctx context.Context, pageURL string, latestOnly bool) ([]string, error) {
		return NewPlaylistParser(e.client, e.logger).Playlist(ctx, pageURL, latestOnly)
	}
	return e
}

func newAreenaExtractor(cfg Config) *AreenaExtractor {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	chooser := cfg.Chooser
	if chooser == nil {
		chooser = localization.NewTranslationChooser("fin")
	}
	titles := cfg.Titles
	if titles == nil {
		titles = title.NewFormatter("")
	}
	prober := cfg.Prober
	if prober == nil {
		prober = NullProber{}
	}
	return &AreenaExtractor{
		client:  cfg.Client,
		chooser: chooser,
		titles:  titles,
		prober:  prober,
		kaltura: cfg.Kaltura,
		logger:  logger,
	}
}

func (e *AreenaExtractor) Playlist(ctx context.Context, pageURL string, latestOnly bool) ([]string, error) {
	return e.playlist(ctx, pageURL, latestOnly)
}

func (e *AreenaExtractor) ExtractClip(ctx context.Context, clipURL, originURL string) *types.Clip {
	pid := e.programIDFromURL(clipURL)
	if pid == "" {
		return types.NewFailedClip(clipURL, "Failed to parse a program ID", "")
	}

	info := e.programInfo(ctx, pid, clipURL)
	if info == nil {
		return types.NewFailedClip(clipURL, "Failed to download program data", pid)
	}

	return e.createClip(pid, info, clipURL, originURL)
}

// areenaProgramID parses the program id from an Areena page URL. Old style
// /tv/ohjelmat/ URLs carry the id in the play query parameter.
func areenaProgramID(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(parsed.Path, "/tv/ohjelmat/") {
		if play := parsed.Query().Get("play"); play != "" {
			return play
		}
	}
	return path.Base(parsed.Path)
}

func (e *AreenaExtractor) createClip(programID string, info *types.ProgramInfo, pageURL, originURL string) *types.Clip {
	var allStreams []types.Backend
	for _, fl := range info.Flavors {
		allStreams = append(allStreams, fl.Streams...)
	}
	allInvalid := len(allStreams) > 0
	for _, s := range allStreams {
		if s.IsValid() {
			allInvalid = false
			break
		}
	}

	var errorMessage string
	switch {
	case info.Pending:
		errorMessage = "Stream not yet available."
		if info.PublishTimestamp != nil {
			errorMessage += " Becomes available on " + info.PublishTimestamp.Format("2006-01-02T15:04:05-07:00")
		}
	case info.Expired:
		errorMessage = "This stream has expired"
	case allInvalid:
		errorMessage = allStreams[0].ErrorMessage()
	case len(info.Flavors) == 0:
		errorMessage = "Media not found"
	}

	if errorMessage != "" {
		failed := types.NewFailedClip(pageURL, errorMessage, programID)
		failed.Title = info.Title
		failed.Description = info.Description
		failed.DurationSeconds = info.DurationSeconds
		failed.Region = info.AvailableAtRegion
		failed.PublishTimestamp = info.PublishTimestamp
		failed.ExpirationTimestamp = info.ExpirationTimestamp
		return failed
	}

	return &types.Clip{
		WebURL:              pageURL,
		Flavors:             info.Flavors,
		Title:               info.Title,
		EpisodeTitle:        info.EpisodeTitle,
		Description:         info.Description,
		DurationSeconds:     info.DurationSeconds,
		Region:              info.AvailableAtRegion,
		PublishTimestamp:    info.PublishTimestamp,
		ExpirationTimestamp: info.ExpirationTimestamp,
		Subtitles:           info.Subtitles,
		ProgramID:           programID,
		OriginURL:           originURL,
		Thumbnail:           info.Thumbnail,
	}
}

func (e *AreenaExtractor) programInfo(ctx context.Context, pid, pageURL string) *types.ProgramInfo {
	preview, previewFound := e.downloadPreview(ctx, pid, pageURL)
	if preview == nil {
		preview = NewPreviewParser(previewDocument{})
	}

	// The catalog document has nothing extra to say about live channels.
	var programs *ProgramsParser
	if !preview.IsLive() {
		programs = e.downloadProgramsDocument(ctx, pid)
	}
	if !previewFound && programs == nil {
		return nil
	}

	publishTimestamp := programs.PublishTimestamp()
	if publishTimestamp == nil {
		publishTimestamp = preview.Timestamp()
	}

	// catalog metadata wins, the preview fills the gaps
	episodeTitle, seriesTitle := programs.TitleParts(e.chooser)
	previewTitle, previewSeries := preview.TitleParts(e.chooser)
	if episodeTitle == "" {
		episodeTitle = previewTitle
	}
	if seriesTitle == "" {
		seriesTitle = previewSeries
	}

	params := title.Params{
		Title:            episodeTitle,
		SeriesTitle:      seriesTitle,
		ProgramID:        pid,
		PublishTimestamp: publishTimestamp,
	}
	season, episode := programs.SeasonAndEpisode()
	if episode == 0 {
		if previewSeason, previewEpisode, hasEpisode := preview.SeasonAndEpisode(); hasEpisode {
			episode = previewEpisode
			if season == 0 {
				season = previewSeason
			}
		}
	}
	if episode > 0 && season == 0 {
		e.logger.Debug("checking the webpage for a season number")
		season = e.seasonNumberFromPage(ctx, pageURL)
	}
	params.Season = season
	params.Episode = episode

	formattedTitle := e.titles.Format(params)
	if formattedTitle == "" {
		formattedTitle = "areena"
	}
	simpleTitle := title.NewFormatter("${series}${title}").Format(params)

	mediaID := preview.MediaID()
	if mediaID == "" {
		mediaID = programs.MediaID()
	}
	isLive := isLiveMedia(mediaID) || preview.IsLive()
	downloadURL := ignoreInvalidDownloadURL(preview.MediaURL())
	if downloadURL == "" {
		downloadURL = ignoreInvalidDownloadURL(programs.DownloadURL())
	}

	var subtitles []types.Subtitle
	if isHTML5Media(mediaID) {
		subtitles = preview.Subtitles()
	}

	region := preview.AvailableAtRegion()
	if region == "" {
		region = programs.AvailableAtRegion()
	}
	if region == "" {
		region = "Finland"
	}

	description := programs.Description(e.chooser)
	if description == "" {
		description = preview.Description(e.chooser)
	}
	durationSeconds := programs.DurationSeconds()
	if durationSeconds == 0 {
		durationSeconds = preview.DurationSeconds()
	}

	return &types.ProgramInfo{
		MediaID:             mediaID,
		Title:               formattedTitle,
		EpisodeTitle:        simpleTitle,
		Description:         description,
		Flavors:             e.mediaFlavors(ctx, mediaID, preview.ManifestURL(), downloadURL, preview.MediaType(), isLive, pageURL),
		Thumbnail:           preview.ThumbnailURL(),
		Subtitles:           subtitles,
		DurationSeconds:     durationSeconds,
		AvailableAtRegion:   region,
		PublishTimestamp:    publishTimestamp,
		ExpirationTimestamp: programs.ExpirationTimestamp(),
		Pending:             preview.IsPending() || programs.IsPending(),
		Expired:             preview.IsExpired() || programs.IsExpired(),
	}
}

func (e *AreenaExtractor) downloadProgramsDocument(ctx context.Context, pid string) *ProgramsParser {
	programsURL := "https://programs.api.yle.fi/v1/id/" + pid + ".json?" +
		"app_id=" + programsAppID + "&app_key=" + programsAppKey

	var doc programsDocument
	if err := e.client.GetJSON(ctx, programsURL, nil, &doc); err != nil {
		e.logger.WithField("url", programsURL).WithError(err).Warn("failed to download the programs document")
		return nil
	}
	return NewProgramsParser(doc)
}

func (e *AreenaExtractor) downloadPreview(ctx context.Context, pid, pageURL string) (*PreviewParser, bool) {
	headers := map[string]string{
		"Referer": pageURL,
		"Origin":  "https://areena.yle.fi",
	}
	previewURL := "https://player.api.yle.fi/v1/preview/" + pid + ".json?" +
		"language=fin&ssl=true&countryCode=FI&host=areenaylefi" +
		"&app_id=" + previewAppID + "&app_key=" + previewAppKey +
		"&isPortabilityRegion=true"

	var doc previewDocument
	if err := e.client.GetJSON(ctx, previewURL, headers, &doc); err != nil {
		e.logger.WithField("url", previewURL).WithError(err).Warn("failed to download the preview document")
		return nil, false
	}
	return NewPreviewParser(doc), true
}

var seasonFromPageTitleRe = regexp.MustCompile(`K(\d+), J\d+`)

// seasonNumberFromPage digs the season number out of the HTML page title,
// e.g. "K2, J6". The preview API does not expose the season.
func (e *AreenaExtractor) seasonNumberFromPage(ctx context.Context, pageURL string) int {
	doc, err := e.client.GetHTML(ctx, pageURL)
	if err != nil {
		return 0
	}
	pageTitle := doc.Find("html > head > title").First().Text()
	if m := seasonFromPageTitleRe.FindStringSubmatch(pageTitle); m != nil {
		season, _ := strconv.Atoi(m[1])
		return season
	}
	return 0
}

// Media id prefixes of known hosting alternatives:
//
//	29-  the most common HTML5 media, also in Kaltura
//	84-  yleawsmpondemand-04.akamaized.net, April 2024
//	85-  ylekvodmod01.akamaized.net, also podcasts, Summer 2024
//	55-  full-HD media
//	10-  live streams
//	67-  yleawsmpodamdipv4.akamaized.net, June 2021
//	78-  mp3 podcasts, Spring 2023
//	6-   old Elävä Arkisto media, plain HTTP download only
func isHTML5Media(mediaID string) bool {
	return strings.HasPrefix(mediaID, "29-") ||
		strings.HasPrefix(mediaID, "84-") ||
		strings.HasPrefix(mediaID, "85-")
}

func isKalturaMedia(mediaID string) bool { return strings.HasPrefix(mediaID, "29-") }
func isArchiveMedia(mediaID string) bool { return strings.HasPrefix(mediaID, "6-") }
func isFullHDMedia(mediaID string) bool  { return strings.HasPrefix(mediaID, "55-") }
func isLiveMedia(mediaID string) bool    { return strings.HasPrefix(mediaID, "10-") }
func isMedia67(mediaID string) bool      { return strings.HasPrefix(mediaID, "67-") }
func isMP3Podcast(mediaID string) bool   { return strings.HasPrefix(mediaID, "78-") }

func kalturaEntryID(mediaID string) string {
	if _, entry, found := strings.Cut(mediaID, "-"); found {
		return entry
	}
	return mediaID
}

// ignoreInvalidDownloadURL drops download URLs that are missing the file
// name.
func ignoreInvalidDownloadURL(downloadURL string) string {
	if strings.HasSuffix(downloadURL, "/") {
		return ""
	}
	return downloadURL
}

func (e *AreenaExtractor) mediaFlavors(ctx context.Context, mediaID, manifestURL, downloadURL, mediaType string, isLive bool, pageURL string) []types.StreamFlavor {
	var flavors []types.StreamFlavor

	if downloadURL != "" {
		flavors = append(flavors, e.downloadFlavors(downloadURL, mediaType)...)
	}

	var manifestFlavors []types.StreamFlavor
	if mediaID != "" {
		manifestFlavors = e.flavorsByMediaID(ctx, mediaID, manifestURL, isLive)
	}
	if len(manifestFlavors) == 0 && manifestURL != "" {
		manifestFlavors = e.hlsFlavors(manifestURL, mediaType)
	}
	flavors = append(flavors, manifestFlavors...)

	if isKalturaMedia(mediaID) && e.kaltura != nil {
		// mp4 renditions for wget support, if Kaltura still has them
		kalturaFlavors, err := e.kaltura.MP4Flavors(ctx, kalturaEntryID(mediaID), pageURL)
		if err != nil {
			e.logger.WithError(err).Debug("Kaltura flavor request failed")
		} else {
			flavors = append(flavors, kalturaFlavors...)
		}
	}

	return flavors
}

func (e *AreenaExtractor) flavorsByMediaID(ctx context.Context, mediaID, manifestURL string, isLive bool) []types.StreamFlavor {
	switch {
	case isFullHDMedia(mediaID) || isLive:
		e.logger.Debug("detected a full-HD media")
		flavors := e.probeFlavors(ctx, manifestURL, isLive)
		if len(flavors) == 0 {
			return []types.StreamFlavor{types.FailedFlavor("Manifest URL is missing")}
		}
		return flavors
	case isHTML5Media(mediaID):
		e.logger.Debug("detected an HTML5 media")
		return e.probeFlavors(ctx, manifestURL, false)
	case isMedia67(mediaID) || isMP3Podcast(mediaID) || isArchiveMedia(mediaID):
		// media 67 streams are unsupported, podcasts and archive media
		// are served through the download URL flavor
		return nil
	case manifestURL != "":
		// fall-back for new media id types
		e.logger.Debug("detected a possible HLS media")
		return e.probeFlavors(ctx, manifestURL, false)
	default:
		return []types.StreamFlavor{types.FailedFlavor("Unknown stream flavor")}
	}
}

func (e *AreenaExtractor) probeFlavors(ctx context.Context, manifestURL string, isLive bool) []types.StreamFlavor {
	if manifestURL == "" {
		return nil
	}
	e.logger.Debug("probing for stream flavors")
	return e.prober.ProbeFlavors(ctx, manifestURL, isLive)
}

func (e *AreenaExtractor) hlsFlavors(manifestURL, mediaType string) []types.StreamFlavor {
	factory := execBackendFactory{logger: e.logger}
	var stream types.Backend
	if mediaType == types.MediaTypeVideo {
		stream = factory.dashHLSWithSubtitles(manifestURL)
	} else {
		stream = factory.HLSAudio(manifestURL)
	}
	return []types.StreamFlavor{{MediaType: mediaType, Streams: []types.Backend{stream}}}
}

func (e *AreenaExtractor) downloadFlavors(downloadURL, mediaType string) []types.StreamFlavor {
	ext := ""
	if parsed, err := url.Parse(downloadURL); err == nil {
		ext = path.Ext(parsed.Path)
	}
	stream := execBackendFactory{logger: e.logger}.Wget(downloadURL, ext)
	return []types.StreamFlavor{{MediaType: mediaType, Streams: []types.Backend{stream}}}
}
