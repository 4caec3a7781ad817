// Package orchestrator drives the download of one input URL: it expands
// playlists, extracts clips, selects streams and runs the backends with
// retry and fallback.
package orchestrator

import (
	"context"
	"errors"
	"os/exec"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/backend"
	"github.com/famomatic/yledl/internal/extractor"
	"github.com/famomatic/yledl/internal/filesystem"
	"github.com/famomatic/yledl/internal/localization"
	"github.com/famomatic/yledl/internal/selector"
	"github.com/famomatic/yledl/internal/title"
	"github.com/famomatic/yledl/internal/types"
)

const maxRetryCount = 3

// HTTPClient is the transport shared by the extractors and the geo check.
type HTTPClient interface {
	extractor.WebClient
	extractor.KalturaAPIClient
	Get(ctx context.Context, url string, extraHeaders map[string]string) ([]byte, error)
}

// geoLocator is the geo restriction checker.
type geoLocator interface {
	LocatedInFinland(ctx context.Context, referrer string) bool
}

// extractorFactory builds the extractor for an input URL. Nil means the
// URL is not supported.
type extractorFactory func(pageURL string, cfg extractor.Config) extractor.Extractor

// Downloader executes download, pipe and query actions on input URLs.
type Downloader struct {
	client  HTTPClient
	titles  *title.Formatter
	streams *selector.StreamSelector
	geo     geoLocator
	logger  logrus.FieldLogger
	forURL  extractorFactory
}

// New returns a downloader using the given transport and title template.
func New(client HTTPClient, titles *title.Formatter, logger logrus.FieldLogger) *Downloader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if titles == nil {
		titles = title.NewFormatter("")
	}
	return &Downloader{
		client:  client,
		titles:  titles,
		streams: selector.New(logger),
		geo:     NewGeoLocator(client, logger),
		logger:  logger,
		forURL:  extractor.ForURL,
	}
}

// DownloadClips downloads every clip behind baseURL into files.
func (d *Downloader) DownloadClips(ctx context.Context, baseURL string, io *types.IOContext, filters types.StreamFilters) types.RDCode {
	ex := d.extractor(baseURL, io, filters, d.createProber(io, filters))
	if ex == nil {
		d.logUnsupportedURL(baseURL)
		return types.RDFailed
	}

	playlist, err := ex.Playlist(ctx, baseURL, filters.LatestOnly)
	if err != nil {
		d.logger.WithError(err).Error("Failed to read the playlist")
		return types.RDFailed
	}

	if len(playlist) > 1 && io.OutputFilename != "" {
		d.logger.Error("The source is a playlist with multiple clips, " +
			"but only one output file specified")
		return types.RDFailed
	}
	if len(playlist) > 1 && d.titles.IsConstant() {
		d.logger.Errorf("The source is a playlist with multiple clips, "+
			"but --output-template is a literal: %s", d.titles.Template())
		return types.RDFailed
	}
	if len(playlist) == 0 {
		d.logger.Info("No streams found")
	}

	overall := types.RDSuccess
	for _, clipURL := range playlist {
		res := d.downloadWithRetry(ctx, clipURL, baseURL, ex, filters, io)
		if res != types.RDSuccess && overall != types.RDFailed {
			overall = res
		}
	}
	return overall
}

// Pipe writes the first clip behind baseURL to stdout.
func (d *Downloader) Pipe(ctx context.Context, baseURL string, io *types.IOContext, filters types.StreamFilters) types.RDCode {
	ex := d.extractor(baseURL, io, filters, d.createProber(io, filters))
	if ex == nil {
		d.logUnsupportedURL(baseURL)
		return types.RDFailed
	}

	playlist, err := ex.Playlist(ctx, baseURL, false)
	if err != nil || len(playlist) == 0 {
		d.logger.Error("No streams found")
		return types.RDSuccess
	}

	// Only one stream fits in a pipe. Extra playlist entries are dropped.
	clip := ex.ExtractClip(ctx, playlist[0], baseURL)
	return d.pipeFirstAvailableStream(ctx, clip, filters, io)
}

// GetURLs returns the stream URL of the best flavor of every clip.
func (d *Downloader) GetURLs(ctx context.Context, baseURL string, io *types.IOContext, filters types.StreamFilters) []string {
	clips := d.extractAll(ctx, baseURL, io, filters, d.createProber(io, filters))
	var urls []string
	for _, clip := range clips {
		streams := d.streams.SelectStreams(clip.Flavors, filters)
		if valid, ok := lo.Find(streams, func(s types.Backend) bool { return s.IsValid() }); ok {
			urls = append(urls, valid.StreamURL())
		}
	}
	return urls
}

// GetTitles returns the output file title of every clip.
func (d *Downloader) GetTitles(ctx context.Context, baseURL string, io *types.IOContext, latestOnly bool) []string {
	// No stream data is needed for titles, so skip the slow probe.
	filters := types.DefaultStreamFilters()
	filters.LatestOnly = latestOnly
	clips := d.extractAll(ctx, baseURL, io, filters, extractor.NullProber{})
	return lo.Map(clips, func(clip *types.Clip, _ int) string {
		return types.SaneFilename(clip.Title, io.ExcludeChars)
	})
}

// GetMetadata returns the metadata document of every clip.
func (d *Downloader) GetMetadata(ctx context.Context, baseURL string, io *types.IOContext, filters types.StreamFilters) []types.ClipMetadata {
	clips := d.extractAll(ctx, baseURL, io, filters, d.createProber(io, filters))
	return lo.Map(clips, func(clip *types.Clip, _ int) types.ClipMetadata {
		return clip.Metadata(io)
	})
}

// GetEpisodePages returns the episode page URLs behind baseURL.
func (d *Downloader) GetEpisodePages(ctx context.Context, baseURL string, io *types.IOContext) []string {
	ex := d.extractor(baseURL, io, types.DefaultStreamFilters(), extractor.NullProber{})
	if ex == nil {
		d.logUnsupportedURL(baseURL)
		return nil
	}
	playlist, err := ex.Playlist(ctx, baseURL, false)
	if err != nil {
		d.logger.WithError(err).Error("Failed to read the playlist")
		return nil
	}
	return playlist
}

func (d *Downloader) extractAll(ctx context.Context, baseURL string, io *types.IOContext, filters types.StreamFilters, prober extractor.FlavorProber) []*types.Clip {
	ex := d.extractor(baseURL, io, filters, prober)
	if ex == nil {
		d.logUnsupportedURL(baseURL)
		return nil
	}
	clips, err := extractor.ExtractClips(ctx, ex, baseURL, filters.LatestOnly)
	if err != nil {
		d.logger.WithError(err).Error("Failed to read the playlist")
		return nil
	}
	return clips
}

func (d *Downloader) extractor(baseURL string, io *types.IOContext, filters types.StreamFilters, prober extractor.FlavorProber) extractor.Extractor {
	return d.forURL(baseURL, extractor.Config{
		Client:  d.client,
		Chooser: d.languageChooser(baseURL, io),
		Titles:  d.titles,
		Prober:  prober,
		Kaltura: extractor.NewKalturaSource(d.client, d.logger),
		Logger:  d.logger,
	})
}

// createProber returns the full HD prober only when ffmpeg is enabled,
// since probing runs the ffprobe binary.
func (d *Downloader) createProber(io *types.IOContext, filters types.StreamFilters) extractor.FlavorProber {
	if lo.Contains(filters.EnabledBackends, types.BackendFfmpeg) {
		return extractor.NewFullHDFlavorProber(io.FfprobeBinary, io.XForwardedFor, d.logger)
	}
	return extractor.NullProber{}
}

func (d *Downloader) languageChooser(baseURL string, io *types.IOContext) *localization.TranslationChooser {
	lang := io.MetadataLanguage
	if lang == "" {
		lang = extractor.PreferredLanguageForURL(baseURL)
	}
	return localization.NewTranslationChooser(lang)
}

func (d *Downloader) downloadWithRetry(ctx context.Context, clipURL, baseURL string, ex extractor.Extractor, filters types.StreamFilters, io *types.IOContext) types.RDCode {
	latest := types.RDFailed
	for attempt := 0; attempt <= maxRetryCount; attempt++ {
		if attempt > 0 {
			d.logger.Infof("Retry attempt %d of %d", attempt, maxRetryCount)
		}

		clip := ex.ExtractClip(ctx, clipURL, baseURL)
		var transient *types.TransientError
		res, err := d.downloadFirstAvailableStream(ctx, clip, filters, io)
		if errors.As(err, &transient) {
			d.logger.Warn(transient.Message)
			latest = types.RDFailed
			continue
		}
		if err != nil {
			d.logger.WithError(err).Error("Download failed")
			return types.RDFailed
		}
		return res
	}
	return latest
}

func (d *Downloader) downloadFirstAvailableStream(ctx context.Context, clip *types.Clip, filters types.StreamFilters, io *types.IOContext) (types.RDCode, error) {
	streams := d.streams.SelectStreams(clip.Flavors, filters)
	valid := lo.Filter(streams, func(s types.Backend, _ int) bool { return s.IsValid() })

	if len(streams) == 0 {
		d.logger.Error("No stream found")
		return types.RDFailed, nil
	}
	if len(valid) == 0 {
		d.logger.Errorf("Unsupported stream: %s", streams[0].ErrorMessage())
		d.printGeoWarning(ctx, clip)
		return types.RDFailed, nil
	}

	return d.downloadStream(ctx, valid, clip, io)
}

func (d *Downloader) downloadStream(ctx context.Context, validStreams []types.Backend, clip *types.Clip, io *types.IOContext) (types.RDCode, error) {
	for _, stream := range validStreams {
		d.logger.WithField("backend", stream.Name()).Debug("now trying downloader")

		outputFile, err := d.generateOutputName(clip.Title, stream, io)
		if err != nil {
			d.logger.Error(err)
			return types.RDFailed, nil
		}

		res, err := d.saveToFile(ctx, clip, stream, io, outputFile)
		if isMissingApplication(err) {
			// The downloader failed to start. Try the next backend.
			continue
		}
		return res, err
	}

	// all backends failed
	return types.RDFailed, nil
}

// isMissingApplication reports errors where switching to another backend
// may still succeed.
func isMissingApplication(err error) bool {
	var appErr *types.ExternalApplicationError
	return errors.As(err, &appErr) ||
		errors.Is(err, types.ErrFfmpegNotFound) ||
		errors.Is(err, exec.ErrNotFound)
}

func (d *Downloader) generateOutputName(clipTitle string, stream types.Backend, io *types.IOContext) (string, error) {
	extension := stream.FileExtension(io.PreferredFormat)
	return types.OutputFileNameGenerator{}.Filename(clipTitle, extension, io)
}

func (d *Downloader) saveToFile(ctx context.Context, clip *types.Clip, stream types.Backend, io *types.IOContext, outputFile string) (types.RDCode, error) {
	backend.WarnOnUnsupportedFeature(stream.Capabilities(), io, d.logger)

	if outputFile == "" {
		return types.RDFailed, nil
	}

	if d.shouldSkipDownloading(outputFile, stream, clip, io) {
		d.logger.Infof("%s has already been downloaded.", outputFile)
		return types.RDSuccess, nil
	}

	d.logOutputFile(outputFile, false)
	res, err := stream.SaveStream(ctx, outputFile, clip, io)
	if err != nil {
		return res, err
	}

	if res == types.RDSuccess {
		d.logOutputFile(outputFile, true)
		if io.Xattr {
			d.setExtendedFileAttributes(outputFile, clip.Metadata(io), clip.OriginURL)
		}
		d.postprocess(ctx, io.PostprocessCmd, outputFile, nil)
	}
	return res, nil
}

func (d *Downloader) shouldSkipDownloading(outputFile string, stream types.Backend, clip *types.Clip, io *types.IOContext) bool {
	if !io.Overwrite {
		if exists, _ := filesystem.API().Exists(outputFile); exists {
			return true
		}
	}
	return !io.DownloadLimits.SlicingActive() &&
		stream.FullStreamAlreadyDownloaded(outputFile, clip, io)
}

func (d *Downloader) pipeFirstAvailableStream(ctx context.Context, clip *types.Clip, filters types.StreamFilters, io *types.IOContext) types.RDCode {
	streams := d.streams.SelectStreams(clip.Flavors, filters)
	valid := lo.Filter(streams, func(s types.Backend, _ int) bool { return s.IsValid() })

	if len(streams) == 0 {
		d.logger.Error("No stream found")
		return types.RDFailed
	}
	if len(valid) == 0 {
		d.logger.Errorf("Unsupported stream: %s", streams[0].ErrorMessage())
		d.printGeoWarning(ctx, clip)
		return types.RDFailed
	}

	for _, stream := range valid {
		d.logger.WithField("backend", stream.Name()).Debug("now trying downloader")
		backend.WarnOnUnsupportedFeature(stream.Capabilities(), io, d.logger)

		res, err := stream.Pipe(ctx, io)
		if isMissingApplication(err) {
			continue
		}
		if err != nil {
			d.logger.WithError(err).Error("Pipe failed")
			return types.RDFailed
		}
		return res
	}
	return types.RDFailed
}

// printGeoWarning explains a failed stream when the clip is limited to
// Finland and the user appears to be abroad.
func (d *Downloader) printGeoWarning(ctx context.Context, clip *types.Clip) {
	if (clip.Region == "Finland" || clip.Region == "") &&
		!d.geo.LocatedInFinland(ctx, clip.WebURL) {
		d.logger.Error("This clip is only available in Finland " +
			"and according to Yle you are located abroad")
	}
}

func (d *Downloader) logOutputFile(outputFile string, done bool) {
	if outputFile == "" || outputFile == "-" {
		return
	}
	if done {
		d.logger.Infof("Stream saved to %s", outputFile)
	} else {
		d.logger.Infof("Output file: %s", outputFile)
	}
}

func (d *Downloader) postprocess(ctx context.Context, command, videoFile string, subtitleFiles []string) {
	if command == "" {
		return
	}
	args := append([]string{command, videoFile}, subtitleFiles...)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if err := cmd.Run(); err != nil {
		d.logger.WithError(err).Warnf("Postprocessing command failed: %s", command)
	}
}

func (d *Downloader) logUnsupportedURL(url string) {
	d.logger.Errorf("Unsupported URL %s.", url)
	d.logger.Error("If you think yledl should support this page, open a " +
		"bug report at https://github.com/famomatic/yledl/issues")
}
