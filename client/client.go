// Package client is the high-level interface for downloading media from
// Yle Areena, Elävä Arkisto and the Yle news sites.
package client

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/httpx"
	"github.com/famomatic/yledl/internal/orchestrator"
	"github.com/famomatic/yledl/internal/title"
	"github.com/famomatic/yledl/internal/types"
)

// ExitCode is the result of a download action, usable as a process exit
// code.
type ExitCode int

const (
	ExitSuccess    ExitCode = 0
	ExitFailed     ExitCode = 1
	ExitIncomplete ExitCode = 2
)

// Client downloads Yle streams and queries their metadata.
type Client struct {
	config        Config
	xForwardedFor string
	titles        *title.Formatter
	downloader    *orchestrator.Downloader
	logger        logrus.FieldLogger
}

// New creates a client.
func New(config Config) (*Client, error) {
	logger := config.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	xForwardedFor := config.XForwardedFor
	if xForwardedFor == "" {
		xForwardedFor = httpx.RandomElisaIPv4()
	}

	httpClient, err := httpx.New(httpx.Options{
		Proxy:         config.Proxy,
		XForwardedFor: xForwardedFor,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	titles := title.NewFormatter(config.OutputTemplate)
	return &Client{
		config:        config,
		xForwardedFor: xForwardedFor,
		titles:        titles,
		downloader:    orchestrator.New(httpClient, titles, logger),
		logger:        logger,
	}, nil
}

// Download saves every clip behind pageURL to files.
func (c *Client) Download(ctx context.Context, pageURL string, opts Options) ExitCode {
	opts = c.applyURLDefaults(pageURL, opts)
	code := c.downloader.DownloadClips(ctx, pageURL, c.ioContext(opts), c.streamFilters(opts))
	return ExitCode(code)
}

// Pipe writes the first clip behind pageURL to stdout.
func (c *Client) Pipe(ctx context.Context, pageURL string, opts Options) ExitCode {
	opts = c.applyURLDefaults(pageURL, opts)
	opts.OutputFilename = "-"
	code := c.downloader.Pipe(ctx, pageURL, c.ioContext(opts), c.streamFilters(opts))
	return ExitCode(code)
}

// StreamURLs returns the direct stream URL of every clip behind pageURL.
func (c *Client) StreamURLs(ctx context.Context, pageURL string, opts Options) []string {
	return c.downloader.GetURLs(ctx, pageURL, c.ioContext(opts), c.streamFilters(opts))
}

// Titles returns the generated output title of every clip behind pageURL.
func (c *Client) Titles(ctx context.Context, pageURL string, opts Options) []string {
	return c.downloader.GetTitles(ctx, pageURL, c.ioContext(opts), opts.LatestOnly)
}

// EpisodePages returns the episode page URLs of a series page.
func (c *Client) EpisodePages(ctx context.Context, pageURL string, opts Options) []string {
	return c.downloader.GetEpisodePages(ctx, pageURL, c.ioContext(opts))
}

// MetadataJSON returns the metadata of every clip behind pageURL as an
// indented JSON array.
func (c *Client) MetadataJSON(ctx context.Context, pageURL string, opts Options) ([]byte, error) {
	metadata := c.downloader.GetMetadata(ctx, pageURL, c.ioContext(opts), c.streamFilters(opts))
	if metadata == nil {
		metadata = []types.ClipMetadata{}
	}
	return json.MarshalIndent(metadata, "", "  ")
}

// applyURLDefaults fills in options that can be carried by the URL, like
// the ?seek= start position on Areena pages.
func (c *Client) applyURLDefaults(pageURL string, opts Options) Options {
	if opts.StartPosition == 0 {
		if seek := startPositionFromURL(pageURL); seek > 0 {
			opts.StartPosition = seek
		}
	}
	return opts
}

func (c *Client) ioContext(opts Options) *types.IOContext {
	excludeChars := opts.ExcludeChars
	if excludeChars == "" {
		excludeChars = "*/|"
	}
	subtitles := opts.SubLang
	if subtitles == "" {
		subtitles = "all"
	}
	io := types.DefaultIOContext()
	io.OutputFilename = opts.OutputFilename
	io.PreferredFormat = opts.PreferredFormat
	io.DestDir = opts.DestDir
	io.Resume = opts.Resume
	io.Overwrite = !opts.NoOverwrite
	io.DownloadLimits = types.DownloadLimits{
		StartPosition: opts.StartPosition,
		Duration:      opts.Duration,
		Ratelimit:     opts.Ratelimit,
	}
	io.ExcludeChars = excludeChars
	io.Proxy = c.config.Proxy
	io.XForwardedFor = c.xForwardedFor
	io.Subtitles = subtitles
	io.MetadataLanguage = opts.MetadataLanguage
	io.PostprocessCmd = opts.PostprocessCmd
	io.CreateDirs = opts.CreateDirs
	io.Xattr = opts.Xattr
	if opts.FfmpegBinary != "" {
		io.FfmpegBinary = opts.FfmpegBinary
	}
	if opts.FfprobeBinary != "" {
		io.FfprobeBinary = opts.FfprobeBinary
	}
	if opts.WgetBinary != "" {
		io.WgetBinary = opts.WgetBinary
	}
	return io
}

func (c *Client) streamFilters(opts Options) types.StreamFilters {
	filters := types.DefaultStreamFilters()
	filters.LatestOnly = opts.LatestOnly
	filters.MaxHeight = opts.MaxHeight
	filters.MaxBitrate = opts.MaxBitrate
	if len(opts.Backends) > 0 {
		filters.EnabledBackends = opts.Backends
	}
	if opts.SubLang != "" {
		filters.SubLang = opts.SubLang
	}
	return filters
}
