// Package cli implements the yledl command line interface.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/famomatic/yledl/internal/httpx"
)

// options collects every command line flag.
type options struct {
	inputFile  string
	outputFile string

	showURL         bool
	showTitle       bool
	showEpisodePage bool
	showMetadata    bool
	pipe            bool

	outputTemplate string
	destDir        string
	createDirs     bool
	noCreateDirs   bool
	resume         bool
	noResume       bool
	noOverwrite    bool

	ratelimit   int
	proxy       string
	postprocess string
	xattrs      bool

	subLang       string
	metadataLang  string
	latestEpisode bool
	maxBitrate    string
	resolution    string
	startPosition int
	duration      int
	preferFormat  string

	backend string
	ffmpeg  string
	ffprobe string
	wget    string

	noSpaces   bool
	noSpecials bool
	vfat       bool

	verbose int
	quiet   int
	debug   bool

	configFile string

	exitCode int
}

func newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yledl [flags] URL",
		Short: "Download media files from Yle Areena and Elävä Arkisto",
		Long: fmt.Sprintf("yledl %s: Download media files from Yle Areena and Elävä Arkisto",
			httpx.Version),
		Version:       httpx.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfigFile(cmd, opts.configFile); err != nil {
				return err
			}
			return opts.run(cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.inputFile, "inputfile", "i", "",
		"Read input URLs to process from the named file, one URL per line")
	flags.StringVarP(&opts.outputFile, "output", "o", "",
		"Save stream to the named file")

	flags.BoolVar(&opts.showURL, "showurl", false, "Print stream URL, don't download")
	flags.BoolVar(&opts.showTitle, "showtitle", false, "Print stream title, don't download")
	flags.BoolVar(&opts.showEpisodePage, "showepisodepage", false, "Print web page for each episode")
	flags.BoolVar(&opts.showMetadata, "showmetadata", false, "Print metadata about available streams")
	flags.BoolVar(&opts.pipe, "pipe", false, "Dump stream to stdout for piping to media player")

	flags.StringVar(&opts.outputTemplate, "output-template", "",
		"Template for generating output file names")
	flags.StringVar(&opts.destDir, "destdir", "", "Save files to DIR")
	flags.BoolVar(&opts.createDirs, "create-dirs", false, "Create missing output directories")
	flags.BoolVar(&opts.noCreateDirs, "no-create-dirs", false, "Never create output directories")
	flags.BoolVar(&opts.resume, "resume", false, "Resume a partial download (default)")
	flags.BoolVar(&opts.noResume, "no-resume", false, "Restart the download from the beginning")
	flags.BoolVar(&opts.noOverwrite, "no-overwrite", false, "Quit if the output file already exists")

	flags.IntVar(&opts.ratelimit, "ratelimit", 0, "Maximum bandwidth consumption in kB/s")
	flags.StringVar(&opts.proxy, "proxy", "", "HTTPS proxy URL")
	flags.StringVar(&opts.postprocess, "postprocess", "",
		"Execute the command CMD after a successful download")
	flags.BoolVar(&opts.xattrs, "xattrs", false,
		"Store metadata to extended file attributes")

	flags.StringVar(&opts.subLang, "sublang", "all",
		"Download subtitles in language LANG, or \"all\" or \"none\"")
	flags.StringVar(&opts.metadataLang, "metadatalang", "",
		"Language of the metadata: fin or swe")
	flags.BoolVar(&opts.latestEpisode, "latestepisode", false,
		"Download the latest episode of a series")
	flags.StringVar(&opts.maxBitrate, "maxbitrate", "",
		"Maximum bitrate stream to download, integer in kB/s or \"best\" or \"worst\"")
	flags.StringVar(&opts.resolution, "resolution", "",
		"Maximum vertical resolution in pixels")
	flags.IntVar(&opts.startPosition, "startposition", 0,
		"Start recording at S seconds from the start of the stream")
	flags.IntVar(&opts.duration, "duration", 0,
		"Record only the first S seconds of the stream")
	flags.StringVar(&opts.preferFormat, "preferformat", "mkv",
		"Preferred video output format: mkv or mp4")

	flags.StringVar(&opts.backend, "backend", "",
		"Downloaders that are tried until one of them succeeds "+
			"(a comma-separated list)")
	flags.StringVar(&opts.ffmpeg, "ffmpeg", "", "Set the path of the ffmpeg executable")
	flags.StringVar(&opts.ffprobe, "ffprobe", "", "Set the path of the ffprobe executable")
	flags.StringVar(&opts.wget, "wget", "", "Set the path of the wget executable")

	flags.BoolVar(&opts.noSpaces, "restrict-filename-no-spaces", false,
		"Don't create file names with spaces")
	flags.BoolVar(&opts.noSpecials, "restrict-filename-no-specials", false,
		"Don't create file names with special characters")
	flags.BoolVar(&opts.vfat, "vfat", false,
		"Create file names compatible with VFAT filesystems")

	flags.CountVarP(&opts.verbose, "verbose", "V", "Increase output verbosity")
	flags.CountVarP(&opts.quiet, "quiet", "q", "Decrease output verbosity")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug output")

	flags.StringVar(&opts.configFile, "config", "", "Config file path")

	return cmd
}

// Execute runs the command and returns the process exit code.
func Execute() int {
	opts := &options{}
	cmd := newRootCommand(opts)
	if err := cmd.Execute(); err != nil {
		logrus.Error(err)
		return 1
	}
	return opts.exitCode
}

// applyConfigFile reads defaults for unset flags from the config file.
// Without an explicit path, yledl.yaml (or any format viper supports) is
// searched in $XDG_CONFIG_HOME and the home directory.
func applyConfigFile(cmd *cobra.Command, configFile string) error {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("yledl")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(xdg)
		} else if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		if configFile == "" && os.IsNotExist(err) {
			return nil
		}
		return err
	}
	logrus.Debugf("Parsed config file: %s", v.ConfigFileUsed())

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed && v.IsSet(f.Name) {
			if err := cmd.Flags().Set(f.Name, v.GetString(f.Name)); err != nil && bindErr == nil {
				bindErr = err
			}
		}
	})
	return bindErr
}
