package extractor

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	archiveURLRe = regexp.MustCompile(
		`^https?://yle\.fi/aihe/|^https?://svenska\.yle\.fi/artikel/|^https?://svenska\.yle\.fi/a/`)
	liveRadioURLRe = regexp.MustCompile(
		`^https?://areena\.yle\.fi/(audio/ohjelmat|podcastit/ohjelmat|radio/suorat)/[-a-zA-Z0-9]+`)
	newsURLRe   = regexp.MustCompile(`^https?://yle\.fi/(a|uutiset|urheilu|saa)/`)
	areenaURLRe = regexp.MustCompile(`^https?://(areena|arenan)\.yle\.fi/|^https?://yle\.fi/`)

	swedishURLRe = regexp.MustCompile(
		`^https?://arenan\.yle\.fi/|^https?://svenska\.yle\.fi/artikel/`)
)

// liveTVChannels maps the shorthand channel names accepted on the command
// line to preview API channel ids.
var liveTVChannels = map[string]string{
	"tv1":   "yle-tv1",
	"tv2":   "yle-tv2",
	"teema": "yle-teema-fem",
}

// ForURL returns the extractor matching an input URL, or nil for URLs that
// do not point to Yle media.
func ForURL(pageURL string, cfg Config) Extractor {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithField("url", pageURL)

	switch {
	case archiveURLRe.MatchString(pageURL):
		log.Debug("Elävä Arkisto URL")
		return NewArchiveExtractor(cfg)
	case liveRadioURLRe.MatchString(pageURL):
		log.Debug("live radio URL")
		return NewLiveRadioExtractor(cfg)
	case newsURLRe.MatchString(pageURL):
		log.Debug("news URL")
		return NewNewsExtractor(cfg)
	case areenaURLRe.MatchString(pageURL):
		log.Debug("Areena URL")
		return NewAreenaExtractor(cfg)
	}

	if channelID, ok := liveTVChannels[strings.ToLower(pageURL)]; ok {
		log.Debug("live TV channel")
		return NewLiveTVExtractor(cfg, channelID)
	}

	log.Debug("unrecognized URL")
	return nil
}

// PreferredLanguageForURL guesses the metadata language from the page URL.
// The Swedish language sites get Swedish titles.
func PreferredLanguageForURL(pageURL string) string {
	if swedishURLRe.MatchString(pageURL) {
		return "swe"
	}
	return "fin"
}
