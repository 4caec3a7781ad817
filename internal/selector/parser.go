package selector

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/types"
)

// ParseMaxBitrate parses the --maxbitrate argument: an integer in kB/s,
// "best" or "worst". An invalid value falls back to best with a warning.
func ParseMaxBitrate(arg string, logger logrus.FieldLogger) int {
	switch arg {
	case "":
		return types.Unlimited
	case "best":
		return 999999
	case "worst":
		return 0
	}
	bitrate, err := strconv.Atoi(arg)
	if err != nil {
		logger.Warnf("Invalid bitrate %s, defaulting to best", arg)
		return 999999
	}
	return bitrate
}

// ParseResolution parses the --resolution argument, a vertical resolution
// in pixels with an optional "p" suffix.
func ParseResolution(arg string, logger logrus.FieldLogger) int {
	if arg == "" {
		return types.Unlimited
	}
	trimmed := arg
	if strings.HasSuffix(trimmed, "p") {
		if _, err := strconv.Atoi(trimmed[:len(trimmed)-1]); err == nil {
			trimmed = trimmed[:len(trimmed)-1]
		}
	}
	height, err := strconv.Atoi(trimmed)
	if err != nil {
		logger.Warnf("Invalid resolution: %s", arg)
		return types.Unlimited
	}
	return height
}

// ParseBackends validates a comma separated backend preference list.
// Unknown names are reported; at least one name must be valid.
func ParseBackends(arg string, logger logrus.FieldLogger) []string {
	if arg == "" {
		return types.DefaultBackends()
	}
	var backends []string
	for _, name := range strings.Split(arg, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !types.IsValidBackendName(name) {
			logger.Warnf("Invalid backend: %s", name)
			continue
		}
		if !lo.Contains(backends, name) {
			backends = append(backends, name)
		}
	}
	return backends
}
