package backend

import (
	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/filesystem"
	"github.com/famomatic/yledl/internal/types"
)

func exitCodeToRD(code int) types.RDCode {
	if code == 0 {
		return types.RDSuccess
	}
	return types.RDFailed
}

// WarnOnUnsupportedFeature logs when the user has requested features the
// selected backend cannot honor.
func WarnOnUnsupportedFeature(caps types.IOCapability, io *types.IOContext, logger logrus.FieldLogger) {
	if io.Proxy != "" && !caps.Has(types.CapProxy) {
		logger.Warn("Proxy not supported on this stream. Trying to continue anyway")
	}
	if io.DownloadLimits.Ratelimit > 0 && !caps.Has(types.CapRatelimit) {
		logger.Warn("Rate limiting not supported on this stream")
	}
	if io.DownloadLimits.Duration > 0 && !caps.Has(types.CapSlice) {
		logger.Warn("--duration will be ignored on this stream")
	}
	if io.DownloadLimits.StartPosition > 0 && !caps.Has(types.CapSlice) {
		logger.Warn("--startposition will be ignored on this stream")
	}
}

func warnOnUnsupportedResume(caps types.IOCapability, filename string, io *types.IOContext, logger logrus.FieldLogger) {
	if !io.Resume || caps.Has(types.CapResume) || filename == "-" {
		return
	}
	if exists, err := filesystem.API().Exists(filename); err == nil && exists {
		logger.Warn("Resume not supported on this stream")
	}
}
