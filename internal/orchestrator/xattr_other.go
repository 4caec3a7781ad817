//go:build !linux

package orchestrator

import "github.com/famomatic/yledl/internal/types"

func (d *Downloader) setExtendedFileAttributes(string, types.ClipMetadata, string) {
	d.logger.Warn("Extended file attributes are not supported on this platform")
}
