//go:build linux

package orchestrator

import (
	"golang.org/x/sys/unix"

	"github.com/famomatic/yledl/internal/types"
)

// xattr values are capped to keep them well under filesystem limits.
const maxXattrValueLen = 64 * 1024

// setExtendedFileAttributes records the clip metadata as extended file
// attributes using the Dublin Core and freedesktop.org attribute names.
func (d *Downloader) setExtendedFileAttributes(filename string, meta types.ClipMetadata, referrerURL string) {
	set := func(name, value string) error {
		data := []byte(value)
		if len(data) > maxXattrValueLen {
			data = data[:maxXattrValueLen]
		}
		return unix.Setxattr(filename, name, data, 0)
	}

	var err error
	if meta.Description != "" {
		err = set("user.dublincore.description", meta.Description)
	}
	if err == nil && len(meta.PublishTimestamp) >= 10 {
		err = set("user.dublincore.date", meta.PublishTimestamp[:10])
	}
	if err == nil && meta.EpisodeTitle != "" {
		err = set("user.dublincore.title", meta.EpisodeTitle)
	}
	if err == nil && referrerURL != "" {
		// the requested URL
		err = set("user.xdg.referrer.url", referrerURL)
	}
	if err == nil && meta.WebURL != "" {
		// the final URL
		err = set("user.xdg.origin.url", meta.WebURL)
	}

	if err != nil {
		d.logger.Warn("File system doesn't seem to support extended attributes")
		d.logger.WithError(err).Debug("error while setting xattr")
	}
}
