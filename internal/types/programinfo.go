package types

import "time"

// ProgramInfo is the merged per-clip descriptor built from the preview and
// programs API documents. It is ephemeral and lives only within one
// resolution pass.
type ProgramInfo struct {
	MediaID             string
	Title               string
	EpisodeTitle        string
	Description         string
	Flavors             []StreamFlavor
	Thumbnail           string
	Subtitles           []Subtitle
	DurationSeconds     int
	AvailableAtRegion   string
	PublishTimestamp    *time.Time
	ExpirationTimestamp *time.Time
	Pending             bool
	Expired             bool
}
