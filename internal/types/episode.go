package types

import (
	"net/url"
	"time"
)

// EpisodeMetadata is one entry of a series playlist. Season and episode
// numbers are unknown for many radio programs; the sort key pushes unknown
// values last so that date ordering takes over.
type EpisodeMetadata struct {
	URI           string
	SeasonNumber  int
	EpisodeNumber int
	ReleaseDate   *time.Time
}

const unknownOrdinal = 99999

// SortKey orders episodes by (season ?? ∞, episode ?? ∞, date ?? epoch)
// ascending. A zero season or episode number means unknown.
func (e EpisodeMetadata) SortKey() (int, int, time.Time) {
	season := e.SeasonNumber
	if season == 0 {
		season = unknownOrdinal
	}
	episode := e.EpisodeNumber
	if episode == 0 {
		episode = unknownOrdinal
	}
	date := time.Unix(0, 0).UTC()
	if e.ReleaseDate != nil {
		date = *e.ReleaseDate
	}
	return season, episode, date
}

// Less compares two episodes by their sort keys.
func (e EpisodeMetadata) Less(other EpisodeMetadata) bool {
	s1, e1, d1 := e.SortKey()
	s2, e2, d2 := other.SortKey()
	if s1 != s2 {
		return s1 < s2
	}
	if e1 != e2 {
		return e1 < e2
	}
	return d1.Before(d2)
}

// WithoutEpisodeNumber returns a copy with the episode number cleared.
func (e EpisodeMetadata) WithoutEpisodeNumber() EpisodeMetadata {
	e.EpisodeNumber = 0
	return e
}

// PlaylistData is an opaque handle to a paginated series feed: the base
// playlist URL plus one query parameter set per season. Seasons are
// traversed lazily so that latest-only can fetch just the last one.
type PlaylistData struct {
	BaseURL          string
	SeasonParameters []map[string]string
}

// SeasonPlaylistURLs returns one playlist URL per season. With no season
// parameter sets the base URL itself is the single page.
func (p PlaylistData) SeasonPlaylistURLs() []string {
	if len(p.SeasonParameters) == 0 {
		return []string{p.BaseURL}
	}
	urls := make([]string, 0, len(p.SeasonParameters))
	for _, params := range p.SeasonParameters {
		urls = append(urls, UpdateURLQuery(p.BaseURL, params))
	}
	return urls
}

// UpdateURLQuery merges query parameters into rawURL, overriding existing
// values for the same keys. A malformed URL is returned unchanged.
func UpdateURLQuery(rawURL string, params map[string]string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
