// Package selector picks the stream variant and subtitles to download
// from the flavors an extractor found.
package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/types"
)

// StreamSelector applies the user's stream filters to clip flavors.
type StreamSelector struct {
	logger logrus.FieldLogger
}

// New returns a stream selector.
func New(logger logrus.FieldLogger) *StreamSelector {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StreamSelector{logger: logger}
}

// SelectStreams returns the streams of the best flavor in preferred
// backend order. A nil result means no flavors at all; an empty non-nil
// result means a flavor without usable streams.
func (s *StreamSelector) SelectStreams(flavors []types.StreamFlavor, filters types.StreamFilters) []types.Backend {
	flavor := s.selectFlavor(flavors, filters)
	if flavor == nil {
		return nil
	}
	if flavor.Streams == nil {
		return []types.Backend{}
	}
	return flavor.Streams
}

func (s *StreamSelector) selectFlavor(flavors []types.StreamFlavor, filters types.StreamFilters) *types.StreamFlavor {
	if len(flavors) == 0 {
		return nil
	}

	s.logDebugFlavors(flavors, filters)

	filtered := applyBackendFilter(flavors, filters)
	filtered = applyResolutionFilters(filtered, filters)
	if len(filtered) == 0 {
		return nil
	}

	selected := filtered[len(filtered)-1]
	s.logger.WithFields(logrus.Fields{
		"height":  selected.Height,
		"bitrate": selected.Bitrate,
	}).Debug("selected flavor")
	return &selected
}

func (s *StreamSelector) logDebugFlavors(flavors []types.StreamFlavor, filters types.StreamFilters) {
	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	sorted := append([]types.StreamFlavor(nil), flavors...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return flavorLess(sorted[i], sorted[j], nil, false)
	})
	s.logger.Debug("Available flavors:")
	for _, fl := range sorted {
		names := lo.Map(fl.Streams, func(b types.Backend, _ int) string {
			if name := b.Name(); name != "" {
				return name
			}
			return "???"
		})
		s.logger.Debugf("bitrate: %d, height: %d, width: %d, backends: %s",
			fl.Bitrate, fl.Height, fl.Width, strings.Join(names, ", "))
	}
	s.logger.Debugf("max_height: %d, max_bitrate: %d", filters.MaxHeight, filters.MaxBitrate)
}

// applyBackendFilter reorders each flavor's streams into the enabled
// backend preference order and drops flavors left without streams. When
// nothing survives, a single failed flavor explains which backends would
// have worked.
func applyBackendFilter(flavors []types.StreamFlavor, filters types.StreamFilters) []types.StreamFlavor {
	if len(flavors) == 0 {
		return nil
	}

	var filtered []types.StreamFlavor
	for _, fl := range flavors {
		var streams []types.Backend
		for _, name := range filters.EnabledBackends {
			for _, stream := range fl.Streams {
				if stream.Name() == name {
					streams = append(streams, stream)
				}
			}
		}
		if len(streams) > 0 {
			fl.Streams = streams
			filtered = append(filtered, fl)
		}
	}

	if len(filtered) > 0 {
		return filtered
	}
	return []types.StreamFlavor{backendNotEnabledFlavor(flavors)}
}

func backendNotEnabledFlavor(flavors []types.StreamFlavor) types.StreamFlavor {
	var supported []string
	var errorMessages []string
	for _, fl := range flavors {
		for _, stream := range fl.Streams {
			if stream.IsValid() {
				if name := stream.Name(); !lo.Contains(supported, name) {
					supported = append(supported, name)
				}
			} else {
				errorMessages = append(errorMessages, stream.ErrorMessage())
			}
		}
	}

	switch {
	case len(supported) > 0:
		return types.FailedFlavor(fmt.Sprintf(
			"Required backend not enabled. Try: --backend %s", strings.Join(supported, ",")))
	case len(errorMessages) > 0:
		return types.FailedFlavor(errorMessages[0])
	default:
		return types.FailedFlavor("Stream not found")
	}
}

// applyResolutionFilters keeps flavors within the bitrate and height
// budgets, sorted best last. When every flavor is over budget, the sort is
// reversed so that the least excessive flavor ends up selected.
func applyResolutionFilters(flavors []types.StreamFlavor, filters types.StreamFilters) []types.StreamFlavor {
	acceptable := lo.Filter(flavors, func(fl types.StreamFlavor, _ int) bool {
		return (!filters.HasBitrateLimit() || fl.Bitrate <= filters.MaxBitrate) &&
			(!filters.HasHeightLimit() || fl.Height <= filters.MaxHeight)
	})

	reverse := false
	if len(acceptable) == 0 {
		acceptable = flavors
		reverse = filters.HasHeightLimit() || filters.HasBitrateLimit()
	}

	// With only the height limited, lower bitrate is better at equal
	// resolution. Otherwise higher bitrate wins.
	preference := backendPreference(filters.EnabledBackends)
	minBitrate := filters.HasHeightLimit() && !filters.HasBitrateLimit()

	sorted := append([]types.StreamFlavor(nil), acceptable...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if reverse {
			i, j = j, i
		}
		return flavorLess(sorted[i], sorted[j], preference, minBitrate)
	})
	return sorted
}

// backendPreference scores backends so that earlier entries of the
// preference list score higher. Unlisted backends score -1.
func backendPreference(enabledBackends []string) map[string]int {
	preference := make(map[string]int, len(enabledBackends))
	for i, name := range enabledBackends {
		preference[name] = len(enabledBackends) - 1 - i
	}
	return preference
}

func flavorLess(a, b types.StreamFlavor, preference map[string]int, minBitrate bool) bool {
	if a.Height != b.Height {
		return a.Height < b.Height
	}
	scoreA, scoreB := backendScore(a, preference), backendScore(b, preference)
	if scoreA != scoreB {
		return scoreA < scoreB
	}
	if minBitrate {
		return a.Bitrate > b.Bitrate
	}
	return a.Bitrate < b.Bitrate
}

func backendScore(fl types.StreamFlavor, preference map[string]int) int {
	score := -1
	for _, stream := range fl.Streams {
		if p, ok := preference[stream.Name()]; ok && p > score {
			score = p
		}
	}
	return score
}

// SelectSubtitles picks the external subtitles to download. Hardsubs
// suppress external subtitle files. A specific language selects the first
// match only.
func SelectSubtitles(subtitles []types.Subtitle, filters types.StreamFilters) []types.Subtitle {
	if filters.Hardsubs || filters.SubLang == "none" {
		return nil
	}
	if filters.SubLang == "all" {
		return subtitles
	}
	for _, sub := range subtitles {
		if strings.EqualFold(sub.Lang, filters.SubLang) {
			return []types.Subtitle{sub}
		}
	}
	return nil
}
