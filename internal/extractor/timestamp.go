package extractor

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var tzColonRe = regexp.MustCompile(`\d\d:\d\d$`)

var areenaTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseAreenaTimestamp parses the timestamp strings used by the Areena
// APIs, e.g. "2018-04-12T16:30:45+03:00". Returns nil when the value
// cannot be parsed.
func ParseAreenaTimestamp(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	// normalize "+03:00" to "+0300"
	if tzColonRe.MatchString(value) && len(value) > 6 {
		value = value[:len(value)-3] + value[len(value)-2:]
	}
	for _, layout := range areenaTimestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}

var finnishWeekdays = map[time.Weekday]string{
	time.Monday:    "ma",
	time.Tuesday:   "ti",
	time.Wednesday: "ke",
	time.Thursday:  "to",
	time.Friday:    "pe",
	time.Saturday:  "la",
	time.Sunday:    "su",
}

// FormatFinnishShortWeekdayAndDate renders a timestamp the way Areena
// titles date-based episodes, e.g. "pe 16.9.2022".
func FormatFinnishShortWeekdayAndDate(ts time.Time) string {
	return fmt.Sprintf("%s %d.%d.%d", finnishWeekdays[ts.Weekday()], ts.Day(), int(ts.Month()), ts.Year())
}
