package extractor

import (
	"testing"
	"time"
)

func TestParseAreenaTimestamp(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"2018-04-12T16:30:45+03:00", "2018-04-12T16:30:45+03:00"},
		{"2018-04-12T16:30:45.123456+03:00", "2018-04-12T16:30:45+03:00"},
		{"2018-04-12T16:30:45", "2018-04-12T16:30:45Z"},
		{"2018-04-12", "2018-04-12T00:00:00Z"},
		{" 2018-04-12 ", "2018-04-12T00:00:00Z"},
	}
	for _, tt := range tests {
		ts := ParseAreenaTimestamp(tt.value)
		if ts == nil {
			t.Errorf("ParseAreenaTimestamp(%q) = nil, want %s", tt.value, tt.want)
			continue
		}
		if got := ts.Format(time.RFC3339); got != tt.want {
			t.Errorf("ParseAreenaTimestamp(%q) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestParseAreenaTimestampInvalid(t *testing.T) {
	for _, value := range []string{"", "   ", "not a date", "12.4.2018"} {
		if ts := ParseAreenaTimestamp(value); ts != nil {
			t.Errorf("ParseAreenaTimestamp(%q) = %v, want nil", value, ts)
		}
	}
}

func TestFormatFinnishShortWeekdayAndDate(t *testing.T) {
	tests := []struct {
		ts   time.Time
		want string
	}{
		{time.Date(2022, 9, 16, 0, 0, 0, 0, time.UTC), "pe 16.9.2022"},
		{time.Date(2019, 3, 4, 12, 30, 0, 0, time.UTC), "ma 4.3.2019"},
		{time.Date(2020, 2, 9, 0, 0, 0, 0, time.UTC), "su 9.2.2020"},
	}
	for _, tt := range tests {
		if got := FormatFinnishShortWeekdayAndDate(tt.ts); got != tt.want {
			t.Errorf("FormatFinnishShortWeekdayAndDate(%v) = %q, want %q", tt.ts, got, tt.want)
		}
	}
}
