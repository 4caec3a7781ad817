// Package title renders clip titles from a user-configurable template.
package title

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultTemplate is the title template used when the user does not
// override it.
const DefaultTemplate = "${series}${title}${episode}${timestamp}"

var genrePrefixes = []string{
	"Elokuva:", "Kino:", "Kino Klassikko:", "Kino Suomi:", "Kotikatsomo:",
	"Uusi Kino:", "Dok:", "Dokumenttiprojekti:", "Historia:",
}

var (
	templateTokenRe = regexp.MustCompile(`\$(?:\{[a-zA-Z_]+?\}|\$)`)
	ageLimitRe      = regexp.MustCompile(`^(.+?)\s+\(([A-Z]|[0-9]{1,2})\)$`)
)

// Params carries the raw metadata that a title is built from.
type Params struct {
	Title            string
	PublishTimestamp *time.Time
	// DateOnly marks a publish timestamp whose time of day is unknown.
	DateOnly    bool
	SeriesTitle string
	Subheading  string
	Season      int
	Episode     int
	ProgramID   string
}

// Formatter renders titles from a template. Template variables are
// ${series}, ${title}, ${full_title}, ${episode}, ${timestamp}, ${date}
// and ${program_id}; $$ is a literal dollar sign.
type Formatter struct {
	template string
	tokens   []token
}

type token struct {
	// literal text when variable is empty
	literal  string
	variable string
}

// NewFormatter parses a title template. An empty template means
// DefaultTemplate.
func NewFormatter(template string) *Formatter {
	if template == "" {
		template = DefaultTemplate
	}
	return &Formatter{template: template, tokens: parseTemplate(template)}
}

func parseTemplate(template string) []token {
	var tokens []token
	lastPos := 0
	for _, loc := range templateTokenRe.FindAllStringIndex(template, -1) {
		if loc[0] != lastPos {
			tokens = append(tokens, token{literal: template[lastPos:loc[0]]})
		}
		match := template[loc[0]:loc[1]]
		if match == "$$" {
			tokens = append(tokens, token{literal: "$"})
		} else {
			tokens = append(tokens, token{variable: match[2 : len(match)-1]})
		}
		lastPos = loc[1]
	}
	if lastPos != len(template) {
		tokens = append(tokens, token{literal: template[lastPos:]})
	}
	return tokens
}

// Template returns the original template string.
func (f *Formatter) Template() string {
	return f.template
}

// IsConstant reports whether the template contains no variables, in which
// case every clip would get the same title.
func (f *Formatter) IsConstant() bool {
	for _, t := range f.tokens {
		if t.variable != "" {
			return false
		}
	}
	return true
}

// Format renders the title for one clip.
func (f *Formatter) Format(p Params) string {
	title := strings.TrimSpace(p.Title)
	seriesTitle := strings.TrimSpace(p.SeriesTitle)
	subheading := strings.TrimSpace(p.Subheading)

	mainTitle := buildMainTitle(title, subheading, seriesTitle)
	if mainTitle == "" && seriesTitle != "" {
		mainTitle = seriesTitle
		seriesTitle = ""
	}

	values := map[string]string{
		"series":     seriesTitle,
		"title":      mainTitle,
		"full_title": title,
		"episode":    episodeNumber(p.Season, p.Episode),
		"timestamp":  timestampString(p.PublishTimestamp, p.DateOnly),
		"date":       dateString(p.PublishTimestamp),
		"program_id": p.ProgramID,
	}

	var b strings.Builder
	for _, t := range f.tokens {
		if t.variable == "" {
			b.WriteString(t.literal)
			continue
		}
		val, known := values[t.variable]
		if !known {
			val = "${" + t.variable + "}"
		}
		if val == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(separatorFor(t.variable))
		}
		b.WriteString(val)
	}
	return b.String()
}

func separatorFor(variable string) string {
	switch variable {
	case "timestamp", "date", "program_id":
		return "-"
	default:
		return ": "
	}
}

func buildMainTitle(title, subheading, seriesTitle string) string {
	mainTitle := removeGenrePrefix(removeRepeatedMainTitle(title))
	agelessTitle := removeAgeLimit(mainTitle)

	if seriesTitle != "" && hasSeriesPrefix(agelessTitle, seriesTitle) {
		mainTitle = agelessTitle[len(seriesTitle):]
		mainTitle = strings.TrimLeft(mainTitle, ":")
		mainTitle = strings.TrimLeft(mainTitle, " ")
	}

	switch {
	case subheading != "" && mainTitle == "":
		return subheading
	case subheading != "" && !strings.Contains(mainTitle, subheading):
		return mainTitle + ": " + subheading
	default:
		return mainTitle
	}
}

func hasSeriesPrefix(title, seriesTitle string) bool {
	re, err := regexp.Compile(`(?i)^` + regexp.QuoteMeta(seriesTitle) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(title)
}

// removeAgeLimit strips an (S) or (12) style age limit from the end of the
// title.
func removeAgeLimit(title string) string {
	if m := ageLimitRe.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	return title
}

func removeRepeatedMainTitle(title string) string {
	if prefix, rest, found := strings.Cut(title, ":"); found {
		if strings.Contains(rest, prefix) {
			return strings.TrimSpace(rest)
		}
	}
	return title
}

func removeGenrePrefix(title string) string {
	for _, prefix := range genrePrefixes {
		if strings.HasPrefix(title, prefix) {
			return strings.TrimSpace(title[len(prefix):])
		}
	}
	return title
}

func episodeNumber(season, episode int) string {
	switch {
	case season > 0 && episode > 0:
		return fmt.Sprintf("S%02dE%02d", season, episode)
	case episode > 0:
		return fmt.Sprintf("E%02d", episode)
	default:
		return ""
	}
}

func timestampString(ts *time.Time, dateOnly bool) string {
	if ts == nil {
		return ""
	}
	if dateOnly {
		return dateString(ts)
	}
	return ts.Format("2006-01-02T15:04")
}

func dateString(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.Format("2006-01-02")
}
