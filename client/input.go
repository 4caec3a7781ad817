package client

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/famomatic/yledl/internal/filesystem"
)

// ReadURLs collects the input URLs from a command line argument and an
// optional input file with one URL per line. Blank lines are skipped.
func ReadURLs(arg, inputFile string) ([]string, error) {
	var urls []string
	if arg != "" {
		urls = []string{EncodeURLUTF8(arg)}
	}
	if inputFile != "" {
		data, err := filesystem.API().ReadFile(inputFile)
		if err != nil {
			return nil, err
		}
		urls = nil
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				urls = append(urls, EncodeURLUTF8(line))
			}
		}
	}
	return urls, nil
}

var percentEncodedRe = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)

// EncodeURLUTF8 percent-encodes the path component of a URL. Areena page
// titles can contain non-ASCII characters. A path that already contains
// percent escapes is assumed encoded.
func EncodeURLUTF8(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if percentEncodedRe.MatchString(u.Path) {
		return rawURL
	}
	// url.URL encodes Path when RawPath is unset
	u.RawPath = ""
	return u.String()
}

// startPositionFromURL reads the start position from an Areena page URL's
// seek parameter.
func startPositionFromURL(pageURL string) int {
	u, err := url.Parse(pageURL)
	if err != nil {
		return 0
	}
	seek, err := strconv.Atoi(u.Query().Get("seek"))
	if err != nil {
		return 0
	}
	return seek
}
