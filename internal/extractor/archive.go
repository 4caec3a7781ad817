package extractor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// NewArchiveExtractor returns an extractor for Elävä Arkisto and Arkivet
// article pages, which embed Areena clips as data attributes.
func NewArchiveExtractor(cfg Config) *AreenaExtractor {
	e := newAreenaExtractor(cfg)
	e.programIDFromURL = areenaProgramID
	e.playlist = func(ctx context.Context, pageURL string, latestOnly bool) ([]string, error) {
		return archivePlaylist(ctx, e.client, e.logger, pageURL, latestOnly)
	}
	return e
}

func archivePlaylist(ctx context.Context, client WebClient, logger logrus.FieldLogger, pageURL string, latestOnly bool) ([]string, error) {
	ids, err := archiveDataIDs(ctx, client, pageURL)
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		// Some Elävä Arkisto pages are published using the news
		// article type.
		return newsArticlePlaylist(ctx, client, logger, pageURL, latestOnly)
	}

	if latestOnly && len(ids) > 1 {
		ids = ids[len(ids)-1:]
	}
	return lo.Map(ids, func(id string, _ int) string {
		return articleMediaURL(id)
	}), nil
}

func archiveDataIDs(ctx context.Context, client WebClient, pageURL string) ([]string, error) {
	doc, err := client.GetHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return lo.Union(simpleDataIDs(doc), playerPropIDs(doc)), nil
}

func simpleDataIDs(doc *goquery.Document) []string {
	var ids []string
	doc.Find("article#main-content div[data-id]").Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("data-id")
		if !ok || id == "" {
			return
		}
		// old style numeric ids lack the "1-" prefix
		if !strings.Contains(id, "-") {
			id = "1-" + id
		}
		ids = append(ids, id)
	})
	return ids
}

func playerPropIDs(doc *goquery.Document) []string {
	var ids []string
	doc.Find("main#main-content div[data-player-props]").Each(func(_ int, s *goquery.Selection) {
		props, ok := s.Attr("data-player-props")
		if !ok {
			return
		}
		var parsed struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(props), &parsed); err == nil && parsed.ID != "" {
			ids = append(ids, parsed.ID)
		}
	})
	return ids
}
