package extractor

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// NewNewsExtractor returns an extractor for video and audio clips embedded
// in yle.fi news articles.
func NewNewsExtractor(cfg Config) *AreenaExtractor {
	e := newAreenaExtractor(cfg)
	e.programIDFromURL = areenaProgramID
	e.playlist = func(ctx context.Context, pageURL string, latestOnly bool) ([]string, error) {
		return newsArticlePlaylist(ctx, e.client, e.logger, pageURL, latestOnly)
	}
	return e
}

type articleState struct {
	PageData struct {
		Article struct {
			MainMedia []articleMediaBlock `json:"mainMedia"`
			Headline  struct {
				Video struct {
					ID string `json:"id"`
				} `json:"video"`
			} `json:"headline"`
			Content []articleMediaBlock `json:"content"`
		} `json:"article"`
	} `json:"pageData"`
}

type articleMediaBlock struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

var initialStateRe = regexp.MustCompile(`^window\.__INITIAL__?STATE__\s*=\s*`)

func newsArticlePlaylist(ctx context.Context, client WebClient, logger logrus.FieldLogger, pageURL string, latestOnly bool) ([]string, error) {
	doc, err := client.GetHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	state := articleInitialState(doc)
	if state == nil {
		return nil, nil
	}

	article := state.PageData.Article
	var dataIDs []string
	if article.MainMedia != nil {
		dataIDs = mediaBlockIDs(article.MainMedia, "VideoBlock", "video")
	} else if article.Headline.Video.ID != "" {
		dataIDs = []string{article.Headline.Video.ID}
	}
	for _, id := range mediaBlockIDs(article.Content, "AudioBlock", "audio", "VideoBlock", "video") {
		if !lo.Contains(dataIDs, id) {
			dataIDs = append(dataIDs, id)
		}
	}
	logger.WithField("ids", strings.Join(dataIDs, ",")).Debug("found Areena data IDs")

	playlist := lo.Map(dataIDs, func(id string, _ int) string {
		return articleMediaURL(id)
	})
	if latestOnly && len(playlist) > 1 {
		playlist = playlist[len(playlist)-1:]
	}
	return playlist, nil
}

func articleInitialState(doc *goquery.Document) *articleState {
	var stateJSON string
	doc.Find(`script[type="text/javascript"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, "window.__INITIAL__STATE__") ||
			strings.Contains(text, "window.__INITIAL_STATE__") {
			stateJSON = initialStateRe.ReplaceAllString(text, "")
			return false
		}
		return true
	})
	if stateJSON == "" {
		stateJSON, _ = doc.Find("div#initialState").First().Attr("data-state")
	}
	if stateJSON == "" {
		return nil
	}

	var state articleState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil
	}
	return &state
}

func mediaBlockIDs(blocks []articleMediaBlock, mediaTypes ...string) []string {
	return lo.FilterMap(blocks, func(b articleMediaBlock, _ int) (string, bool) {
		return b.ID, b.ID != "" && lo.Contains(mediaTypes, b.Type)
	})
}

// articleMediaURL maps an article media id to an Areena page URL. A plain
// numeric id is an old style program id missing the "1-" prefix.
func articleMediaURL(dataID string) string {
	if !strings.Contains(dataID, "-") {
		dataID = "1-" + dataID
	}
	return "https://areena.yle.fi/" + dataID
}
