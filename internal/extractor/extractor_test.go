package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeWebClient serves canned HTML pages and JSON documents keyed by URL.
// JSON URLs are matched by prefix so that query parameters added by the
// code under test do not need to be spelled out in the fixtures.
type fakeWebClient struct {
	html     map[string]string
	jsonBody func(url string) (string, error)
	requests []string
}

func (c *fakeWebClient) GetHTML(_ context.Context, url string) (*goquery.Document, error) {
	c.requests = append(c.requests, url)
	body, ok := c.html[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

func (c *fakeWebClient) GetJSON(_ context.Context, url string, _ map[string]string, v any) error {
	c.requests = append(c.requests, url)
	if c.jsonBody == nil {
		return fmt.Errorf("no fixture for %s", url)
	}
	body, err := c.jsonBody(url)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(body), v)
}
