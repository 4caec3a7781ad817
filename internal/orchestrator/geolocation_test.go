package orchestrator

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

type fakeGeoClient struct {
	body    string
	err     error
	headers map[string]string
}

func (c *fakeGeoClient) Get(_ context.Context, _ string, extraHeaders map[string]string) ([]byte, error) {
	c.headers = extraHeaders
	if c.err != nil {
		return nil, c.err
	}
	return []byte(c.body), nil
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLocatedInFinland(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want bool
	}{
		{"finland", `{"country_code": "FI"}`, nil, true},
		{"abroad", `{"country_code": "DE"}`, nil, false},
		{"request failure assumes Finland", "", fmt.Errorf("timeout"), true},
		{"parse failure assumes Finland", "not json", nil, true},
	}
	for _, tt := range tests {
		client := &fakeGeoClient{body: tt.body, err: tt.err}
		geo := NewGeoLocator(client, quietLogger())
		if got := geo.LocatedInFinland(context.Background(), "https://areena.yle.fi/1-123"); got != tt.want {
			t.Errorf("%s: LocatedInFinland() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLocatedInFinlandSendsReferrer(t *testing.T) {
	client := &fakeGeoClient{body: `{"country_code": "FI"}`}
	geo := NewGeoLocator(client, quietLogger())
	geo.LocatedInFinland(context.Background(), "https://areena.yle.fi/1-123")

	if client.headers["Referer"] != "https://areena.yle.fi/1-123" {
		t.Errorf("Referer = %q, want the clip page", client.headers["Referer"])
	}
}
