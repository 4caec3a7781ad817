package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

const geoEndpoint = "https://locations.api.yle.fi/v1/address/current?" +
	"app_id=player_static_prod&app_key=8930d72170e48303cf5f3867780d549b"

// geoAPIClient is the transport for the location query.
type geoAPIClient interface {
	Get(ctx context.Context, url string, extraHeaders map[string]string) ([]byte, error)
}

// GeoLocator checks whether Yle's location API places the user in
// Finland. Used only for a friendlier error message on geo blocked
// streams.
type GeoLocator struct {
	client geoAPIClient
	logger logrus.FieldLogger
}

// NewGeoLocator returns a geo location checker.
func NewGeoLocator(client geoAPIClient, logger logrus.FieldLogger) *GeoLocator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GeoLocator{client: client, logger: logger}
}

// LocatedInFinland queries the user's country. A failed query assumes
// Finland so that the download is still attempted.
func (g *GeoLocator) LocatedInFinland(ctx context.Context, referrer string) bool {
	headers := map[string]string{
		"Referer": referrer,
		"TE":      "Trailers",
	}
	body, err := g.client.Get(ctx, geoEndpoint, headers)
	if err != nil {
		g.logger.Warn("Failed to check geo restrictions.")
		g.logger.Warn("Continuing as if no restrictions apply. This may fail later.")
		return true
	}

	var response struct {
		CountryCode string `json:"country_code"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		g.logger.WithError(err).Warn("Failed to parse the geo restriction response.")
		return true
	}
	g.logger.WithField("country", response.CountryCode).Debug("geo query response")
	return response.CountryCode == "FI"
}
