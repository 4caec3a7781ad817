// Package kaltura fetches mp4 stream flavors from the Kaltura API. Web
// Areena no longer serves new media through Kaltura, but many older clips
// still have mp4 renditions there, which is the only way to support plain
// HTTP downloads.
package kaltura

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/types"
)

const (
	partnerID  = "1955031"
	widgetID   = "_1955031"
	clientTag  = "html5:v0.39.4"
	apiURL     = "https://cdnapisec.kaltura.com"
	httpOrigin = "https://areena.yle.fi"
)

// apiClient is the transport used for Kaltura API requests.
type apiClient interface {
	PostJSON(ctx context.Context, url string, payload any, extraHeaders map[string]string, v any) error
}

// backendFactory builds the concrete downloaders for the discovered
// streams. Injected to keep this package free of subprocess concerns.
type backendFactory interface {
	DASHHLS(url string) types.Backend
	HLSAudio(url string) types.Backend
	Wget(url, fileExtension string) types.Backend
}

// Client queries the Kaltura multirequest API for Yle's partner account.
type Client struct {
	httpClient apiClient
	backends   backendFactory
	logger     logrus.FieldLogger
}

// New returns a Kaltura API client.
func New(httpClient apiClient, backends backendFactory, logger logrus.FieldLogger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{httpClient: httpClient, backends: backends, logger: logger}
}

// PlaybackContext runs the widget-session/playback-context multirequest
// for an entry and returns the playback context part of the response.
func (c *Client) PlaybackContext(ctx context.Context, entryID, referrer string) (*PlaybackContext, error) {
	subrequests := []map[string]any{
		{
			"service":  "session",
			"action":   "startWidgetSession",
			"widgetId": widgetID,
		},
		{
			"service": "baseEntry",
			"action":  "list",
			"ks":      "{1:result:ks}",
			"filter":  map[string]any{"redirectFromEntryId": entryID},
			"responseProfile": map[string]any{
				"fields": "id,name,description,thumbnailUrl,dataUrl,duration," +
					"msDuration,flavorParamsIds,mediaType,type,tags,dvrStatus",
				"type": 1,
			},
		},
		{
			"service": "baseEntry",
			"action":  "getPlaybackContext",
			"entryId": entryID,
			"ks":      "{1:result:ks}",
			"contextDataParams": map[string]any{
				"objectType": "KalturaContextDataParams",
				"flavorTags": "all",
			},
		},
		{
			"service": "metadata_metadata",
			"action":  "list",
			"filter": map[string]any{
				"objectType":              "KalturaMetadataFilter",
				"objectIdEqual":           entryID,
				"metadataObjectTypeEqual": "1",
			},
			"ks": "{1:result:ks}",
		},
	}

	request := map[string]any{
		"apiVersion": "3.3.0",
		"format":     1,
		"ks":         "",
		"clientTag":  clientTag,
		"partnerId":  partnerID,
	}
	for i, sub := range subrequests {
		request[fmt.Sprintf("%d", i)] = sub
	}

	headers := map[string]string{
		"Referer":       referrer,
		"Origin":        httpOrigin,
		"Cache-Control": "max-age=0",
	}

	var response []PlaybackContext
	endpoint := apiURL + "/api_v3/service/multirequest"
	if err := c.httpClient.PostJSON(ctx, endpoint, request, headers, &response); err != nil {
		return nil, err
	}
	if len(response) <= 2 {
		return nil, nil
	}
	return &response[2], nil
}

// MP4Flavors fetches the playback context for an entry and converts it to
// stream flavors. An entry without a playback context yields no flavors.
func (c *Client) MP4Flavors(ctx context.Context, entryID, referrer string) ([]types.StreamFlavor, error) {
	playbackContext, err := c.PlaybackContext(ctx, entryID, referrer)
	if err != nil {
		return nil, err
	}
	if playbackContext == nil {
		return nil, nil
	}
	return c.StreamFlavors(playbackContext, referrer), nil
}

// PlaybackContext is the subset of the Kaltura playback context response
// needed for flavor discovery.
type PlaybackContext struct {
	FlavorAssets []FlavorAsset `json:"flavorAssets"`
	Sources      []Source      `json:"sources"`
}

type FlavorAsset struct {
	ID              string `json:"id"`
	EntryID         string `json:"entryId"`
	FileExt         string `json:"fileExt"`
	Height          int    `json:"height"`
	Width           int    `json:"width"`
	Bitrate         int    `json:"bitrate"`
	Tags            string `json:"tags"`
	ContainerFormat string `json:"containerFormat"`
}

type Source struct {
	Format    string `json:"format"`
	FlavorIDs string `json:"flavorIds"`
	URL       string `json:"url"`
}

func (f FlavorAsset) tagList() []string {
	if f.Tags == "" {
		return nil
	}
	return strings.Split(f.Tags, ",")
}

// isWebStream filters out the source and mobile-app renditions that the
// web player would never use.
func (f FlavorAsset) isWebStream() bool {
	tags := f.tagList()
	web := lo.Contains(tags, "web") && !lo.Contains(tags, "source")
	mbr := lo.Contains(tags, "mbr") && f.FileExt == "mp4"
	ipad := lo.Contains(tags, "ipad") || lo.Contains(tags, "iphone")
	return web || mbr || ipad
}

func (f FlavorAsset) mediaType() string {
	if lo.Contains(f.tagList(), "audio_only") || f.ContainerFormat == "mpeg audio" {
		return types.MediaTypeAudio
	}
	return types.MediaTypeVideo
}

// StreamFlavors converts a playback context into stream flavors with one
// backend per delivery profile.
func (c *Client) StreamFlavors(playbackContext *PlaybackContext, referrer string) []types.StreamFlavor {
	if playbackContext == nil {
		return []types.StreamFlavor{types.FailedFlavor("No Kaltura playback context")}
	}

	profiles := deliveryProfilesByFlavorID(playbackContext.Sources)

	webFlavors := lo.Filter(playbackContext.FlavorAssets, func(f FlavorAsset, _ int) bool {
		return f.isWebStream()
	})
	if skipped := len(playbackContext.FlavorAssets) - len(webFlavors); skipped > 0 {
		c.logger.WithField("count", skipped).Debug("ignored non-web flavors")
	}

	flavors := make([]types.StreamFlavor, 0, len(webFlavors))
	for _, flavor := range webFlavors {
		ext := ".mp4"
		if flavor.FileExt != "" {
			ext = "." + flavor.FileExt
		}
		mediaType := flavor.mediaType()

		var streams []types.Backend
		for _, profile := range profiles[flavor.ID] {
			url := profile.manifestURL(flavor.EntryID, referrer)
			switch {
			case profile.streamFormat == "url":
				streams = append(streams, c.backends.Wget(url, ext))
			case mediaType == types.MediaTypeVideo:
				streams = append(streams, c.backends.DASHHLS(url))
			default:
				streams = append(streams, c.backends.HLSAudio(url))
			}
		}

		flavors = append(flavors, types.StreamFlavor{
			MediaType: mediaType,
			Height:    flavor.Height,
			Width:     flavor.Width,
			Bitrate:   flavor.Bitrate,
			Streams:   streams,
		})
	}
	return flavors
}

// deliveryProfile identifies one way of delivering a flavor: a stream
// format plus the manifest file name.
type deliveryProfile struct {
	flavorID     string
	streamFormat string
	manifestFile string
}

func (p deliveryProfile) manifestURL(entryID, referrer string) string {
	b64referrer := base64.StdEncoding.EncodeToString([]byte(referrer))
	return fmt.Sprintf(
		"https://cdnsecakmi.kaltura.com/p/%[1]s/sp/%[1]s00/playManifest/entryId/%[2]s/"+
			"flavorId/%[3]s/format/%[4]s/protocol/https/%[5]s?uiConfId=43362851"+
			"&referrer=%[6]s&playSessionId=11111111-1111-1111-1111-111111111111&clientTag=%[7]s",
		partnerID, entryID, p.flavorID, p.streamFormat, p.manifestFile, b64referrer, clientTag)
}

func deliveryProfilesByFlavorID(sources []Source) map[string][]deliveryProfile {
	byIDAndFormat := map[string]deliveryProfile{}
	for _, source := range sources {
		if source.Format != "url" && source.Format != "applehttp" {
			continue
		}
		urlParts := strings.Split(source.URL, "/")
		manifestFile := urlParts[len(urlParts)-1]
		for _, flavorID := range strings.Split(source.FlavorIDs, ",") {
			profile := deliveryProfile{
				flavorID:     flavorID,
				streamFormat: source.Format,
				manifestFile: manifestFile,
			}
			byIDAndFormat[flavorID+"_"+source.Format] = profile
		}
	}

	profiles := map[string][]deliveryProfile{}
	for _, p := range byIDAndFormat {
		profiles[p.flavorID] = append(profiles[p.flavorID], p)
	}
	return profiles
}
