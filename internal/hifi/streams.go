package hifi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/tidewave/coda/internal/domain"
)

// Sound quality levels accepted by the stream endpoint
const (
	QualityLow      = "LOW"
	QualityHigh     = "HIGH"
	QualityLossless = "LOSSLESS"
)

// SubscriptionHiFi is the only subscription level allowed to request
// lossless streams.
const SubscriptionHiFi = "HIFI"

// GetTrackStream resolves a track to a playable URL. Without a user
// session the preview endpoint is used and the result is marked as a
// preview stream.
func (c *Client) GetTrackStream(ctx context.Context, id, quality string) (*domain.StreamURL, error) {
	if !c.session.LoggedIn() {
		return c.getStream(ctx, "tracks/"+id+"/previewurl", nil, true)
	}
	query := url.Values{}
	if quality == "" {
		quality = QualityHigh
	}
	if quality == QualityLossless && c.session.SubscriptionType != "" && c.session.SubscriptionType != SubscriptionHiFi {
		c.logger.Warn("subscription does not allow lossless, switching down to high quality",
			"subscription", c.session.SubscriptionType)
		quality = QualityHigh
	}
	query.Set("soundQuality", quality)
	return c.getStream(ctx, "tracks/"+id+"/streamUrl", query, false)
}

// GetVideoStream resolves a video to a playable URL. Manifest parsing
// and stream-variant selection are the player's concern, not ours.
func (c *Client) GetVideoStream(ctx context.Context, id string) (*domain.StreamURL, error) {
	if !c.session.LoggedIn() {
		return c.getStream(ctx, "videos/"+id+"/previewurl", nil, true)
	}
	return c.getStream(ctx, "videos/"+id+"/streamUrl", nil, false)
}

func (c *Client) getStream(ctx context.Context, path string, query url.Values, preview bool) (*domain.StreamURL, error) {
	data, _, err := c.do(ctx, "GET", path, query, nil, nil)
	if err != nil {
		return nil, err
	}
	var body streamURLJSON
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("failed to parse stream response: %w", err)
	}
	return &domain.StreamURL{
		URL:     body.URL,
		Quality: body.SoundQuality,
		Codec:   body.Codec,
		Preview: preview,
	}, nil
}
