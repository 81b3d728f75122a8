package hifi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/tidewave/coda/internal/domain"
)

// GetArtist fetches one artist by id.
func (c *Client) GetArtist(ctx context.Context, id string) (*domain.Artist, error) {
	var a artistJSON
	if err := c.getJSON(ctx, "artists/"+id, nil, &a); err != nil {
		return nil, err
	}
	return mapArtist(&a), nil
}

// GetAlbum fetches one album by id. The result is always complete
// (direct album fetches carry the release date).
func (c *Client) GetAlbum(ctx context.Context, id string) (*domain.Album, error) {
	payload, err := c.GetAlbumPayload(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.ParseAlbum(payload)
}

// GetAlbumPayload fetches the raw album JSON, byte-for-byte as the
// cache stores it.
func (c *Client) GetAlbumPayload(ctx context.Context, id string) (json.RawMessage, error) {
	data, _, err := c.do(ctx, "GET", "albums/"+id, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// ParseAlbum maps a raw album payload to the domain entity. Pure, no I/O.
func (c *Client) ParseAlbum(payload []byte) (*domain.Album, error) {
	var a albumJSON
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("failed to parse album payload: %w", err)
	}
	return mapAlbum(&a), nil
}

// GetTrack fetches one track by id.
func (c *Client) GetTrack(ctx context.Context, id string) (*domain.Track, error) {
	var t trackJSON
	if err := c.getJSON(ctx, "tracks/"+id, nil, &t); err != nil {
		return nil, err
	}
	return mapTrack(&t), nil
}

// GetVideo fetches one video by id.
func (c *Client) GetVideo(ctx context.Context, id string) (*domain.Video, error) {
	var v videoJSON
	if err := c.getJSON(ctx, "videos/"+id, nil, &v); err != nil {
		return nil, err
	}
	return mapVideo(&v), nil
}

// GetAlbumTracks fetches the track list of an album, in album order.
func (c *Client) GetAlbumTracks(ctx context.Context, id string) ([]*domain.Track, error) {
	raws, err := c.getPaged(ctx, "albums/"+id+"/tracks", nil, c.pageSize)
	if err != nil {
		return nil, err
	}
	return decodeTracks(raws)
}

// GetArtistAlbums fetches an artist's albums. filter may be "",
// "EPSANDSINGLES" or "COMPILATIONS".
func (c *Client) GetArtistAlbums(ctx context.Context, id, filter string) ([]*domain.Album, error) {
	query := url.Values{}
	if filter != "" {
		query.Set("filter", filter)
	}
	raws, err := c.getPaged(ctx, "artists/"+id+"/albums", query, c.pageSize)
	if err != nil {
		return nil, err
	}
	albums := make([]*domain.Album, 0, len(raws))
	for _, raw := range raws {
		var a albumJSON
		if err := json.Unmarshal(raw, &a); err != nil {
			c.logger.Warn("skipping unreadable album item", "error", err)
			continue
		}
		albums = append(albums, mapAlbum(&a))
	}
	return albums, nil
}

// GetArtistTopTracks fetches an artist's most popular tracks.
func (c *Client) GetArtistTopTracks(ctx context.Context, id string, limit int) ([]*domain.Track, error) {
	raws, err := c.getPaged(ctx, "artists/"+id+"/toptracks", nil, limit)
	if err != nil {
		return nil, err
	}
	return decodeTracks(raws)
}

// GetArtistVideos fetches an artist's videos.
func (c *Client) GetArtistVideos(ctx context.Context, id string) ([]*domain.Video, error) {
	raws, err := c.getPaged(ctx, "artists/"+id+"/videos", nil, c.pageSize)
	if err != nil {
		return nil, err
	}
	videos := make([]*domain.Video, 0, len(raws))
	for _, raw := range raws {
		var v videoJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			c.logger.Warn("skipping unreadable video item", "error", err)
			continue
		}
		videos = append(videos, mapVideo(&v))
	}
	return videos, nil
}

// GetSimilarArtists fetches artists related to the given one.
func (c *Client) GetSimilarArtists(ctx context.Context, id string) ([]*domain.Artist, error) {
	raws, err := c.getPaged(ctx, "artists/"+id+"/similar", nil, c.pageSize)
	if err != nil {
		return nil, err
	}
	artists := make([]*domain.Artist, 0, len(raws))
	for _, raw := range raws {
		var a artistJSON
		if err := json.Unmarshal(raw, &a); err != nil {
			c.logger.Warn("skipping unreadable artist item", "error", err)
			continue
		}
		artists = append(artists, mapArtist(&a))
	}
	return artists, nil
}

// GetArtistRadio fetches a generated track mix seeded by the artist.
func (c *Client) GetArtistRadio(ctx context.Context, id string, limit int) ([]*domain.Track, error) {
	raws, err := c.getPaged(ctx, "artists/"+id+"/radio", nil, limit)
	if err != nil {
		return nil, err
	}
	return decodeTracks(raws)
}

// GetPromotions fetches the featured-content banners. group may be "",
// "NEWS", "RISING" or "DISCOVERY".
func (c *Client) GetPromotions(ctx context.Context, group string) ([]domain.Promotion, error) {
	query := url.Values{}
	query.Set("limit", "100")
	if group != "" {
		query.Set("group", group)
		query.Set("clientType", "BROWSER")
		query.Set("subscriptionType", SubscriptionHiFi)
	}
	var body pagedList
	if err := c.getJSON(ctx, "promotions", query, &body); err != nil {
		return nil, err
	}
	promotions := make([]domain.Promotion, 0, len(body.Items))
	for _, raw := range body.Items {
		var p promotionJSON
		if err := json.Unmarshal(raw, &p); err != nil {
			c.logger.Warn("skipping unreadable promotion item", "error", err)
			continue
		}
		promotions = append(promotions, mapPromotion(&p))
	}
	return promotions, nil
}

// SearchResult groups search hits by kind.
type SearchResult struct {
	Artists   []*domain.Artist
	Albums    []*domain.Album
	Tracks    []*domain.Track
	Playlists []*domain.Playlist
	Videos    []*domain.Video
}

// Search queries the catalog across the given kinds.
func (c *Client) Search(ctx context.Context, text string, kinds []domain.Kind, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	types := ""
	for i, k := range kinds {
		if i > 0 {
			types += ","
		}
		switch k {
		case domain.KindArtist:
			types += "ARTISTS"
		case domain.KindAlbum:
			types += "ALBUMS"
		case domain.KindPlaylist:
			types += "PLAYLISTS"
		case domain.KindTrack:
			types += "TRACKS"
		case domain.KindVideo:
			types += "VIDEOS"
		}
	}
	query := url.Values{}
	query.Set("query", text)
	query.Set("types", types)
	query.Set("limit", fmt.Sprint(limit))

	var body struct {
		Artists   pagedList `json:"artists"`
		Albums    pagedList `json:"albums"`
		Tracks    pagedList `json:"tracks"`
		Playlists pagedList `json:"playlists"`
		Videos    pagedList `json:"videos"`
	}
	if err := c.getJSON(ctx, "search", query, &body); err != nil {
		return nil, err
	}

	result := &SearchResult{}
	for _, raw := range body.Artists.Items {
		var a artistJSON
		if json.Unmarshal(raw, &a) == nil {
			result.Artists = append(result.Artists, mapArtist(&a))
		}
	}
	for _, raw := range body.Albums.Items {
		var a albumJSON
		if json.Unmarshal(raw, &a) == nil {
			result.Albums = append(result.Albums, mapAlbum(&a))
		}
	}
	if tracks, err := decodeTracks(body.Tracks.Items); err == nil {
		result.Tracks = tracks
	}
	for _, raw := range body.Playlists.Items {
		var p playlistJSON
		if json.Unmarshal(raw, &p) == nil {
			result.Playlists = append(result.Playlists, mapPlaylist(&p))
		}
	}
	for _, raw := range body.Videos.Items {
		var v videoJSON
		if json.Unmarshal(raw, &v) == nil {
			result.Videos = append(result.Videos, mapVideo(&v))
		}
	}
	return result, nil
}

func decodeTracks(raws []json.RawMessage) ([]*domain.Track, error) {
	tracks := make([]*domain.Track, 0, len(raws))
	for _, raw := range raws {
		var t trackJSON
		if err := json.Unmarshal(raw, &t); err != nil {
			continue
		}
		tracks = append(tracks, mapTrack(&t))
	}
	return tracks, nil
}
