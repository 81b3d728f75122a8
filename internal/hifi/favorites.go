package hifi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidewave/coda/internal/domain"
)

// favoriteIDsJSON is the one-call dump of all favorite kinds
type favoriteIDsJSON struct {
	Artist   []flexID `json:"ARTIST"`
	Album    []flexID `json:"ALBUM"`
	Playlist []flexID `json:"PLAYLIST"`
	Track    []flexID `json:"TRACK"`
	Video    []flexID `json:"VIDEO"`
}

// favoriteField returns the form field the add endpoint expects per kind.
func favoriteField(kind domain.Kind) string {
	switch kind {
	case domain.KindArtist:
		return "artistId"
	case domain.KindAlbum:
		return "albumId"
	case domain.KindPlaylist:
		return "uuid"
	case domain.KindTrack:
		return "trackIds"
	case domain.KindVideo:
		return "videoIds"
	}
	return ""
}

func (c *Client) favoritesPath(suffix string) string {
	return "users/" + c.session.UserID + "/favorites" + suffix
}

// LoadAllIDs fetches the id-lists of all five favorite kinds in one call.
func (c *Client) LoadAllIDs(ctx context.Context) (map[domain.Kind][]string, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	var body favoriteIDsJSON
	if err := c.getJSON(ctx, c.favoritesPath("/ids"), nil, &body); err != nil {
		return nil, err
	}
	return map[domain.Kind][]string{
		domain.KindArtist:   flexIDs(body.Artist),
		domain.KindAlbum:    flexIDs(body.Album),
		domain.KindPlaylist: flexIDs(body.Playlist),
		domain.KindTrack:    flexIDs(body.Track),
		domain.KindVideo:    flexIDs(body.Video),
	}, nil
}

// ListIDs fetches the current id-list of one favorite kind.
func (c *Client) ListIDs(ctx context.Context, kind domain.Kind) ([]string, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	raws, err := c.getPaged(ctx, c.favoritesPath("/"+string(kind)), nil, c.pageSize)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(raws))
	for _, raw := range raws {
		if id := favoriteItemID(raw); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// List fetches full entities of one favorite kind, for menu listings.
func (c *Client) List(ctx context.Context, kind domain.Kind) ([]domain.Entity, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	raws, err := c.getPaged(ctx, c.favoritesPath("/"+string(kind)), nil, c.pageSize)
	if err != nil {
		return nil, err
	}
	entities := make([]domain.Entity, 0, len(raws))
	for _, raw := range raws {
		entity, err := decodeFavoriteEntity(kind, raw)
		if err != nil {
			c.logger.Warn("skipping unreadable favorite item", "kind", string(kind), "error", err)
			continue
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// Add marks one or more ids of a kind as favorites.
func (c *Client) Add(ctx context.Context, kind domain.Kind, ids []string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	form := url.Values{}
	form.Set(favoriteField(kind), strings.Join(ids, ","))
	_, _, err := c.do(ctx, http.MethodPost, c.favoritesPath("/"+string(kind)), nil, form, nil)
	return err
}

// Remove unmarks one favorite id of a kind.
func (c *Client) Remove(ctx context.Context, kind domain.Kind, id string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	_, _, err := c.do(ctx, http.MethodDelete, c.favoritesPath("/"+string(kind)+"/"+id), nil, nil, nil)
	return err
}

func flexIDs(ids []flexID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

// favoriteItemID extracts the entity id from a favorites list element,
// which nests the entity under "item".
func favoriteItemID(raw json.RawMessage) string {
	var w wrappedItem
	if json.Unmarshal(raw, &w) == nil && len(w.Item) > 0 {
		raw = w.Item
	}
	var probe struct {
		ID   flexID `json:"id"`
		UUID string `json:"uuid"`
	}
	if json.Unmarshal(raw, &probe) != nil {
		return ""
	}
	if probe.UUID != "" {
		return probe.UUID
	}
	return string(probe.ID)
}

func decodeFavoriteEntity(kind domain.Kind, raw json.RawMessage) (domain.Entity, error) {
	var w wrappedItem
	if json.Unmarshal(raw, &w) == nil && len(w.Item) > 0 {
		raw = w.Item
	}
	switch kind {
	case domain.KindArtist:
		var a artistJSON
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		artist := mapArtist(&a)
		artist.Favorite = true
		return artist, nil
	case domain.KindAlbum:
		var a albumJSON
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		album := mapAlbum(&a)
		album.Favorite = true
		return album, nil
	case domain.KindPlaylist:
		var p playlistJSON
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		playlist := mapPlaylist(&p)
		playlist.Favorite = true
		return playlist, nil
	case domain.KindTrack:
		var t trackJSON
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, err
		}
		track := mapTrack(&t)
		track.Favorite = true
		return track, nil
	case domain.KindVideo:
		var v videoJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		video := mapVideo(&v)
		video.Favorite = true
		return video, nil
	}
	return nil, domain.ErrNotFound
}
