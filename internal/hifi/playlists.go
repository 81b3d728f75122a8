package hifi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidewave/coda/internal/domain"
)

// GetUserPlaylists fetches the authoritative list of the session user's
// playlists.
func (c *Client) GetUserPlaylists(ctx context.Context) ([]*domain.Playlist, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	raws, err := c.getPaged(ctx, "users/"+c.session.UserID+"/playlists", nil, c.pageSize)
	if err != nil {
		return nil, err
	}
	playlists := make([]*domain.Playlist, 0, len(raws))
	for _, raw := range raws {
		var p playlistJSON
		if err := json.Unmarshal(raw, &p); err != nil {
			c.logger.Warn("skipping unreadable playlist item", "error", err)
			continue
		}
		playlists = append(playlists, mapPlaylist(&p))
	}
	return playlists, nil
}

// GetPlaylist fetches one playlist by id. The response's ETag header is
// the version token authorizing mutations; it is attached to the result.
func (c *Client) GetPlaylist(ctx context.Context, id string) (*domain.Playlist, error) {
	data, header, err := c.do(ctx, http.MethodGet, "playlists/"+id, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	var p playlistJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse playlist: %w", err)
	}
	playlist := mapPlaylist(&p)
	playlist.ETag = header.Get("ETag")
	if playlist.ETag == "" {
		c.logger.Error("no version token in playlist response", "playlistID", id)
	}
	return playlist, nil
}

// GetPlaylistEntries fetches the full ordered entry list of a playlist.
// Track-only playlists use the tracks endpoint; mixed ones page through
// the items endpoint.
func (c *Client) GetPlaylistEntries(ctx context.Context, playlist *domain.Playlist) ([]domain.PlaylistEntry, error) {
	if playlist.NumberOfItems() == 0 {
		c.logger.Debug("skipping empty playlist", "playlistID", playlist.ID)
		return nil, nil
	}

	var raws []json.RawMessage
	var err error
	if playlist.NumberOfVideos <= 0 {
		raws, err = c.getPaged(ctx, "playlists/"+playlist.ID+"/tracks", nil, c.pageSize)
	} else {
		raws, err = c.getPaged(ctx, "playlists/"+playlist.ID+"/items", nil, c.pageSize)
	}
	if err != nil {
		return nil, err
	}

	entries := make([]domain.PlaylistEntry, 0, len(raws))
	for _, raw := range raws {
		itemType := "track"
		var w wrappedItem
		if json.Unmarshal(raw, &w) == nil && len(w.Item) > 0 {
			raw = w.Item
			if w.Type != "" {
				itemType = w.Type
			}
		}
		entry := domain.PlaylistEntry{Position: len(entries)}
		switch itemType {
		case "video":
			var v videoJSON
			if err := json.Unmarshal(raw, &v); err != nil {
				c.logger.Warn("skipping unreadable playlist entry", "playlistID", playlist.ID, "error", err)
				continue
			}
			entry.Video = mapVideo(&v)
		default:
			var t trackJSON
			if err := json.Unmarshal(raw, &t); err != nil {
				c.logger.Warn("skipping unreadable playlist entry", "playlistID", playlist.ID, "error", err)
				continue
			}
			track := mapTrack(&t)
			// Position encodes the track number within a playlist
			track.VolumeNumber = 0
			track.TrackNumber = len(entries) + 1
			entry.Track = track
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetPlaylistItemIDs fetches just the entry ids of a playlist, in order.
func (c *Client) GetPlaylistItemIDs(ctx context.Context, playlist *domain.Playlist) ([]string, error) {
	entries, err := c.GetPlaylistEntries(ctx, playlist)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if id := entry.ItemID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// CreatePlaylist creates a new user playlist.
func (c *Client) CreatePlaylist(ctx context.Context, title, description string) (*domain.Playlist, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("title", title)
	form.Set("description", description)
	data, header, err := c.do(ctx, http.MethodPost, "users/"+c.session.UserID+"/playlists", nil, form, nil)
	if err != nil {
		return nil, err
	}
	var p playlistJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse created playlist: %w", err)
	}
	playlist := mapPlaylist(&p)
	playlist.ETag = header.Get("ETag")
	return playlist, nil
}

// DeletePlaylist deletes a user playlist.
func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	_, _, err := c.do(ctx, http.MethodDelete, "playlists/"+id, nil, nil, nil)
	return err
}

// AddEntries appends ids to the end of a playlist. The playlist must
// carry a version token; a stale one yields ErrTokenConflict.
func (c *Client) AddEntries(ctx context.Context, playlist *domain.Playlist, ids []string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	if playlist.ETag == "" {
		return domain.ErrMissingToken
	}
	form := url.Values{}
	form.Set("trackIds", strings.Join(ids, ","))
	form.Set("toIndex", fmt.Sprint(playlist.NumberOfItems()))
	header := http.Header{}
	header.Set("If-None-Match", playlist.ETag)
	_, _, err := c.do(ctx, http.MethodPost, "playlists/"+playlist.ID+"/tracks", nil, form, header)
	return err
}

// RemoveEntry removes the entry at the given zero-based position. Same
// version-token rule as AddEntries.
func (c *Client) RemoveEntry(ctx context.Context, playlist *domain.Playlist, position int) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	if playlist.ETag == "" {
		return domain.ErrMissingToken
	}
	header := http.Header{}
	header.Set("If-None-Match", playlist.ETag)
	path := fmt.Sprintf("playlists/%s/tracks/%d", playlist.ID, position)
	_, _, err := c.do(ctx, http.MethodDelete, path, nil, nil, header)
	return err
}
