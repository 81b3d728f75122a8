package domain

import (
	"context"
	"encoding/json"
)

// CatalogClient is the slice of the remote catalog API consumed by the
// entity cache. Implementations map wire JSON to domain entities
// explicitly; unknown fields are dropped by struct decoding.
type CatalogClient interface {
	GetArtist(ctx context.Context, id string) (*Artist, error)
	GetAlbum(ctx context.Context, id string) (*Album, error)
	GetTrack(ctx context.Context, id string) (*Track, error)
	GetVideo(ctx context.Context, id string) (*Video, error)
	GetAlbumTracks(ctx context.Context, id string) ([]*Track, error)

	// GetAlbumPayload fetches the raw album JSON as stored in the cache.
	// The fetch pool uses it so payloads round-trip the store unmodified.
	GetAlbumPayload(ctx context.Context, id string) (json.RawMessage, error)

	// ParseAlbum maps a stored raw payload back to an Album. Pure, no I/O.
	ParseAlbum(payload []byte) (*Album, error)
}

// FavoritesClient covers the favorites endpoints of the remote API.
type FavoritesClient interface {
	// LoadAllIDs returns the id-lists of all five favorite kinds in a
	// single call.
	LoadAllIDs(ctx context.Context) (map[Kind][]string, error)

	// ListIDs returns the current id-list of one kind.
	ListIDs(ctx context.Context, kind Kind) ([]string, error)

	// List returns full entities of one kind, for menu listings.
	List(ctx context.Context, kind Kind) ([]Entity, error)

	Add(ctx context.Context, kind Kind, ids []string) error
	Remove(ctx context.Context, kind Kind, id string) error
}

// PlaylistClient covers the playlist endpoints of the remote API.
// Mutations take the playlist object because they echo its version
// token (ETag) in a conditional-request header; a stale token yields
// ErrTokenConflict, a missing one ErrMissingToken.
type PlaylistClient interface {
	GetUserPlaylists(ctx context.Context) ([]*Playlist, error)
	GetPlaylist(ctx context.Context, id string) (*Playlist, error)
	GetPlaylistEntries(ctx context.Context, playlist *Playlist) ([]PlaylistEntry, error)

	// GetPlaylistItemIDs returns just the entry ids, in playlist order.
	GetPlaylistItemIDs(ctx context.Context, playlist *Playlist) ([]string, error)

	CreatePlaylist(ctx context.Context, title, description string) (*Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	AddEntries(ctx context.Context, playlist *Playlist, ids []string) error
	RemoveEntry(ctx context.Context, playlist *Playlist, position int) error
}

// StreamClient resolves playable items to stream URLs.
type StreamClient interface {
	GetTrackStream(ctx context.Context, id, quality string) (*StreamURL, error)
	GetVideoStream(ctx context.Context, id string) (*StreamURL, error)
}
