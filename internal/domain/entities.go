package domain

import (
	"fmt"
	"time"
)

// Kind identifies a catalog entity type. It doubles as the key segment
// used by the store and the favorites API.
type Kind string

const (
	KindArtist   Kind = "artists"
	KindAlbum    Kind = "albums"
	KindPlaylist Kind = "playlists"
	KindTrack    Kind = "tracks"
	KindVideo    Kind = "videos"
)

// FavoriteKinds lists every kind a user can mark as favorite, in the
// order the remote favorites endpoint reports them.
var FavoriteKinds = []Kind{KindArtist, KindAlbum, KindPlaylist, KindTrack, KindVideo}

// Valid reports whether k names a known entity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindArtist, KindAlbum, KindPlaylist, KindTrack, KindVideo:
		return true
	}
	return false
}

// Entity is implemented by every catalog item the core hands to the
// menu layer. The core itself only ever needs the kind tag and id.
type Entity interface {
	EntityKind() Kind
	EntityID() string
}

// Artist represents a catalog artist.
type Artist struct {
	ID        string
	Name      string
	PictureID string // artwork reference
	Favorite  bool
}

func (a *Artist) EntityKind() Kind { return KindArtist }
func (a *Artist) EntityID() string { return a.ID }
func (a *Artist) Label() string    { return a.Name }

// Album represents a catalog album. An album decoded from a track's
// nested summary lacks ReleaseDate and is treated as partial: it must
// never replace a complete copy in the cache.
type Album struct {
	ID              string
	Title           string
	Artist          *Artist
	Artists         []*Artist
	CoverID         string
	Duration        time.Duration
	NumberOfTracks  int
	NumberOfVolumes int
	ReleaseDate     time.Time
	StreamStartDate time.Time
	Explicit        bool
	Favorite        bool
}

func (a *Album) EntityKind() Kind { return KindAlbum }
func (a *Album) EntityID() string { return a.ID }
func (a *Album) Label() string    { return a.Title }

// Complete reports whether this album came from a direct album fetch.
// Nested album summaries carry no release date.
func (a *Album) Complete() bool {
	return a != nil && !a.ReleaseDate.IsZero()
}

// Year returns the release year, falling back to the stream start date.
func (a *Album) Year() int {
	if !a.ReleaseDate.IsZero() {
		return a.ReleaseDate.Year()
	}
	if !a.StreamStartDate.IsZero() {
		return a.StreamStartDate.Year()
	}
	return 0
}

// PlaylistRef is a lightweight (id, title) pair used by the reverse
// index to answer "which user playlists contain this item".
type PlaylistRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Playlist represents an editorial or user playlist. ETag holds the
// version token from the last direct fetch; it authorizes mutations and
// is never persisted.
type Playlist struct {
	ID             string
	Title          string
	Description    string
	Type           string // "USER" or "EDITORIAL"
	NumberOfTracks int
	NumberOfVideos int
	Duration       time.Duration
	LastUpdated    time.Time
	ImageID        string
	Favorite       bool
	ETag           string `json:"-"`
}

func (p *Playlist) EntityKind() Kind { return KindPlaylist }
func (p *Playlist) EntityID() string { return p.ID }
func (p *Playlist) Label() string    { return p.Title }

// NumberOfItems returns the total entry count (tracks plus videos).
func (p *Playlist) NumberOfItems() int {
	return p.NumberOfTracks + p.NumberOfVideos
}

// IsUserPlaylist reports whether the playlist is owned by the session user.
func (p *Playlist) IsUserPlaylist() bool { return p.Type == "USER" }

// Track represents a catalog track. Album may be partial (see Album.Complete).
type Track struct {
	ID           string
	Title        string
	Artist       *Artist
	Artists      []*Artist
	Album        *Album
	Duration     time.Duration
	TrackNumber  int
	VolumeNumber int
	Explicit     bool
	Playable     bool
	Favorite     bool
	Playlists    []PlaylistRef // user playlists containing this track
}

func (t *Track) EntityKind() Kind { return KindTrack }
func (t *Track) EntityID() string { return t.ID }
func (t *Track) Label() string {
	if t.Artist != nil {
		return fmt.Sprintf("%s - %s", t.Artist.Name, t.Title)
	}
	return t.Title
}

// Video represents a music video.
type Video struct {
	ID          string
	Title       string
	Artist      *Artist
	Artists     []*Artist
	Duration    time.Duration
	Quality     string
	ReleaseDate time.Time
	Playable    bool
	Favorite    bool
	Playlists   []PlaylistRef
}

func (v *Video) EntityKind() Kind { return KindVideo }
func (v *Video) EntityID() string { return v.ID }
func (v *Video) Label() string {
	if v.Artist != nil {
		return fmt.Sprintf("%s - %s", v.Artist.Name, v.Title)
	}
	return v.Title
}

// PlaylistEntry is one positioned item of a playlist. Exactly one of
// Track/Video is set. Position is the zero-based index the remote API
// expects for entry removal.
type PlaylistEntry struct {
	Position int
	Track    *Track
	Video    *Video
}

// ItemID returns the id of the contained track or video.
func (e PlaylistEntry) ItemID() string {
	if e.Track != nil {
		return e.Track.ID
	}
	if e.Video != nil {
		return e.Video.ID
	}
	return ""
}

// Promotion is one featured-content banner from the promotions feed.
// ArtifactID identifies the promoted album, playlist or video; other
// types carry an external link the core does not resolve.
type Promotion struct {
	Type       string // "ALBUM", "PLAYLIST", "VIDEO" or "EXTURL"
	ArtifactID string
	Header     string
	SubHeader  string
	Text       string
	ImageID    string
	Group      string // "NEWS", "RISING" or "DISCOVERY"
	Created    time.Time
	Favorite   bool
}

// Page describes an offset/limit window on a paged list endpoint.
type Page struct {
	Offset int
	Limit  int
}

// StreamURL is a resolved playback location for a track or video.
type StreamURL struct {
	URL      string
	Quality  string
	Codec    string
	Preview  bool // trial/preview stream, not the full item
}
