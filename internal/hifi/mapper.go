package hifi

import (
	"time"

	"github.com/tidewave/coda/internal/domain"
)

const (
	dateLayout = "2006-01-02"
	isoLayout  = "2006-01-02T15:04:05.000-0700"
)

// parseDate accepts both the plain-date and ISO timestamp forms the API
// mixes freely.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(isoLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func mapArtist(a *artistJSON) *domain.Artist {
	if a == nil {
		return nil
	}
	return &domain.Artist{
		ID:        string(a.ID),
		Name:      a.Name,
		PictureID: a.Picture,
	}
}

func mapArtists(main *artistJSON, all []artistJSON) (*domain.Artist, []*domain.Artist) {
	artist := mapArtist(main)
	if artist == nil && len(all) > 0 {
		artist = mapArtist(&all[0])
	}
	artists := make([]*domain.Artist, 0, len(all))
	for i := range all {
		artists = append(artists, mapArtist(&all[i]))
	}
	if len(artists) == 0 && artist != nil {
		artists = append(artists, artist)
	}
	return artist, artists
}

func mapAlbum(a *albumJSON) *domain.Album {
	if a == nil {
		return nil
	}
	album := &domain.Album{
		ID:              string(a.ID),
		Title:           a.Title,
		Duration:        time.Duration(a.Duration) * time.Second,
		NumberOfTracks:  a.NumberOfTracks,
		NumberOfVolumes: a.NumberOfVolumes,
		ReleaseDate:     parseDate(a.ReleaseDate),
		StreamStartDate: parseDate(a.StreamStartDate),
		CoverID:         a.Cover,
		Explicit:        a.Explicit,
	}
	album.Artist, album.Artists = mapArtists(a.Artist, a.Artists)
	return album
}

func mapTrack(t *trackJSON) *domain.Track {
	if t == nil {
		return nil
	}
	track := &domain.Track{
		ID:           string(t.ID),
		Title:        t.Title,
		Duration:     time.Duration(t.Duration) * time.Second,
		TrackNumber:  t.TrackNumber,
		VolumeNumber: t.VolumeNumber,
		Explicit:     t.Explicit,
		Playable:     t.StreamReady && t.AllowStreaming,
	}
	track.Artist, track.Artists = mapArtists(t.Artist, t.Artists)
	track.Album = mapAlbum(t.Album)
	if track.Album != nil && track.Album.Artist == nil {
		track.Album.Artist = track.Artist
	}
	return track
}

func mapVideo(v *videoJSON) *domain.Video {
	if v == nil {
		return nil
	}
	video := &domain.Video{
		ID:          string(v.ID),
		Title:       v.Title,
		Duration:    time.Duration(v.Duration) * time.Second,
		Quality:     v.Quality,
		ReleaseDate: parseDate(v.ReleaseDate),
		Playable:    v.StreamReady && v.AllowStreaming,
	}
	video.Artist, video.Artists = mapArtists(v.Artist, v.Artists)
	return video
}

func mapPromotion(p *promotionJSON) domain.Promotion {
	return domain.Promotion{
		Type:       p.Type,
		ArtifactID: string(p.ArtifactID),
		Header:     p.Header,
		SubHeader:  p.SubHeader,
		Text:       p.Text,
		ImageID:    p.ImageID,
		Group:      p.Group,
		Created:    parseDate(p.Created),
	}
}

func mapPlaylist(p *playlistJSON) *domain.Playlist {
	if p == nil {
		return nil
	}
	return &domain.Playlist{
		ID:             p.UUID,
		Title:          p.Title,
		Description:    p.Description,
		Type:           p.Type,
		NumberOfTracks: p.NumberOfTracks,
		NumberOfVideos: p.NumberOfVideos,
		Duration:       time.Duration(p.Duration) * time.Second,
		LastUpdated:    parseDate(p.LastUpdated),
		ImageID:        p.Image,
	}
}
