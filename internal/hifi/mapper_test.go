package hifi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateForms(t *testing.T) {
	assert.Equal(t, 1957, parseDate("1957-09-15").Year())
	assert.Equal(t, 2014, parseDate("2014-06-30T00:00:00.000+0000").Year())
	assert.True(t, parseDate("").IsZero())
	assert.True(t, parseDate("not a date").IsZero())
}

func TestMapAlbumCompleteness(t *testing.T) {
	var full albumJSON
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 101, "title": "Blue Train", "duration": 2580,
		"numberOfTracks": 5, "releaseDate": "1957-09-15",
		"artist": {"id": 7, "name": "John Coltrane"}
	}`), &full))

	album := mapAlbum(&full)
	assert.Equal(t, "101", album.ID)
	assert.True(t, album.Complete())
	assert.Equal(t, 43*time.Minute, album.Duration)
	require.NotNil(t, album.Artist)
	assert.Equal(t, "John Coltrane", album.Artist.Name)

	var nested albumJSON
	require.NoError(t, json.Unmarshal([]byte(`{"id": 101, "title": "Blue Train"}`), &nested))
	assert.False(t, mapAlbum(&nested).Complete(), "a summary without release date is partial")
}

func TestMapTrackFillsAlbumArtist(t *testing.T) {
	var tj trackJSON
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 1, "title": "Moment's Notice", "trackNumber": 2,
		"streamReady": true, "allowStreaming": true,
		"artist": {"id": 7, "name": "John Coltrane"},
		"album": {"id": 101, "title": "Blue Train"}
	}`), &tj))

	track := mapTrack(&tj)
	assert.True(t, track.Playable)
	require.NotNil(t, track.Album)
	require.NotNil(t, track.Album.Artist, "nested album summaries inherit the track artist")
	assert.Equal(t, "John Coltrane", track.Album.Artist.Name)
}

func TestMapTrackNotPlayableWithoutStreamRights(t *testing.T) {
	var tj trackJSON
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "streamReady": true, "allowStreaming": false}`), &tj))
	assert.False(t, mapTrack(&tj).Playable)
}

func TestMapPlaylist(t *testing.T) {
	var pj playlistJSON
	require.NoError(t, json.Unmarshal([]byte(`{
		"uuid": "p-1", "title": "Mix", "type": "USER",
		"numberOfTracks": 8, "numberOfVideos": 2, "duration": 600,
		"lastUpdated": "2014-06-30T09:12:00.000+0000"
	}`), &pj))

	playlist := mapPlaylist(&pj)
	assert.Equal(t, "p-1", playlist.ID)
	assert.True(t, playlist.IsUserPlaylist())
	assert.Equal(t, 10, playlist.NumberOfItems())
	assert.Equal(t, 10*time.Minute, playlist.Duration)
	assert.Equal(t, 2014, playlist.LastUpdated.Year())
}
