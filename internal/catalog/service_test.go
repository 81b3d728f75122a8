package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewave/coda/internal/domain"
	"github.com/tidewave/coda/internal/fetch"
	"github.com/tidewave/coda/internal/store"
)

// albumPayload is the wire shape the fake client serves and parses.
type albumPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	ReleaseDate string `json:"releaseDate,omitempty"`
}

type fakeClient struct {
	albums map[string]albumPayload
	tracks map[string]*domain.Track

	payloadCalls int
	rateLimited  bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		albums: map[string]albumPayload{
			"al1": {ID: "al1", Title: "Blue Train", Artist: "John Coltrane", ReleaseDate: "1957-09-15"},
			"al2": {ID: "al2", Title: "Giant Steps", Artist: "John Coltrane", ReleaseDate: "1960-01-27"},
		},
		tracks: make(map[string]*domain.Track),
	}
}

func (f *fakeClient) GetAlbumPayload(ctx context.Context, id string) (json.RawMessage, error) {
	f.payloadCalls++
	if f.rateLimited {
		return nil, domain.ErrRateLimited
	}
	payload, ok := f.albums[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	data, _ := json.Marshal(payload)
	return data, nil
}

func (f *fakeClient) ParseAlbum(payload []byte) (*domain.Album, error) {
	var p albumPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	album := &domain.Album{ID: p.ID, Title: p.Title}
	if p.Artist != "" {
		album.Artist = &domain.Artist{Name: p.Artist}
	}
	if p.ReleaseDate != "" {
		album.ReleaseDate, _ = time.Parse("2006-01-02", p.ReleaseDate)
	}
	return album, nil
}

func (f *fakeClient) GetAlbum(ctx context.Context, id string) (*domain.Album, error) {
	payload, err := f.GetAlbumPayload(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.ParseAlbum(payload)
}

func (f *fakeClient) GetArtist(ctx context.Context, id string) (*domain.Artist, error) {
	return &domain.Artist{ID: id}, nil
}

func (f *fakeClient) GetTrack(ctx context.Context, id string) (*domain.Track, error) {
	track, ok := f.tracks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *track
	return &copied, nil
}

func (f *fakeClient) GetVideo(ctx context.Context, id string) (*domain.Video, error) {
	return &domain.Video{ID: id}, nil
}

func (f *fakeClient) GetAlbumTracks(ctx context.Context, id string) ([]*domain.Track, error) {
	return []*domain.Track{
		{ID: "t1", TrackNumber: 1, Album: &domain.Album{ID: id}},
		{ID: "t2", TrackNumber: 2, Album: &domain.Album{ID: id}},
	}, nil
}

func newTestService(t *testing.T, client *fakeClient) (*Service, domain.Store) {
	t.Helper()
	st, err := store.Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(client, st, fetch.NewPool(2, nil), true, nil), st
}

func TestGetAlbumCachesPayload(t *testing.T) {
	client := newFakeClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	album, err := svc.GetAlbum(ctx, "al1")
	require.NoError(t, err)
	assert.Equal(t, "Blue Train", album.Title)
	assert.Equal(t, 1957, album.Year())
	require.Equal(t, 1, client.payloadCalls)

	album, err = svc.GetAlbum(ctx, "al1")
	require.NoError(t, err)
	assert.Equal(t, "Blue Train", album.Title)
	assert.Equal(t, 1, client.payloadCalls, "second read must come from the cache")
}

func TestPartialCachedAlbumIsAMiss(t *testing.T) {
	client := newFakeClient()
	svc, st := newTestService(t, client)
	ctx := context.Background()

	// A nested summary (no release date) somehow ended up stored.
	partial, _ := json.Marshal(albumPayload{ID: "al1", Title: "Blue Train", Artist: "John Coltrane"})
	require.NoError(t, st.Insert(domain.StoreAlbums, "al1", partial, true))

	album, err := svc.GetAlbum(ctx, "al1")
	require.NoError(t, err)
	assert.True(t, album.Complete())
	assert.Equal(t, 1, client.payloadCalls, "partial cached copy must be refetched")

	// The refetch replaced the stored payload.
	_, err = svc.GetAlbum(ctx, "al1")
	require.NoError(t, err)
	assert.Equal(t, 1, client.payloadCalls)
}

func TestAlbumMissingArtistIsAMiss(t *testing.T) {
	client := newFakeClient()
	svc, st := newTestService(t, client)
	ctx := context.Background()

	headless, _ := json.Marshal(albumPayload{ID: "al1", Title: "Blue Train", ReleaseDate: "1957-09-15"})
	require.NoError(t, st.Insert(domain.StoreAlbums, "al1", headless, true))

	album, err := svc.GetAlbum(ctx, "al1")
	require.NoError(t, err)
	require.NotNil(t, album.Artist)
	assert.Equal(t, 1, client.payloadCalls)
}

func TestGetTrackCompletesAlbum(t *testing.T) {
	client := newFakeClient()
	client.tracks["t1"] = &domain.Track{
		ID:    "t1",
		Title: "Moment's Notice",
		Album: &domain.Album{ID: "al1", Title: "Blue Train"},
	}
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	track, err := svc.GetTrack(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, track.Album.Complete())
	assert.Equal(t, 1957, track.Album.Year())
}

func TestEnrichTrackAlbums(t *testing.T) {
	client := newFakeClient()
	svc, st := newTestService(t, client)
	ctx := context.Background()

	// al1 is already cached; al2 must be batch fetched.
	_, err := svc.GetAlbum(ctx, "al1")
	require.NoError(t, err)
	require.Equal(t, 1, client.payloadCalls)

	tracks := []*domain.Track{
		{ID: "t1", Album: &domain.Album{ID: "al1"}},
		{ID: "t2", Album: &domain.Album{ID: "al2"}},
		{ID: "t3", Album: &domain.Album{ID: "al2"}},
	}
	svc.EnrichTrackAlbums(ctx, tracks)

	assert.Equal(t, 2, client.payloadCalls, "only the uncached album is fetched, once")
	for _, track := range tracks {
		assert.True(t, track.Album.Complete(), "track %s", track.ID)
	}

	_, ok := st.Fetch(domain.StoreAlbums, "al2")
	assert.True(t, ok, "batch-fetched albums are cached")
}

func TestEnrichKeepsSummariesWhenRateLimited(t *testing.T) {
	client := newFakeClient()
	client.rateLimited = true
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	tracks := []*domain.Track{
		{ID: "t1", Album: &domain.Album{ID: "al1", Title: "summary"}},
		{ID: "t2", Album: &domain.Album{ID: "al2", Title: "summary"}},
	}
	svc.EnrichTrackAlbums(ctx, tracks)

	for _, track := range tracks {
		assert.False(t, track.Album.Complete())
		assert.Equal(t, "summary", track.Album.Title)
	}
}

func TestGetAlbumTracksAttachesAlbum(t *testing.T) {
	client := newFakeClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	tracks, err := svc.GetAlbumTracks(ctx, "al1")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	for _, track := range tracks {
		assert.Equal(t, "Blue Train", track.Album.Title)
		assert.True(t, track.Album.Complete())
	}
}

func TestRebuildCacheRefetchesStoredAlbums(t *testing.T) {
	client := newFakeClient()
	svc, st := newTestService(t, client)
	ctx := context.Background()

	_, err := svc.GetAlbum(ctx, "al1")
	require.NoError(t, err)
	_, err = svc.GetAlbum(ctx, "al2")
	require.NoError(t, err)
	require.Equal(t, 2, client.payloadCalls)

	client.albums["al1"] = albumPayload{ID: "al1", Title: "Blue Train (Remastered)", Artist: "John Coltrane", ReleaseDate: "1957-09-15"}
	svc.RebuildCache(ctx)

	assert.Equal(t, 4, client.payloadCalls)
	album, err := svc.GetAlbum(ctx, "al1")
	require.NoError(t, err)
	assert.Equal(t, "Blue Train (Remastered)", album.Title)
	_, ok := st.Fetch(domain.StoreAlbums, "al2")
	assert.True(t, ok)
}

func TestInvalidateCache(t *testing.T) {
	client := newFakeClient()
	svc, st := newTestService(t, client)
	ctx := context.Background()

	_, err := svc.GetAlbum(ctx, "al1")
	require.NoError(t, err)

	svc.InvalidateCache()
	assert.Empty(t, st.FetchAllIDs(domain.StoreAlbums))

	_, err = svc.GetAlbum(ctx, "al1")
	require.NoError(t, err)
	assert.Equal(t, 2, client.payloadCalls)
}
