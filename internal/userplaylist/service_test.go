package userplaylist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewave/coda/internal/domain"
	"github.com/tidewave/coda/internal/fetch"
	"github.com/tidewave/coda/internal/store"
)

type fakeClient struct {
	playlists map[string]*domain.Playlist
	items     map[string][]string

	listCalls    int
	itemIDsCalls int
	addedIDs     [][]string
	removedPos   []int

	addErr    error
	removeErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		playlists: map[string]*domain.Playlist{
			"p1": {ID: "p1", Title: "Morning", Type: "USER", NumberOfTracks: 2, ETag: "v1"},
			"p2": {ID: "p2", Title: "Evening", Type: "USER", NumberOfTracks: 1, ETag: "v1"},
		},
		items: map[string][]string{
			"p1": {"t1", "t2"},
			"p2": {"t2"},
		},
	}
}

func (f *fakeClient) GetUserPlaylists(ctx context.Context) ([]*domain.Playlist, error) {
	f.listCalls++
	out := make([]*domain.Playlist, 0, len(f.playlists))
	for _, id := range []string{"p1", "p2", "p3"} {
		if p, ok := f.playlists[id]; ok {
			copied := *p
			copied.ETag = "" // listings carry no version token
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeClient) GetPlaylist(ctx context.Context, id string) (*domain.Playlist, error) {
	p, ok := f.playlists[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeClient) GetPlaylistEntries(ctx context.Context, playlist *domain.Playlist) ([]domain.PlaylistEntry, error) {
	entries := make([]domain.PlaylistEntry, 0)
	for i, id := range f.items[playlist.ID] {
		entries = append(entries, domain.PlaylistEntry{Position: i, Track: &domain.Track{ID: id}})
	}
	return entries, nil
}

func (f *fakeClient) GetPlaylistItemIDs(ctx context.Context, playlist *domain.Playlist) ([]string, error) {
	f.itemIDsCalls++
	return append([]string(nil), f.items[playlist.ID]...), nil
}

func (f *fakeClient) CreatePlaylist(ctx context.Context, title, description string) (*domain.Playlist, error) {
	p := &domain.Playlist{ID: "p-new", Title: title, Description: description, Type: "USER", ETag: "v1"}
	f.playlists[p.ID] = p
	f.items[p.ID] = []string{}
	return p, nil
}

func (f *fakeClient) DeletePlaylist(ctx context.Context, id string) error {
	delete(f.playlists, id)
	delete(f.items, id)
	return nil
}

func (f *fakeClient) AddEntries(ctx context.Context, playlist *domain.Playlist, ids []string) error {
	if playlist.ETag == "" {
		return domain.ErrMissingToken
	}
	if f.addErr != nil {
		return f.addErr
	}
	f.addedIDs = append(f.addedIDs, ids)
	f.items[playlist.ID] = append(f.items[playlist.ID], ids...)
	return nil
}

func (f *fakeClient) RemoveEntry(ctx context.Context, playlist *domain.Playlist, position int) error {
	if playlist.ETag == "" {
		return domain.ErrMissingToken
	}
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removedPos = append(f.removedPos, position)
	items := f.items[playlist.ID]
	if position >= 0 && position < len(items) {
		f.items[playlist.ID] = append(items[:position], items[position+1:]...)
	}
	return nil
}

func newTestService(t *testing.T, client *fakeClient) (*Service, domain.Store) {
	t.Helper()
	st, err := store.Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(client, st, fetch.NewPool(2, nil), true, nil), st
}

func TestSyncBuildsIndex(t *testing.T) {
	client := newFakeClient()
	svc, st := newTestService(t, client)
	ctx := context.Background()

	require.NoError(t, svc.Sync(ctx))

	refs := svc.PlaylistsForItem(ctx, "t2")
	require.Len(t, refs, 2)
	assert.True(t, svc.IsItemInPlaylist(ctx, "t1", "p1"))
	assert.False(t, svc.IsItemInPlaylist(ctx, "t1", "p2"))

	col, ok := st.FetchCollection(domain.StoreUserPlaylists, "p1")
	require.True(t, ok)
	assert.True(t, col.HasItems)
	assert.Equal(t, []string{"t1", "t2"}, col.Items)
	assert.Equal(t, "Morning", col.Title)
}

func TestSecondSyncSkipsFilledPlaylists(t *testing.T) {
	client := newFakeClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	require.NoError(t, svc.Sync(ctx))
	fetched := client.itemIDsCalls
	require.NoError(t, svc.Sync(ctx))

	assert.Equal(t, fetched, client.itemIDsCalls, "filled playlists must not be refetched")
}

func TestSyncDropsStalePlaylists(t *testing.T) {
	client := newFakeClient()
	svc, st := newTestService(t, client)
	ctx := context.Background()

	require.NoError(t, svc.Sync(ctx))
	require.True(t, svc.IsItemInPlaylist(ctx, "t2", "p2"))

	delete(client.playlists, "p2")
	delete(client.items, "p2")
	require.NoError(t, svc.Sync(ctx))

	assert.False(t, svc.IsItemInPlaylist(ctx, "t2", "p2"))
	_, ok := st.FetchCollection(domain.StoreUserPlaylists, "p2")
	assert.False(t, ok, "deleted playlists must leave the store")
}

func TestLazyIndexInitialization(t *testing.T) {
	client := newFakeClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	assert.True(t, svc.IsItemInPlaylist(ctx, "t1", "p1"))
	assert.Equal(t, 1, client.listCalls)
}

func TestAddEntriesFiltersDuplicates(t *testing.T) {
	client := newFakeClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()
	require.NoError(t, svc.Sync(ctx))

	playlist, err := svc.Get(ctx, "p1")
	require.NoError(t, err)

	added, err := svc.AddEntries(ctx, playlist, []string{"t1", "t9"})
	require.NoError(t, err)

	assert.Equal(t, []string{"t9"}, added)
	require.Len(t, client.addedIDs, 1)
	assert.Equal(t, []string{"t9"}, client.addedIDs[0])
	assert.True(t, svc.IsItemInPlaylist(ctx, "t9", "p1"))
}

func TestAddEntriesAllDuplicatesSkipsMutation(t *testing.T) {
	client := newFakeClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()
	require.NoError(t, svc.Sync(ctx))

	playlist, err := svc.Get(ctx, "p1")
	require.NoError(t, err)

	added, err := svc.AddEntries(ctx, playlist, []string{"t1", "t2"})
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Empty(t, client.addedIDs)
}

func TestAddEntriesFetchesVersionToken(t *testing.T) {
	client := newFakeClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()
	require.NoError(t, svc.Sync(ctx))

	// A playlist coming from a listing has no version token.
	playlist := &domain.Playlist{ID: "p1", Title: "Morning"}
	added, err := svc.AddEntries(ctx, playlist, []string{"t9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t9"}, added)
	assert.Equal(t, "v1", playlist.ETag)
}

func TestStaleTokenLeavesCacheUntouched(t *testing.T) {
	client := newFakeClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()
	require.NoError(t, svc.Sync(ctx))

	client.addErr = domain.ErrTokenConflict
	playlist, err := svc.Get(ctx, "p1")
	require.NoError(t, err)

	_, err = svc.AddEntries(ctx, playlist, []string{"t9"})
	require.ErrorIs(t, err, domain.ErrTokenConflict)

	assert.False(t, svc.IsItemInPlaylist(ctx, "t9", "p1"))
	assert.True(t, svc.IsItemInPlaylist(ctx, "t1", "p1"))
	assert.Equal(t, 1, client.listCalls, "a failed mutation must not invalidate the index")
}

func TestRemoveItemResolvesPosition(t *testing.T) {
	client := newFakeClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()
	require.NoError(t, svc.Sync(ctx))

	playlist, err := svc.Get(ctx, "p1")
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, playlist, "t2"))
	assert.Equal(t, []int{1}, client.removedPos)
	assert.False(t, svc.IsItemInPlaylist(ctx, "t2", "p1"))

	err = svc.RemoveItem(ctx, playlist, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMoveEntryReportsPartialFailure(t *testing.T) {
	client := newFakeClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()
	require.NoError(t, svc.Sync(ctx))

	from, err := svc.Get(ctx, "p1")
	require.NoError(t, err)
	to, err := svc.Get(ctx, "p2")
	require.NoError(t, err)

	client.removeErr = errors.New("remove failed")
	err = svc.MoveEntry(ctx, from, 0, "t1", to)
	require.ErrorIs(t, err, domain.ErrMoveIncomplete)

	// The add side went through.
	assert.True(t, svc.IsItemInPlaylist(ctx, "t1", "p2"))
}

func TestCreateRegistersEmptyPlaylist(t *testing.T) {
	client := newFakeClient()
	svc, st := newTestService(t, client)
	ctx := context.Background()

	playlist, err := svc.Create(ctx, "New Mix", "")
	require.NoError(t, err)

	col, ok := st.FetchCollection(domain.StoreUserPlaylists, playlist.ID)
	require.True(t, ok)
	assert.True(t, col.HasItems)
	assert.Empty(t, col.Items)
}

func TestMarkModifiedForcesRefetch(t *testing.T) {
	client := newFakeClient()
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	require.NoError(t, svc.Sync(ctx))
	fetched := client.itemIDsCalls

	svc.MarkModified("p1")
	require.NoError(t, svc.Sync(ctx))

	assert.Equal(t, fetched+1, client.itemIDsCalls, "only the modified playlist is refetched")
}
