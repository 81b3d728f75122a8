package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewave/coda/internal/domain"
)

func openTestStore(t *testing.T) *MetaStore {
	t.Helper()
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndFetch(t *testing.T) {
	s := openTestStore(t)

	payload := []byte(`{"id":101,"title":"Blue Train"}`)
	require.NoError(t, s.Insert(domain.StoreAlbums, "101", payload, true))

	got, ok := s.Fetch(domain.StoreAlbums, "101")
	require.True(t, ok)
	assert.Equal(t, payload, got)

	_, ok = s.Fetch(domain.StoreAlbums, "999")
	assert.False(t, ok)
}

func TestInsertWithoutOverwriteKeepsExisting(t *testing.T) {
	s := openTestStore(t)

	complete := []byte(`{"id":101,"releaseDate":"1957-09-15"}`)
	partial := []byte(`{"id":101}`)

	require.NoError(t, s.Insert(domain.StoreAlbums, "101", complete, true))
	require.NoError(t, s.Insert(domain.StoreAlbums, "101", partial, false))

	got, ok := s.Fetch(domain.StoreAlbums, "101")
	require.True(t, ok)
	assert.Equal(t, complete, got, "non-overwriting insert must not replace an existing payload")

	require.NoError(t, s.Insert(domain.StoreAlbums, "101", partial, true))
	got, _ = s.Fetch(domain.StoreAlbums, "101")
	assert.Equal(t, partial, got)
}

func TestCollectionRegistrationThenFill(t *testing.T) {
	s := openTestStore(t)

	// Register metadata only: no item list yet.
	require.NoError(t, s.InsertCollection(domain.StoreUserPlaylists, "pl-1", "Road Trip", nil, false))

	col, ok := s.FetchCollection(domain.StoreUserPlaylists, "pl-1")
	require.True(t, ok)
	assert.False(t, col.HasItems)
	assert.Equal(t, "Road Trip", col.Title)

	// Registering again without overwrite must not reset anything.
	require.NoError(t, s.InsertCollection(domain.StoreUserPlaylists, "pl-1", "Renamed", nil, false))
	col, _ = s.FetchCollection(domain.StoreUserPlaylists, "pl-1")
	assert.Equal(t, "Road Trip", col.Title)

	// Fill the item list.
	require.NoError(t, s.InsertCollection(domain.StoreUserPlaylists, "pl-1", "Road Trip", []string{"t1", "t2"}, true))
	col, _ = s.FetchCollection(domain.StoreUserPlaylists, "pl-1")
	assert.True(t, col.HasItems)
	assert.Equal(t, []string{"t1", "t2"}, col.Items)
}

func TestEmptyItemListIsStillFilled(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.InsertCollection(domain.StoreUserPlaylists, "pl-empty", "Empty", []string{}, true))

	col, ok := s.FetchCollection(domain.StoreUserPlaylists, "pl-empty")
	require.True(t, ok)
	assert.True(t, col.HasItems, "a filled but empty list is not the same as an unfilled one")
	assert.Empty(t, col.Items)
}

func TestDeleteAndDeleteAll(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Insert(domain.StoreAlbums, "1", []byte(`{}`), true))
	require.NoError(t, s.Insert(domain.StoreAlbums, "2", []byte(`{}`), true))
	require.NoError(t, s.InsertCollection(domain.StoreFavorites, "tracks", "", []string{"t1"}, true))

	s.Delete(domain.StoreAlbums, "1")
	_, ok := s.Fetch(domain.StoreAlbums, "1")
	assert.False(t, ok)

	s.DeleteAll(domain.StoreAlbums)
	assert.Empty(t, s.FetchAllIDs(domain.StoreAlbums))

	// Other namespaces are untouched.
	_, ok = s.FetchCollection(domain.StoreFavorites, "tracks")
	assert.True(t, ok)
}

func TestFetchAllIDsAndCollections(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.InsertCollection(domain.StoreUserPlaylists, "a", "A", []string{"1"}, true))
	require.NoError(t, s.InsertCollection(domain.StoreUserPlaylists, "b", "B", nil, false))

	ids := s.FetchAllIDs(domain.StoreUserPlaylists)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	cols := s.FetchAllCollections(domain.StoreUserPlaylists)
	require.Len(t, cols, 2)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Insert(domain.StoreAlbums, "101", []byte(`{"id":101}`), true))
	require.NoError(t, s.Close())

	s, err = Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	got, ok := s.Fetch(domain.StoreAlbums, "101")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":101}`, string(got))
}

func TestMemoryOnlyMode(t *testing.T) {
	s, err := Open("", nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Insert(domain.StoreAlbums, "101", []byte(`{}`), true))
	_, ok := s.Fetch(domain.StoreAlbums, "101")
	assert.True(t, ok)
	assert.Equal(t, []string{"101"}, s.FetchAllIDs(domain.StoreAlbums))

	s.DeleteAll(domain.StoreAlbums)
	assert.Empty(t, s.FetchAllIDs(domain.StoreAlbums))
}
