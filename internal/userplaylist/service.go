// Package userplaylist reconciles the user's own playlists with the
// remote service and maintains a reverse index answering "which of my
// playlists contain this item".
package userplaylist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tidewave/coda/internal/domain"
	"github.com/tidewave/coda/internal/fetch"
)

// Service owns the user-playlist cache. The stored collections survive
// restarts; the reverse index is rebuilt in memory from them and only
// swapped in as a whole, so readers never observe a half-built index.
type Service struct {
	client  domain.PlaylistClient
	store   domain.Store
	pool    *fetch.Pool
	logger  *slog.Logger
	enabled bool

	mu    sync.RWMutex
	index map[string][]domain.PlaylistRef // item id -> containing playlists; nil = uninitialized
}

// NewService creates a user-playlist service. With enabled false the
// index stays empty and no store or remote traffic happens on queries.
func NewService(client domain.PlaylistClient, store domain.Store, pool *fetch.Pool, enabled bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:  client,
		store:   store,
		pool:    pool,
		logger:  logger,
		enabled: enabled,
	}
}

// Sync reconciles the stored playlist collections against the remote
// authoritative list, fetches item ids for playlists that lack them,
// and rebuilds the reverse index. On remote failure the previous index
// stays in place.
func (s *Service) Sync(ctx context.Context) error {
	if !s.enabled {
		s.mu.Lock()
		s.index = map[string][]domain.PlaylistRef{}
		s.mu.Unlock()
		return nil
	}

	stored := make(map[string]domain.Collection)
	for _, col := range s.store.FetchAllCollections(domain.StoreUserPlaylists) {
		stored[col.ID] = col
	}

	remote, err := s.client.GetUserPlaylists(ctx)
	if err != nil {
		s.logger.Error("failed to list user playlists", "error", err)
		return err
	}

	// Drop stored playlists that no longer exist remotely.
	remoteIDs := make(map[string]bool, len(remote))
	for _, p := range remote {
		remoteIDs[p.ID] = true
	}
	for id := range stored {
		if !remoteIDs[id] {
			s.logger.Debug("dropping stale playlist", "playlistID", id)
			s.store.Delete(domain.StoreUserPlaylists, id)
			delete(stored, id)
		}
	}

	// Register every remote playlist without clobbering filled entries,
	// then fetch item ids for the ones that lack them.
	var incomplete []*domain.Playlist
	for _, p := range remote {
		if err := s.store.InsertCollection(domain.StoreUserPlaylists, p.ID, p.Title, nil, false); err != nil {
			s.logger.Error("failed to register playlist", "playlistID", p.ID, "error", err)
		}
		if col, ok := stored[p.ID]; !ok || !col.HasItems {
			incomplete = append(incomplete, p)
		}
	}

	skipped := 0
	if len(incomplete) > 0 {
		jobs := make([]fetch.Job, 0, len(incomplete))
		for _, p := range incomplete {
			jobs = append(jobs, fetch.Job{Kind: domain.KindPlaylist, ID: p.ID, Payload: p})
		}
		var results []fetch.Result
		results, skipped = s.pool.Run(ctx, jobs, func(ctx context.Context, job fetch.Job) (interface{}, error) {
			return s.client.GetPlaylistItemIDs(ctx, job.Payload.(*domain.Playlist))
		})
		for _, r := range results {
			ids, _ := r.Value.([]string)
			if ids == nil {
				ids = []string{}
			}
			title := r.Job.Payload.(*domain.Playlist).Title
			if err := s.store.InsertCollection(domain.StoreUserPlaylists, r.Job.ID, title, ids, true); err != nil {
				s.logger.Error("failed to store playlist items", "playlistID", r.Job.ID, "error", err)
			}
		}
	}

	index := make(map[string][]domain.PlaylistRef)
	for _, col := range s.store.FetchAllCollections(domain.StoreUserPlaylists) {
		if !col.HasItems {
			continue
		}
		ref := domain.PlaylistRef{ID: col.ID, Title: col.Title}
		for _, itemID := range col.Items {
			index[itemID] = append(index[itemID], ref)
		}
	}
	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	if skipped > 0 {
		s.logger.Warn("playlist sync incomplete", "playlists", len(remote), "skipped", skipped)
	} else {
		s.logger.Debug("playlist sync complete", "playlists", len(remote), "refetched", len(incomplete))
	}
	return nil
}

// ensureIndex runs a sync if the reverse index was never built.
func (s *Service) ensureIndex(ctx context.Context) error {
	s.mu.RLock()
	ready := s.index != nil
	s.mu.RUnlock()
	if ready {
		return nil
	}
	return s.Sync(ctx)
}

// PlaylistsForItem returns the user playlists containing the item.
func (s *Service) PlaylistsForItem(ctx context.Context, itemID string) []domain.PlaylistRef {
	if err := s.ensureIndex(ctx); err != nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := s.index[itemID]
	out := make([]domain.PlaylistRef, len(refs))
	copy(out, refs)
	return out
}

// IsItemInPlaylist reports whether the item is in the given playlist.
func (s *Service) IsItemInPlaylist(ctx context.Context, itemID, playlistID string) bool {
	for _, ref := range s.PlaylistsForItem(ctx, itemID) {
		if ref.ID == playlistID {
			return true
		}
	}
	return false
}

// List returns the user's playlists from the remote.
func (s *Service) List(ctx context.Context) ([]*domain.Playlist, error) {
	return s.client.GetUserPlaylists(ctx)
}

// Get returns one playlist with a fresh version token.
func (s *Service) Get(ctx context.Context, id string) (*domain.Playlist, error) {
	return s.client.GetPlaylist(ctx, id)
}

// Entries returns the playlist's ordered entry list.
func (s *Service) Entries(ctx context.Context, playlist *domain.Playlist) ([]domain.PlaylistEntry, error) {
	return s.client.GetPlaylistEntries(ctx, playlist)
}

// AddEntries appends ids to the playlist, skipping ones it already
// contains. Returns the ids actually sent. A playlist without a version
// token is re-fetched to obtain one first. If the duplicate check
// cannot be established the call fails rather than risking duplicates.
func (s *Service) AddEntries(ctx context.Context, playlist *domain.Playlist, ids []string) ([]string, error) {
	if playlist.ETag == "" {
		fresh, err := s.client.GetPlaylist(ctx, playlist.ID)
		if err != nil {
			return nil, err
		}
		*playlist = *fresh
	}

	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if !s.IsItemInPlaylist(ctx, id, playlist.ID) {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		s.logger.Debug("all items already in playlist", "playlistID", playlist.ID)
		return nil, nil
	}

	if err := s.client.AddEntries(ctx, playlist, missing); err != nil {
		s.logger.Error("failed to add playlist entries", "playlistID", playlist.ID, "error", err)
		return nil, err
	}
	s.MarkModified(playlist.ID)
	return missing, nil
}

// RemoveEntryAt removes the entry at the given zero-based position.
func (s *Service) RemoveEntryAt(ctx context.Context, playlist *domain.Playlist, position int) error {
	if playlist.ETag == "" {
		fresh, err := s.client.GetPlaylist(ctx, playlist.ID)
		if err != nil {
			return err
		}
		*playlist = *fresh
	}
	if err := s.client.RemoveEntry(ctx, playlist, position); err != nil {
		s.logger.Error("failed to remove playlist entry", "playlistID", playlist.ID, "position", position, "error", err)
		return err
	}
	s.MarkModified(playlist.ID)
	return nil
}

// RemoveItem removes an item by id, resolving its current position from
// the live entry list first.
func (s *Service) RemoveItem(ctx context.Context, playlist *domain.Playlist, itemID string) error {
	ids, err := s.client.GetPlaylistItemIDs(ctx, playlist)
	if err != nil {
		return err
	}
	for position, id := range ids {
		if id == itemID {
			return s.RemoveEntryAt(ctx, playlist, position)
		}
	}
	return domain.ErrNotFound
}

// MoveEntry moves the item at position in from into to. The add runs
// first; if the removal then fails the item exists in both playlists
// and ErrMoveIncomplete is returned so the caller can surface it.
func (s *Service) MoveEntry(ctx context.Context, from *domain.Playlist, position int, itemID string, to *domain.Playlist) error {
	if _, err := s.AddEntries(ctx, to, []string{itemID}); err != nil {
		return err
	}
	if err := s.RemoveEntryAt(ctx, from, position); err != nil {
		return fmt.Errorf("%w: added to %q but still in %q: %v", domain.ErrMoveIncomplete, to.Title, from.Title, err)
	}
	return nil
}

// Create creates a new user playlist and registers it as empty.
func (s *Service) Create(ctx context.Context, title, description string) (*domain.Playlist, error) {
	playlist, err := s.client.CreatePlaylist(ctx, title, description)
	if err != nil {
		s.logger.Error("failed to create playlist", "title", title, "error", err)
		return nil, err
	}
	if s.enabled {
		if err := s.store.InsertCollection(domain.StoreUserPlaylists, playlist.ID, playlist.Title, []string{}, true); err != nil {
			s.logger.Error("failed to register created playlist", "playlistID", playlist.ID, "error", err)
		}
	}
	s.invalidateIndex()
	return playlist, nil
}

// Delete removes a user playlist remotely and from the cache.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.client.DeletePlaylist(ctx, id); err != nil {
		s.logger.Error("failed to delete playlist", "playlistID", id, "error", err)
		return err
	}
	s.MarkModified(id)
	return nil
}

// MarkModified records that a playlist changed, here or elsewhere. Its
// stored item list is dropped and the reverse index goes back to
// uninitialized, so the next query runs a reconciliation that refetches
// only this playlist. The index is never patched in place: a concurrent
// edit by another client could not be represented that way.
func (s *Service) MarkModified(id string) {
	s.store.Delete(domain.StoreUserPlaylists, id)
	s.invalidateIndex()
}

func (s *Service) invalidateIndex() {
	s.mu.Lock()
	s.index = nil
	s.mu.Unlock()
}

// InvalidateCache drops all stored playlist collections and resets the
// index to uninitialized.
func (s *Service) InvalidateCache() {
	s.store.DeleteAll(domain.StoreUserPlaylists)
	s.invalidateIndex()
}
