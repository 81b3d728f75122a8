// Package catalog serves album metadata through the durable cache so
// repeated listings do not refetch unchanged albums.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tidewave/coda/internal/domain"
	"github.com/tidewave/coda/internal/fetch"
)

// Service is the cached view of the remote catalog. Albums are stored
// as the raw payloads the remote returned; a cached payload is served
// only if it parses to a complete album, anything else is a miss.
type Service struct {
	client  domain.CatalogClient
	store   domain.Store
	pool    *fetch.Pool
	logger  *slog.Logger
	enabled bool
}

// NewService creates a catalog service. With enabled false every album
// read goes to the remote.
func NewService(client domain.CatalogClient, store domain.Store, pool *fetch.Pool, enabled bool, logger *slog.Logger) *Service {
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

// GetAlbum returns the album, served from the cache when a complete
// copy is stored.
func (s *Service) GetAlbum(ctx context.Context, id string) (*domain.Album, error) {
	if album := s.cachedAlbum(id); album != nil {
		return album, nil
	}
	return s.RefreshAlbum(ctx, id)
}

// RefreshAlbum fetches the album from the remote, bypassing and
// overwriting any cached copy.
func (s *Service) RefreshAlbum(ctx context.Context, id string) (*domain.Album, error) {
	payload, err := s.client.GetAlbumPayload(ctx, id)
	if err != nil {
		return nil, err
	}
	album, err := s.client.ParseAlbum(payload)
	if err != nil {
		return nil, err
	}
	if s.enabled {
		if err := s.store.Insert(domain.StoreAlbums, id, payload, true); err != nil {
			s.logger.Error("failed to cache album", "albumID", id, "error", err)
		}
	}
	return album, nil
}

// cachedAlbum returns the cached album or nil. A payload that fails to
// parse, lacks its artist or is a partial summary counts as a miss.
func (s *Service) cachedAlbum(id string) *domain.Album {
	if !s.enabled {
		return nil
	}
	payload, ok := s.store.Fetch(domain.StoreAlbums, id)
	if !ok {
		return nil
	}
	album, err := s.client.ParseAlbum(payload)
	if err != nil {
		s.logger.Warn("dropping unreadable cached album", "albumID", id, "error", err)
		s.store.Delete(domain.StoreAlbums, id)
		return nil
	}
	if !album.Complete() || album.Artist == nil {
		return nil
	}
	return album
}

// GetTrack returns the track with its album completed from the cache
// when the remote only sent the nested summary.
func (s *Service) GetTrack(ctx context.Context, id string) (*domain.Track, error) {
	track, err := s.client.GetTrack(ctx, id)
	if err != nil {
		return nil, err
	}
	if track.Album != nil && !track.Album.Complete() {
		if album, err := s.GetAlbum(ctx, track.Album.ID); err == nil {
			track.Album = album
		}
	}
	return track, nil
}

// GetAlbumTracks returns the album's tracks with the complete album
// attached to each, served from one cached lookup instead of leaving
// every track with the nested summary.
func (s *Service) GetAlbumTracks(ctx context.Context, id string) ([]*domain.Track, error) {
	tracks, err := s.client.GetAlbumTracks(ctx, id)
	if err != nil {
		return nil, err
	}
	if album, err := s.GetAlbum(ctx, id); err == nil {
		for _, track := range tracks {
			track.Album = album
		}
	}
	return tracks, nil
}

// GetEntity resolves any entity kind by id. Playlists are not cached
// here; they belong to the playlist services.
func (s *Service) GetEntity(ctx context.Context, kind domain.Kind, id string) (domain.Entity, error) {
	switch kind {
	case domain.KindArtist:
		return s.client.GetArtist(ctx, id)
	case domain.KindAlbum:
		return s.GetAlbum(ctx, id)
	case domain.KindTrack:
		return s.GetTrack(ctx, id)
	case domain.KindVideo:
		return s.client.GetVideo(ctx, id)
	}
	return nil, domain.ErrNotFound
}

// EnrichTrackAlbums replaces partial nested album summaries in the
// track list with complete albums. Cached albums are used first;
// the rest are fetched as one pool batch and cached. Tracks whose
// album could not be fetched keep their summary.
func (s *Service) EnrichTrackAlbums(ctx context.Context, tracks []*domain.Track) {
	albums := make(map[string]*domain.Album)
	var missing []string
	for _, track := range tracks {
		if track.Album == nil || track.Album.Complete() {
			continue
		}
		id := track.Album.ID
		if _, seen := albums[id]; seen {
			continue
		}
		if album := s.cachedAlbum(id); album != nil {
			albums[id] = album
			continue
		}
		albums[id] = nil
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		jobs := make([]fetch.Job, 0, len(missing))
		for _, id := range missing {
			jobs = append(jobs, fetch.Job{Kind: domain.KindAlbum, ID: id})
		}
		results, skipped := s.pool.Run(ctx, jobs, func(ctx context.Context, job fetch.Job) (interface{}, error) {
			return s.client.GetAlbumPayload(ctx, job.ID)
		})
		for _, r := range results {
			payload, _ := r.Value.(json.RawMessage)
			album, err := s.client.ParseAlbum(payload)
			if err != nil {
				s.logger.Warn("skipping unreadable album payload", "albumID", r.Job.ID, "error", err)
				continue
			}
			if s.enabled {
				if err := s.store.Insert(domain.StoreAlbums, r.Job.ID, payload, true); err != nil {
					s.logger.Error("failed to cache album", "albumID", r.Job.ID, "error", err)
				}
			}
			albums[r.Job.ID] = album
		}
		if skipped > 0 {
			s.logger.Warn("album enrichment incomplete", "missing", len(missing), "skipped", skipped)
		}
	}

	for _, track := range tracks {
		if track.Album == nil || track.Album.Complete() {
			continue
		}
		if album := albums[track.Album.ID]; album != nil {
			track.Album = album
		}
	}
}

// RebuildCache refetches every cached album from the remote, replacing
// stale payloads in place.
func (s *Service) RebuildCache(ctx context.Context) {
	if !s.enabled {
		return
	}
	ids := s.store.FetchAllIDs(domain.StoreAlbums)
	if len(ids) == 0 {
		return
	}
	jobs := make([]fetch.Job, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, fetch.Job{Kind: domain.KindAlbum, ID: id})
	}
	results, skipped := s.pool.Run(ctx, jobs, func(ctx context.Context, job fetch.Job) (interface{}, error) {
		return s.client.GetAlbumPayload(ctx, job.ID)
	})
	for _, r := range results {
		payload, _ := r.Value.(json.RawMessage)
		if err := s.store.Insert(domain.StoreAlbums, r.Job.ID, payload, true); err != nil {
			s.logger.Error("failed to cache album", "albumID", r.Job.ID, "error", err)
		}
	}
	s.logger.Info("album cache rebuilt", "albums", len(ids), "refreshed", len(results), "skipped", skipped)
}

// InvalidateCache drops every cached album payload.
func (s *Service) InvalidateCache() {
	s.store.DeleteAll(domain.StoreAlbums)
}
