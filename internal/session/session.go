// Package session wires the API client, the metadata store and the
// sync services into one facade the command layer talks to.
package session

import (
	"context"
	"log/slog"

	"github.com/tidewave/coda/internal/adapter"
	"github.com/tidewave/coda/internal/catalog"
	"github.com/tidewave/coda/internal/domain"
	"github.com/tidewave/coda/internal/favorites"
	"github.com/tidewave/coda/internal/fetch"
	"github.com/tidewave/coda/internal/hifi"
	"github.com/tidewave/coda/internal/store"
	"github.com/tidewave/coda/internal/userplaylist"
)

// Session is the composed application session. The sub-services are
// exported; commands call them directly for anything beyond the
// lifecycle operations below.
type Session struct {
	cfg    *adapter.Config
	client *hifi.Client
	store  domain.Store
	logger *slog.Logger

	Catalog   *catalog.Service
	Favorites *favorites.Service
	Playlists *userplaylist.Service
}

// New builds a session from the loaded configuration. A persisted
// account is installed on the client; an unusable cache file degrades
// to memory-only caching rather than failing startup.
func New(cfg *adapter.Config, logger *slog.Logger) (*Session, error) {
	client := hifi.NewClient(cfg.API.BaseURL, hifi.Tokens{
		API:      cfg.API.Token,
		Playlist: cfg.API.PlaylistToken,
		Preview:  cfg.API.PreviewToken,
	}, cfg.Fetch.RequestsPerSecond, logger)
	client.SetPageSize(cfg.Fetch.PageSize)

	if cfg.IsLoggedIn() {
		client.SetSession(hifi.Session{
			UserID:            cfg.Account.UserID,
			SessionID:         cfg.Account.SessionID,
			PlaylistSessionID: cfg.Account.PlaylistSessionID,
			CountryCode:       cfg.Account.CountryCode,
			SubscriptionType:  cfg.Account.SubscriptionType,
		})
	}

	metaStore, err := store.Open(cfg.CacheDir(), logger)
	if err != nil {
		return nil, err
	}

	pool := fetch.NewPool(cfg.Fetch.MaxRequests, logger)

	return &Session{
		cfg:       cfg,
		client:    client,
		store:     metaStore,
		logger:    logger,
		Catalog:   catalog.NewService(client, metaStore, pool, cfg.Cache.Albums, logger),
		Favorites: favorites.NewService(client, metaStore, cfg.Cache.Favorites, logger),
		Playlists: userplaylist.NewService(client, metaStore, pool, cfg.Cache.Playlists, logger),
	}, nil
}

// Login authenticates the user and persists the resulting session.
func (s *Session) Login(ctx context.Context, username, password string) error {
	sess, err := s.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if sess.CountryCode == "" {
		if country, err := s.client.DetectCountry(ctx); err == nil {
			sess.CountryCode = country
		}
	}
	s.client.SetSession(sess)

	// The subscription level decides whether lossless streams may be
	// requested. A failed lookup leaves it undetermined.
	if subscription, err := s.client.FetchSubscription(ctx); err == nil {
		sess.SubscriptionType = subscription
		s.client.SetSession(sess)
	} else {
		s.logger.Warn("failed to determine subscription level", "error", err)
	}

	s.cfg.Account = adapter.AccountConfig{
		Username:          username,
		UserID:            sess.UserID,
		SessionID:         sess.SessionID,
		PlaylistSessionID: sess.PlaylistSessionID,
		CountryCode:       sess.CountryCode,
		SubscriptionType:  sess.SubscriptionType,
	}
	if err := adapter.SaveSession(s.cfg.Account); err != nil {
		s.logger.Error("failed to persist session", "error", err)
		return err
	}
	s.logger.Info("logged in", "username", username, "country", sess.CountryCode, "subscription", sess.SubscriptionType)
	return nil
}

// Logout drops the session and every per-user cache. Another account
// must never see the previous user's favorites or playlists.
func (s *Session) Logout() error {
	s.client.Logout()
	s.InvalidateCaches()
	s.cfg.Account = adapter.AccountConfig{}
	if err := adapter.ClearSession(); err != nil {
		return err
	}
	s.logger.Info("logged out")
	return nil
}

// LoggedIn reports whether the session has user credentials.
func (s *Session) LoggedIn() bool { return s.client.LoggedIn() }

// Search queries the remote catalog.
func (s *Session) Search(ctx context.Context, text string, kinds []domain.Kind, limit int) (*hifi.SearchResult, error) {
	return s.client.Search(ctx, text, kinds, limit)
}

// CollectionItems resolves the members of a container entity: an
// artist's albums, an album's tracks, or a playlist's entries.
func (s *Session) CollectionItems(ctx context.Context, kind domain.Kind, id string) ([]domain.Entity, error) {
	switch kind {
	case domain.KindArtist:
		albums, err := s.client.GetArtistAlbums(ctx, id, "")
		if err != nil {
			return nil, err
		}
		entities := make([]domain.Entity, 0, len(albums))
		for _, album := range albums {
			album.Favorite = s.Favorites.IsFavorite(ctx, domain.KindAlbum, album.ID)
			entities = append(entities, album)
		}
		return entities, nil
	case domain.KindAlbum:
		tracks, err := s.Catalog.GetAlbumTracks(ctx, id)
		if err != nil {
			return nil, err
		}
		s.DecorateTracks(ctx, tracks)
		entities := make([]domain.Entity, 0, len(tracks))
		for _, track := range tracks {
			entities = append(entities, track)
		}
		return entities, nil
	case domain.KindPlaylist:
		playlist, err := s.Playlists.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		entries, err := s.Playlists.Entries(ctx, playlist)
		if err != nil {
			return nil, err
		}
		tracks := make([]*domain.Track, 0, len(entries))
		for _, entry := range entries {
			if entry.Track != nil {
				tracks = append(tracks, entry.Track)
			}
		}
		s.DecorateTracks(ctx, tracks)
		entities := make([]domain.Entity, 0, len(entries))
		for _, entry := range entries {
			switch {
			case entry.Track != nil:
				entities = append(entities, entry.Track)
			case entry.Video != nil:
				entities = append(entities, entry.Video)
			}
		}
		return entities, nil
	}
	return nil, domain.ErrNotFound
}

// SimilarArtists lists artists related to the given one, with favorite
// flags resolved.
func (s *Session) SimilarArtists(ctx context.Context, artistID string) ([]*domain.Artist, error) {
	artists, err := s.client.GetSimilarArtists(ctx, artistID)
	if err != nil {
		return nil, err
	}
	for _, artist := range artists {
		artist.Favorite = s.Favorites.IsFavorite(ctx, domain.KindArtist, artist.ID)
	}
	return artists, nil
}

// ArtistRadio returns a generated track mix seeded by the artist,
// decorated like any other listing.
func (s *Session) ArtistRadio(ctx context.Context, artistID string) ([]*domain.Track, error) {
	tracks, err := s.client.GetArtistRadio(ctx, artistID, 100)
	if err != nil {
		return nil, err
	}
	s.DecorateTracks(ctx, tracks)
	return tracks, nil
}

// Promotions returns the featured-content banners, with favorite flags
// resolved for the promoted items.
func (s *Session) Promotions(ctx context.Context, group string) ([]domain.Promotion, error) {
	promotions, err := s.client.GetPromotions(ctx, group)
	if err != nil {
		return nil, err
	}
	for i := range promotions {
		switch promotions[i].Type {
		case "ALBUM":
			promotions[i].Favorite = s.Favorites.IsFavorite(ctx, domain.KindAlbum, promotions[i].ArtifactID)
		case "PLAYLIST":
			promotions[i].Favorite = s.Favorites.IsFavorite(ctx, domain.KindPlaylist, promotions[i].ArtifactID)
		case "VIDEO":
			promotions[i].Favorite = s.Favorites.IsFavorite(ctx, domain.KindVideo, promotions[i].ArtifactID)
		}
	}
	return promotions, nil
}

// TrackStreamURL resolves a track to a playable URL at the configured
// quality.
func (s *Session) TrackStreamURL(ctx context.Context, id string) (*domain.StreamURL, error) {
	return s.client.GetTrackStream(ctx, id, s.cfg.Playback.Quality)
}

// VideoStreamURL resolves a video to a playable URL.
func (s *Session) VideoStreamURL(ctx context.Context, id string) (*domain.StreamURL, error) {
	return s.client.GetVideoStream(ctx, id)
}

// DecorateTracks completes partial albums and stamps each track with
// its favorite flag and the user playlists containing it. This is the
// single pass a listing goes through before display.
func (s *Session) DecorateTracks(ctx context.Context, tracks []*domain.Track) {
	s.Catalog.EnrichTrackAlbums(ctx, tracks)
	for _, track := range tracks {
		track.Favorite = s.Favorites.IsFavorite(ctx, domain.KindTrack, track.ID)
		track.Playlists = s.Playlists.PlaylistsForItem(ctx, track.ID)
	}
}

// DecorateVideos stamps each video with its favorite flag and playlist
// membership.
func (s *Session) DecorateVideos(ctx context.Context, videos []*domain.Video) {
	for _, video := range videos {
		video.Favorite = s.Favorites.IsFavorite(ctx, domain.KindVideo, video.ID)
		video.Playlists = s.Playlists.PlaylistsForItem(ctx, video.ID)
	}
}

// InvalidateCaches drops every cached namespace.
func (s *Session) InvalidateCaches() {
	s.Catalog.InvalidateCache()
	s.Favorites.DeleteCache()
	s.Playlists.InvalidateCache()
}

// Close releases the backing store.
func (s *Session) Close() error {
	return s.store.Close()
}
