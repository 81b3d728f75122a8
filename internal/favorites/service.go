// Package favorites keeps the user's five favorite-id sets consistent
// with the remote catalog across local mutations.
package favorites

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tidewave/coda/internal/domain"
)

// Target describes the item a toggle acts on. Favorite carries the
// membership flag the item was listed with, so no extra lookup is
// needed to decide the direction of the toggle.
type Target struct {
	Kind     domain.Kind
	ID       string
	Name     string
	Favorite bool
}

// ConfirmFunc lets the caller veto a toggle before the remote mutation
// is issued. A nil func means no confirmation step.
type ConfirmFunc func(target Target, add bool) bool

// Service answers favorite-membership queries in O(1) amortized and
// applies add/remove mutations. Each of the five kind sets is loaded
// lazily: first from the store, then via a full remote reload of all
// five kinds at once (the ids endpoint returns them in one call).
type Service struct {
	client  domain.FavoritesClient
	store   domain.Store
	logger  *slog.Logger
	enabled bool // favorites caching switched off => all sets stay empty

	mu   sync.Mutex
	sets map[domain.Kind][]string // loaded sets; missing key = unloaded
}

// NewService creates a favorites service. With enabled false no remote
// or store reads happen and every membership query answers false,
// matching the cache-disabled mode of the configuration.
func NewService(client domain.FavoritesClient, store domain.Store, enabled bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:  client,
		store:   store,
		logger:  logger,
		enabled: enabled,
		sets:    make(map[domain.Kind][]string),
	}
}

// IsFavorite reports whether id is a favorite of the given kind. On the
// first query for an unloaded kind the cached id-set is read from the
// store; if the store has none, all five sets are reloaded remotely.
func (s *Service) IsFavorite(ctx context.Context, kind domain.Kind, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[kind]
	if !ok {
		set = s.loadLocked(ctx, kind)
	}
	for _, fav := range set {
		if fav == id {
			return true
		}
	}
	return false
}

// loadLocked populates the set for kind and returns it. Caller holds mu.
func (s *Service) loadLocked(ctx context.Context, kind domain.Kind) []string {
	if !s.enabled {
		s.sets[kind] = []string{}
		return nil
	}
	if col, ok := s.store.FetchCollection(domain.StoreFavorites, string(kind)); ok && col.HasItems {
		s.sets[kind] = col.Items
		return col.Items
	}
	// Not in the store: one remote call refreshes all five kinds.
	if err := s.loadAllLocked(ctx); err != nil {
		s.logger.Error("failed to load favorites", "error", err)
		return nil
	}
	return s.sets[kind]
}

// LoadAll unconditionally reloads all five id-sets from the remote and
// fully replaces both the in-memory and the stored lists. This is the
// reconciliation point against edits made by other clients.
func (s *Service) LoadAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadAllLocked(ctx)
}

func (s *Service) loadAllLocked(ctx context.Context) error {
	all, err := s.client.LoadAllIDs(ctx)
	if err != nil {
		return err
	}
	for _, kind := range domain.FavoriteKinds {
		ids := all[kind]
		if ids == nil {
			ids = []string{}
		}
		s.sets[kind] = ids
		s.storeSet(kind, ids)
	}
	s.logger.Debug("reloaded all favorite sets")
	return nil
}

// Add marks id as a favorite. On success only the affected kind's
// id-list is refreshed from the remote; the other four are untouched.
func (s *Service) Add(ctx context.Context, kind domain.Kind, id string) error {
	if err := s.client.Add(ctx, kind, []string{id}); err != nil {
		s.logger.Error("failed to add favorite", "kind", string(kind), "id", id, "error", err)
		return err
	}
	s.refreshKind(ctx, kind, id, true)
	return nil
}

// Remove unmarks id as a favorite. Same refresh rule as Add.
func (s *Service) Remove(ctx context.Context, kind domain.Kind, id string) error {
	if err := s.client.Remove(ctx, kind, id); err != nil {
		s.logger.Error("failed to remove favorite", "kind", string(kind), "id", id, "error", err)
		return err
	}
	s.refreshKind(ctx, kind, id, false)
	return nil
}

// refreshKind reloads one kind's id-list after a successful mutation.
// If the reload itself fails the set is patched locally instead, so the
// mutation stays visible to membership queries either way.
func (s *Service) refreshKind(ctx context.Context, kind domain.Kind, id string, added bool) {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.client.ListIDs(ctx, kind)
	if err != nil {
		s.logger.Warn("failed to refresh favorite set, patching locally", "kind", string(kind), "error", err)
		set, loaded := s.sets[kind]
		if !loaded {
			// Nothing to patch; leave the kind unloaded so the next
			// query reloads it in full.
			delete(s.sets, kind)
			s.store.Delete(domain.StoreFavorites, string(kind))
			return
		}
		ids = patchSet(set, id, added)
	}
	s.sets[kind] = ids
	s.storeSet(kind, ids)
}

// Toggle flips the membership of target, consulting confirm first when
// given. Returns whether the item is a favorite afterwards.
func (s *Service) Toggle(ctx context.Context, target Target, confirm ConfirmFunc) (bool, error) {
	add := !target.Favorite
	if confirm != nil && !confirm(target, add) {
		return target.Favorite, nil
	}
	if add {
		if err := s.Add(ctx, target.Kind, target.ID); err != nil {
			return target.Favorite, err
		}
		return true, nil
	}
	if err := s.Remove(ctx, target.Kind, target.ID); err != nil {
		return target.Favorite, err
	}
	return false, nil
}

// List fetches the full entities of one favorite kind for a menu
// listing, refreshing the cached id-set as a side effect.
func (s *Service) List(ctx context.Context, kind domain.Kind) ([]domain.Entity, error) {
	entities, err := s.client.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	if s.enabled {
		ids := make([]string, 0, len(entities))
		for _, e := range entities {
			ids = append(ids, e.EntityID())
		}
		s.mu.Lock()
		s.sets[kind] = ids
		s.storeSet(kind, ids)
		s.mu.Unlock()
	}
	return entities, nil
}

// DeleteCache drops all persisted favorite sets and returns every kind
// to the unloaded state.
func (s *Service) DeleteCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.DeleteAll(domain.StoreFavorites)
	s.sets = make(map[domain.Kind][]string)
}

func (s *Service) storeSet(kind domain.Kind, ids []string) {
	if !s.enabled {
		return
	}
	if err := s.store.InsertCollection(domain.StoreFavorites, string(kind), "", ids, true); err != nil {
		s.logger.Error("failed to store favorite set", "kind", string(kind), "error", err)
	}
}

func patchSet(ids []string, id string, added bool) []string {
	out := make([]string, 0, len(ids)+1)
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	if added {
		out = append(out, id)
	}
	return out
}
