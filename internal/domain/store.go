package domain

// StoreKind names a namespace of the metadata store.
type StoreKind string

const (
	// StoreAlbums holds one raw album payload per album id.
	StoreAlbums StoreKind = "albums"

	// StoreFavorites holds one id-list per favorite kind
	// (artists, albums, playlists, tracks, videos).
	StoreFavorites StoreKind = "favorites"

	// StoreUserPlaylists holds one Collection per user playlist id.
	StoreUserPlaylists StoreKind = "userpl"
)

// Collection is a stored id-list with its metadata. HasItems
// distinguishes "registered but not yet filled" from "filled and empty":
// a user playlist is first registered with only its title, and its item
// list is written later by the reconciliation pass.
type Collection struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Items    []string `json:"items,omitempty"`
	HasItems bool     `json:"hasItems"`
}

// Store is the durable metadata cache. It never performs network I/O.
// Writes are committed before the call returns; concurrent writers from
// the fetch pool are safe. An unreadable backing file behaves like an
// empty store.
type Store interface {
	// Fetch returns the stored payload for (kind, id), or false if absent.
	Fetch(kind StoreKind, id string) ([]byte, bool)

	// Insert stores payload under (kind, id). With overwrite false an
	// existing entry is left untouched, so an incidentally fetched
	// partial payload can never clobber a complete one.
	Insert(kind StoreKind, id string, payload []byte, overwrite bool) error

	// InsertCollection stores an id-list with its title. A nil ids slice
	// registers metadata only (HasItems stays false); the item list can
	// be filled by a later call.
	InsertCollection(kind StoreKind, id, title string, ids []string, overwrite bool) error

	// FetchCollection returns the stored collection for (kind, id).
	FetchCollection(kind StoreKind, id string) (Collection, bool)

	Delete(kind StoreKind, id string)
	DeleteAll(kind StoreKind)

	// FetchAllIDs enumerates every stored id of a kind, for
	// reconciliation against the remote authoritative list.
	FetchAllIDs(kind StoreKind) []string

	// FetchAllCollections enumerates every stored collection of a kind.
	FetchAllCollections(kind StoreKind) []Collection

	Close() error
}
