package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/tidewave/coda/internal/adapter"
	"github.com/tidewave/coda/internal/domain"
	"github.com/tidewave/coda/internal/session"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("coda %s\n", Version)
		return
	}

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: coda <command> [arguments]

Commands:
  login                         log in and persist the session
  logout                        log out and drop cached data
  status                        show session state
  search <query>                search the catalog
  album <id>                    show an album and its tracks
  similar <artist-id>           list artists similar to one
  radio <artist-id>             play queue seeded by an artist
  promotions [group]            list featured content
  favorites <kind>              list favorites of a kind
  favorite <kind> <id>          add a favorite
  unfavorite <kind> <id>        remove a favorite
  playlists                     list the user's playlists
  playlist <id>                 show a playlist's entries
  playlist-create <title>       create a playlist
  playlist-delete <id>          delete a playlist
  playlist-add <id> <items...>  append items to a playlist
  playlist-remove <id> <pos>    remove the entry at a position
  sync                          rebuild the playlist index
  cache-clear                   drop all cached metadata
  cache-rebuild                 refetch every cached album
  stream-url <track|video> <id> resolve a playable URL
`)
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("no command given")
	}

	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)
	logger.Info("starting coda", "version", Version, "command", args[0])

	sess, err := session.New(cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := context.Background()

	switch args[0] {
	case "login":
		return cmdLogin(ctx, sess)
	case "logout":
		return sess.Logout()
	case "status":
		return cmdStatus(cfg, sess)
	case "search":
		return cmdSearch(ctx, sess, args[1:])
	case "album":
		return cmdAlbum(ctx, sess, args[1:])
	case "similar":
		return cmdSimilar(ctx, sess, args[1:])
	case "radio":
		return cmdRadio(ctx, sess, args[1:])
	case "promotions":
		return cmdPromotions(ctx, sess, args[1:])
	case "favorites":
		return cmdFavorites(ctx, sess, args[1:])
	case "favorite":
		return cmdFavorite(ctx, sess, args[1:], true)
	case "unfavorite":
		return cmdFavorite(ctx, sess, args[1:], false)
	case "playlists":
		return cmdPlaylists(ctx, sess)
	case "playlist":
		return cmdPlaylistShow(ctx, sess, args[1:])
	case "playlist-create":
		return cmdPlaylistCreate(ctx, sess, args[1:])
	case "playlist-delete":
		return cmdPlaylistDelete(ctx, sess, args[1:])
	case "playlist-add":
		return cmdPlaylistAdd(ctx, sess, args[1:])
	case "playlist-remove":
		return cmdPlaylistRemove(ctx, sess, args[1:])
	case "sync":
		return sess.Playlists.Sync(ctx)
	case "cache-clear":
		sess.InvalidateCaches()
		fmt.Println("Cache cleared.")
		return nil
	case "cache-rebuild":
		sess.Catalog.RebuildCache(ctx)
		fmt.Println("Album cache rebuilt.")
		return nil
	case "stream-url":
		return cmdStreamURL(ctx, sess, args[1:])
	}

	usage()
	return fmt.Errorf("unknown command %q", args[0])
}

func cmdLogin(ctx context.Context, sess *session.Session) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	fmt.Print("Password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if err := sess.Login(ctx, strings.TrimSpace(username), strings.TrimSpace(password)); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Println("Logged in.")
	return nil
}

func cmdStatus(cfg *adapter.Config, sess *session.Session) error {
	if !sess.LoggedIn() {
		fmt.Println("Not logged in.")
		return nil
	}
	fmt.Printf("Logged in as %s (country %s)\n", cfg.Account.Username, cfg.Account.CountryCode)
	return nil
}

func cmdSearch(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: coda search <query>")
	}
	query := strings.Join(args, " ")
	kinds := []domain.Kind{domain.KindArtist, domain.KindAlbum, domain.KindTrack, domain.KindPlaylist}
	result, err := sess.Search(ctx, query, kinds, 20)
	if err != nil {
		return err
	}

	for _, a := range result.Artists {
		fmt.Printf("artist   %-12s  %s\n", a.ID, a.Name)
	}
	for _, a := range result.Albums {
		fmt.Printf("album    %-12s  %s\n", a.ID, a.Label())
	}
	sess.DecorateTracks(ctx, result.Tracks)
	for _, t := range result.Tracks {
		fmt.Printf("track    %-12s  %s%s\n", t.ID, t.Label(), favMark(t.Favorite))
	}
	for _, p := range result.Playlists {
		fmt.Printf("playlist %-12s  %s\n", p.ID, p.Title)
	}
	return nil
}

func cmdAlbum(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: coda album <id>")
	}
	album, err := sess.Catalog.GetAlbum(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s (%d)\n", album.Label(), album.Year())
	tracks, err := sess.Catalog.GetAlbumTracks(ctx, args[0])
	if err != nil {
		return err
	}
	sess.DecorateTracks(ctx, tracks)
	for _, t := range tracks {
		fmt.Printf("  %2d. %s%s\n", t.TrackNumber, t.Label(), favMark(t.Favorite))
	}
	return nil
}

func cmdSimilar(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: coda similar <artist-id>")
	}
	artists, err := sess.SimilarArtists(ctx, args[0])
	if err != nil {
		return err
	}
	for _, a := range artists {
		fmt.Printf("%-12s  %s%s\n", a.ID, a.Name, favMark(a.Favorite))
	}
	return nil
}

func cmdRadio(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: coda radio <artist-id>")
	}
	tracks, err := sess.ArtistRadio(ctx, args[0])
	if err != nil {
		return err
	}
	for _, t := range tracks {
		fmt.Printf("%-12s  %s%s\n", t.ID, t.Label(), favMark(t.Favorite))
	}
	return nil
}

func cmdPromotions(ctx context.Context, sess *session.Session, args []string) error {
	group := ""
	if len(args) > 0 {
		group = args[0]
	}
	promotions, err := sess.Promotions(ctx, group)
	if err != nil {
		return err
	}
	for _, p := range promotions {
		fmt.Printf("%-8s %-38s  %s%s\n", strings.ToLower(p.Type), p.ArtifactID, p.Header, favMark(p.Favorite))
	}
	return nil
}

func cmdFavorites(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: coda favorites <artists|albums|playlists|tracks|videos>")
	}
	kind := domain.Kind(args[0])
	if !kind.Valid() {
		return fmt.Errorf("unknown kind %q", args[0])
	}
	entities, err := sess.Favorites.List(ctx, kind)
	if err != nil {
		return err
	}
	for _, e := range entities {
		fmt.Printf("%-12s  %s\n", e.EntityID(), entityLabel(e))
	}
	return nil
}

func cmdFavorite(ctx context.Context, sess *session.Session, args []string, add bool) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: coda favorite|unfavorite <kind> <id>")
	}
	kind := domain.Kind(args[0])
	if !kind.Valid() {
		return fmt.Errorf("unknown kind %q", args[0])
	}
	if add {
		return sess.Favorites.Add(ctx, kind, args[1])
	}
	return sess.Favorites.Remove(ctx, kind, args[1])
}

func cmdPlaylists(ctx context.Context, sess *session.Session) error {
	playlists, err := sess.Playlists.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range playlists {
		fmt.Printf("%-38s  %-30s  %d items\n", p.ID, p.Title, p.NumberOfItems())
	}
	return nil
}

func cmdPlaylistShow(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: coda playlist <id>")
	}
	playlist, err := sess.Playlists.Get(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s (%d items)\n", playlist.Title, playlist.NumberOfItems())
	entries, err := sess.Playlists.Entries(ctx, playlist)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		switch {
		case entry.Track != nil:
			fmt.Printf("  %3d. %s\n", entry.Position+1, entry.Track.Label())
		case entry.Video != nil:
			fmt.Printf("  %3d. %s [video]\n", entry.Position+1, entry.Video.Label())
		}
	}
	return nil
}

func cmdPlaylistCreate(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: coda playlist-create <title> [description]")
	}
	description := ""
	if len(args) > 1 {
		description = strings.Join(args[1:], " ")
	}
	playlist, err := sess.Playlists.Create(ctx, args[0], description)
	if err != nil {
		return err
	}
	fmt.Printf("Created playlist %s (%s)\n", playlist.Title, playlist.ID)
	return nil
}

func cmdPlaylistDelete(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: coda playlist-delete <id>")
	}
	return sess.Playlists.Delete(ctx, args[0])
}

func cmdPlaylistAdd(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: coda playlist-add <id> <item-ids...>")
	}
	playlist := &domain.Playlist{ID: args[0]}
	added, err := sess.Playlists.AddEntries(ctx, playlist, args[1:])
	if err != nil {
		return err
	}
	fmt.Printf("Added %d of %d items.\n", len(added), len(args)-1)
	return nil
}

func cmdPlaylistRemove(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: coda playlist-remove <id> <position>")
	}
	position, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("position must be a number: %w", err)
	}
	playlist := &domain.Playlist{ID: args[0]}
	return sess.Playlists.RemoveEntryAt(ctx, playlist, position)
}

func cmdStreamURL(ctx context.Context, sess *session.Session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: coda stream-url <track|video> <id>")
	}
	var stream *domain.StreamURL
	var err error
	switch args[0] {
	case "track":
		stream, err = sess.TrackStreamURL(ctx, args[1])
	case "video":
		stream, err = sess.VideoStreamURL(ctx, args[1])
	default:
		return fmt.Errorf("unknown item type %q", args[0])
	}
	if err != nil {
		return err
	}
	if stream.Preview {
		fmt.Println("(preview stream)")
	}
	fmt.Println(stream.URL)
	return nil
}

func favMark(favorite bool) string {
	if favorite {
		return "  ★"
	}
	return ""
}

func entityLabel(e domain.Entity) string {
	type labeler interface{ Label() string }
	if l, ok := e.(labeler); ok {
		return l.Label()
	}
	return e.EntityID()
}
