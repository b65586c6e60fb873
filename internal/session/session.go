package session

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/parkdir/parkdir/internal/address"
	"github.com/parkdir/parkdir/internal/compat"
	"github.com/parkdir/parkdir/internal/connect"
	"github.com/parkdir/parkdir/internal/directory"
	"github.com/parkdir/parkdir/internal/favourites"
	"github.com/parkdir/parkdir/internal/registry"
)

// MaxPlayerNameLength is the longest player name accepted, in bytes
const MaxPlayerNameLength = 32

// Options configures a Session
type Options struct {
	Parser    address.Parser
	Policy    compat.Policy
	Store     favourites.Store
	Connector connect.Connector

	DirectoryURL string
	FetchTimeout time.Duration
	// Client overrides the HTTP client used for directory requests.
	Client *http.Client

	PlayerName string
	// SavePlayerName persists a changed player name. Optional.
	SavePlayerName func(string) error
}

// Session is the server browser: it owns the server list for its lifetime
// and is the only way callers reach it.
type Session struct {
	id        uuid.UUID
	registry  *registry.Registry
	fetcher   *directory.Fetcher
	store     favourites.Store
	parser    address.Parser
	policy    compat.Policy
	connector connect.Connector

	changes chan struct{}

	// saveMu serializes favourites writes and is held across the copy-out
	// and the store write. Lock order is saveMu then mu.
	saveMu sync.Mutex

	mu             sync.Mutex
	closed         bool
	playerName     string
	savePlayerName func(string) error
}

// New creates a session and loads the saved favourites. No request is
// made until Refresh.
func New(ctx context.Context, opts Options) *Session {
	if opts.Parser.DefaultPort == 0 {
		opts.Parser = address.NewParser(0)
	}
	if opts.Policy.Local == "" {
		opts.Policy = compat.NewPolicy("")
	}
	if opts.Connector == nil {
		opts.Connector = connect.NewTCPConnector(0)
	}

	s := &Session{
		id:             uuid.New(),
		registry:       registry.New(opts.Parser, opts.Policy),
		store:          opts.Store,
		parser:         opts.Parser,
		policy:         opts.Policy,
		connector:      opts.Connector,
		changes:        make(chan struct{}, 1),
		playerName:     truncateName(opts.PlayerName),
		savePlayerName: opts.SavePlayerName,
	}

	s.fetcher = directory.New(s.registry, directory.Options{
		URL:      opts.DirectoryURL,
		Timeout:  opts.FetchTimeout,
		Client:   opts.Client,
		OnChange: s.notify,
	})

	if s.store != nil {
		s.registry.Replace(s.store.Load(ctx))
	}
	s.registry.Sort()

	log.Printf("Session %s opened with %d favourites", s.id, s.registry.Len())
	return s
}

// Open creates a session and starts the first refresh.
func Open(ctx context.Context, opts Options) *Session {
	s := New(ctx, opts)
	s.Refresh()
	return s
}

// ID identifies the session in logs
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Changes delivers a signal whenever the list or status changed. Signals
// are coalesced; the receiver re-reads Servers and Status.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Refresh drops live entries and fetches the directory in the background.
func (s *Session) Refresh() bool {
	return s.fetcher.Refresh()
}

// Wait blocks until the outstanding refresh has finished.
func (s *Session) Wait(ctx context.Context) error {
	return s.fetcher.Wait(ctx)
}

// Status returns the directory status and online player total.
func (s *Session) Status() directory.Snapshot {
	return s.fetcher.Snapshot()
}

// DirectoryURL returns the directory being queried
func (s *Session) DirectoryURL() string {
	return s.fetcher.URL()
}

// Policy returns the compatibility policy used for sorting and joining
func (s *Session) Policy() compat.Policy {
	return s.policy
}

// Servers returns the list in display order.
func (s *Session) Servers() []registry.Server {
	return s.registry.Snapshot()
}

// Server returns the entry at index i of the display order.
func (s *Session) Server(i int) (registry.Server, error) {
	srv, ok := s.registry.At(i)
	if !ok {
		return registry.Server{}, fmt.Errorf("%w: index %d", ErrNoSuchServer, i)
	}
	return srv, nil
}

// Lookup returns the entry for addr.
func (s *Session) Lookup(addr string) (registry.Server, error) {
	srv, ok := s.registry.Get(addr)
	if !ok {
		return registry.Server{}, fmt.Errorf("%w: %s", ErrNoSuchServer, addr)
	}
	return srv, nil
}

// AddServer adds a server by hand. The entry becomes a favourite and the
// favourites are saved.
func (s *Session) AddServer(ctx context.Context, raw string) (registry.Server, error) {
	if err := s.checkOpen(); err != nil {
		return registry.Server{}, err
	}
	if err := s.parser.Validate(raw); err != nil {
		return registry.Server{}, err
	}

	srv := s.registry.Upsert(raw, func(srv *registry.Server) {
		srv.Favourite = true
	})
	s.registry.Sort()
	s.notify()

	return srv, s.saveFavourites(ctx)
}

// SetFavourite sets the favourite flag of an existing entry and saves the
// favourites. Entries that stop being favourites disappear at the next
// refresh.
func (s *Session) SetFavourite(ctx context.Context, addr string, favourite bool) (registry.Server, error) {
	return s.updateFavourite(ctx, addr, func(bool) bool { return favourite })
}

// ToggleFavourite flips the favourite flag of an existing entry.
func (s *Session) ToggleFavourite(ctx context.Context, addr string) (registry.Server, error) {
	return s.updateFavourite(ctx, addr, func(current bool) bool { return !current })
}

func (s *Session) updateFavourite(ctx context.Context, addr string, next func(bool) bool) (registry.Server, error) {
	if err := s.checkOpen(); err != nil {
		return registry.Server{}, err
	}

	srv, err := s.registry.Update(addr, func(srv *registry.Server) {
		srv.Favourite = next(srv.Favourite)
	})
	if err != nil {
		return registry.Server{}, fmt.Errorf("%w: %s", ErrNoSuchServer, addr)
	}
	s.registry.Sort()
	s.notify()

	return srv, s.saveFavourites(ctx)
}

func (s *Session) saveFavourites(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	// Close clears the registry only after marking the session closed,
	// which it cannot do while saveMu is held.
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, s.registry.Favourites()); err != nil {
		return fmt.Errorf("save favourites: %w", err)
	}
	return nil
}

// Join connects to the server at addr. Servers reporting a different
// version are refused with a *VersionError; addresses not in the list are
// attempted as unknown.
func (s *Session) Join(ctx context.Context, addr string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	srv, ok := s.registry.Get(addr)
	if !ok {
		srv = registry.Server{Address: s.parser.Canonical(addr)}
	}
	return s.join(ctx, srv)
}

// JoinIndex connects to the entry at index i of the display order.
func (s *Session) JoinIndex(ctx context.Context, i int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	srv, err := s.Server(i)
	if err != nil {
		return err
	}
	return s.join(ctx, srv)
}

func (s *Session) join(ctx context.Context, srv registry.Server) error {
	if !s.policy.IsJoinable(srv.Version) {
		return &VersionError{Address: srv.Address, Remote: srv.Version, Local: s.policy.Local}
	}

	host, port := s.parser.Parse(srv.Address)
	if host == "" {
		return fmt.Errorf("%w: %w", ErrUnableToConnect, address.ErrEmptyAddress)
	}
	log.Printf("Joining %s (%s port %d) as %s", srv.Name, host, port, s.PlayerName())
	if err := s.connector.Connect(ctx, host, port); err != nil {
		return fmt.Errorf("%w: %w", ErrUnableToConnect, err)
	}
	return nil
}

// PlayerName returns the name shown to other players
func (s *Session) PlayerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerName
}

// SetPlayerName changes the player name. Empty or unchanged names are
// ignored; long names are truncated.
func (s *Session) SetPlayerName(name string) error {
	name = truncateName(name)
	if name == "" {
		return nil
	}

	s.mu.Lock()
	if name == s.playerName {
		s.mu.Unlock()
		return nil
	}
	s.playerName = name
	save := s.savePlayerName
	s.mu.Unlock()

	s.notify()
	if save == nil {
		return nil
	}
	if err := save(name); err != nil {
		return fmt.Errorf("save player name: %w", err)
	}
	return nil
}

// Close disposes of the server list. Directory responses arriving later
// are dropped.
func (s *Session) Close() {
	s.saveMu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.saveMu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.saveMu.Unlock()

	s.fetcher.Close()
	s.registry.Clear()
	log.Printf("Session %s closed", s.id)
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrDisposed
	}
	return nil
}

// truncateName trims whitespace and cuts name to MaxPlayerNameLength bytes
// without splitting a UTF-8 sequence.
func truncateName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) <= MaxPlayerNameLength {
		return name
	}
	cut := MaxPlayerNameLength
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}
