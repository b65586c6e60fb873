package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parkdir/parkdir/internal/address"
	"github.com/parkdir/parkdir/internal/compat"
	"github.com/parkdir/parkdir/internal/connect"
	"github.com/parkdir/parkdir/internal/directory"
	"github.com/parkdir/parkdir/internal/favourites"
	"github.com/parkdir/parkdir/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = `{"status":200,"servers":[
	{"name":"Alice's Park","version":"1.0.0","players":3,"maxPlayers":10,"port":11753,"ip":{"v4":["203.0.113.5"]}},
	{"name":"Old Park","version":"0.8.0","players":1,"maxPlayers":4,"port":11753,"ip":{"v4":["198.51.100.7"]}},
	{"name":"Secret Park","version":"1.0.0","requiresPassword":true,"port":11754,"ip":{"v4":["203.0.113.5"]}}
]}`

type recorder struct {
	host string
	port int
	err  error
}

func (r *recorder) Connect(ctx context.Context, host string, port int) error {
	r.host, r.port = host, port
	return r.err
}

type fixture struct {
	session   *Session
	store     *favourites.FileStore
	connector *recorder
}

func newFixture(t *testing.T, body string, saved []registry.Server) *fixture {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)

	store := favourites.NewFileStore(filepath.Join(t.TempDir(), "servers.json"))
	if saved != nil {
		require.NoError(t, store.Save(context.Background(), saved))
	}

	rec := &recorder{}
	s := New(context.Background(), Options{
		Parser:       address.NewParser(11753),
		Policy:       compat.NewPolicy("1.0.0"),
		Store:        store,
		Connector:    rec,
		DirectoryURL: ts.URL,
		PlayerName:   "Tester",
	})
	t.Cleanup(s.Close)

	return &fixture{session: s, store: store, connector: rec}
}

func (f *fixture) refresh(t *testing.T) {
	t.Helper()
	require.True(t, f.session.Refresh())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.session.Wait(ctx))
}

func readFavourites(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestNewLoadsFavouritesBeforeRefresh(t *testing.T) {
	f := newFixture(t, listing, []registry.Server{
		{Address: "b.example:11753", Name: "Bravo", Favourite: true},
		{Address: "a.example:11753", Name: "alpha", Favourite: true},
	})

	list := f.session.Servers()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "Bravo", list[1].Name)
	assert.Equal(t, directory.StatusConnecting, f.session.Status().Status)
}

func TestRefreshOrdersMergedList(t *testing.T) {
	f := newFixture(t, listing, []registry.Server{
		{Address: "fav.example:11753", Name: "Zeta", Favourite: true},
	})
	f.refresh(t)

	var names []string
	for _, s := range f.session.Servers() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Zeta", "Alice's Park", "Secret Park", "Old Park"}, names)

	status := f.session.Status()
	assert.Equal(t, directory.StatusPlayersOnline, status.Status)
	assert.Equal(t, 4, status.PlayersOnline)
}

func TestToggleFavouriteSavesExactlyThatRecord(t *testing.T) {
	f := newFixture(t, listing, nil)
	f.refresh(t)

	srv, err := f.session.ToggleFavourite(context.Background(), "203.0.113.5:11753")
	require.NoError(t, err)
	assert.True(t, srv.Favourite)

	saved := readFavourites(t, f.store.Path())
	require.Len(t, saved, 1)
	assert.Equal(t, "203.0.113.5:11753", saved[0]["address"])
	assert.Equal(t, "Alice's Park", saved[0]["name"])

	first := f.session.Servers()[0]
	assert.Equal(t, "203.0.113.5:11753", first.Address)

	srv, err = f.session.ToggleFavourite(context.Background(), "203.0.113.5:11753")
	require.NoError(t, err)
	assert.False(t, srv.Favourite)
	assert.Empty(t, readFavourites(t, f.store.Path()))
}

func TestToggleFavouriteUnknownServer(t *testing.T) {
	f := newFixture(t, listing, nil)
	_, err := f.session.ToggleFavourite(context.Background(), "nowhere.example")
	assert.ErrorIs(t, err, ErrNoSuchServer)
}

func TestFavouriteSurvivesRefresh(t *testing.T) {
	f := newFixture(t, listing, nil)
	f.refresh(t)

	_, err := f.session.SetFavourite(context.Background(), "198.51.100.7", true)
	require.NoError(t, err)
	f.refresh(t)

	srv, err := f.session.Lookup("198.51.100.7:11753")
	require.NoError(t, err)
	assert.True(t, srv.Favourite)
	assert.Equal(t, "Old Park", srv.Name)
	assert.Equal(t, srv, f.session.Servers()[0])
}

func TestAddServer(t *testing.T) {
	f := newFixture(t, listing, nil)

	srv, err := f.session.AddServer(context.Background(), "play.example.com")
	require.NoError(t, err)
	assert.Equal(t, "play.example.com:11753", srv.Address)
	assert.Equal(t, "play.example.com:11753", srv.Name)
	assert.True(t, srv.Favourite)

	saved := readFavourites(t, f.store.Path())
	require.Len(t, saved, 1)
	assert.Equal(t, "play.example.com:11753", saved[0]["address"])

	_, err = f.session.AddServer(context.Background(), "   ")
	assert.ErrorIs(t, err, address.ErrEmptyAddress)
}

func TestJoin(t *testing.T) {
	f := newFixture(t, listing, nil)
	f.refresh(t)
	ctx := context.Background()

	require.NoError(t, f.session.Join(ctx, "203.0.113.5:11753"))
	assert.Equal(t, "203.0.113.5", f.connector.host)
	assert.Equal(t, 11753, f.connector.port)

	// not in the list: version unknown, so allowed
	require.NoError(t, f.session.Join(ctx, "[::1]:14000"))
	assert.Equal(t, "::1", f.connector.host)
	assert.Equal(t, 14000, f.connector.port)

	require.NoError(t, f.session.Join(ctx, "example.com:notaport"))
	assert.Equal(t, "example.com", f.connector.host)
	assert.Equal(t, 11753, f.connector.port)
}

func TestJoinIncompatibleVersion(t *testing.T) {
	f := newFixture(t, listing, nil)
	f.refresh(t)

	err := f.session.Join(context.Background(), "198.51.100.7:11753")
	require.ErrorIs(t, err, ErrIncompatibleVersion)

	var verr *VersionError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "0.8.0", verr.Remote)
	assert.Equal(t, "1.0.0", verr.Local)
	assert.Contains(t, err.Error(), "0.8.0")
	assert.Empty(t, f.connector.host)
}

func TestJoinIndex(t *testing.T) {
	f := newFixture(t, listing, nil)
	f.refresh(t)

	require.NoError(t, f.session.JoinIndex(context.Background(), 1))
	assert.Equal(t, 11754, f.connector.port)

	assert.ErrorIs(t, f.session.JoinIndex(context.Background(), 9), ErrNoSuchServer)
}

func TestJoinConnectorFailure(t *testing.T) {
	f := newFixture(t, listing, nil)
	boom := errors.New("connection refused")
	f.session.connector = connect.Func(func(ctx context.Context, host string, port int) error {
		return boom
	})

	err := f.session.Join(context.Background(), "203.0.113.5:11753")
	assert.ErrorIs(t, err, ErrUnableToConnect)
	assert.ErrorIs(t, err, boom)
}

func TestSetPlayerName(t *testing.T) {
	f := newFixture(t, listing, nil)
	var saved []string
	f.session.savePlayerName = func(name string) error {
		saved = append(saved, name)
		return nil
	}

	require.NoError(t, f.session.SetPlayerName("Tester"))
	require.NoError(t, f.session.SetPlayerName(""))
	assert.Empty(t, saved)

	require.NoError(t, f.session.SetPlayerName("  Rider  "))
	assert.Equal(t, "Rider", f.session.PlayerName())

	long := strings.Repeat("x", 40)
	require.NoError(t, f.session.SetPlayerName(long))
	assert.Equal(t, strings.Repeat("x", MaxPlayerNameLength), f.session.PlayerName())
	assert.Equal(t, []string{"Rider", strings.Repeat("x", MaxPlayerNameLength)}, saved)
}

func TestTruncateNameKeepsRunes(t *testing.T) {
	name := strings.Repeat("a", 31) + "é"
	got := truncateName(name)
	assert.Equal(t, strings.Repeat("a", 31), got)
}

func TestChangesSignalled(t *testing.T) {
	f := newFixture(t, listing, nil)

	// drain anything from construction
	select {
	case <-f.session.Changes():
	default:
	}

	f.refresh(t)
	select {
	case <-f.session.Changes():
	case <-time.After(time.Second):
		t.Fatal("no change signal after refresh")
	}
}

func TestClose(t *testing.T) {
	f := newFixture(t, listing, []registry.Server{
		{Address: "a.example:11753", Favourite: true},
	})

	f.session.Close()
	f.session.Close()

	assert.Empty(t, f.session.Servers())
	assert.False(t, f.session.Refresh())

	_, err := f.session.AddServer(context.Background(), "b.example")
	assert.ErrorIs(t, err, ErrDisposed)
	assert.ErrorIs(t, f.session.Join(context.Background(), "a.example"), ErrDisposed)
}

// gatedStore holds its first Save until release is closed
type gatedStore struct {
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
	saved [][]registry.Server
}

func newGatedStore() *gatedStore {
	return &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) Load(ctx context.Context) []registry.Server {
	return nil
}

func (g *gatedStore) Save(ctx context.Context, servers []registry.Server) error {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()

	if first {
		close(g.entered)
		<-g.release
	}

	g.mu.Lock()
	g.saved = append(g.saved, servers)
	g.mu.Unlock()
	return nil
}

func (g *gatedStore) last() []registry.Server {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.saved) == 0 {
		return nil
	}
	return g.saved[len(g.saved)-1]
}

func (g *gatedStore) saves() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.saved)
}

func newGatedSession(t *testing.T, store *gatedStore) *Session {
	t.Helper()
	s := New(context.Background(), Options{
		Parser:    address.NewParser(11753),
		Policy:    compat.NewPolicy("1.0.0"),
		Store:     store,
		Connector: &recorder{},
	})
	t.Cleanup(s.Close)
	return s
}

func TestConcurrentFavouriteSavesKeepLatestSet(t *testing.T) {
	store := newGatedStore()
	s := newGatedSession(t, store)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.AddServer(ctx, "a.example:1")
		assert.NoError(t, err)
	}()
	<-store.entered

	go func() {
		defer wg.Done()
		_, err := s.AddServer(ctx, "b.example:2")
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool {
		_, err := s.Lookup("b.example:2")
		return err == nil
	}, time.Second, 5*time.Millisecond)

	close(store.release)
	wg.Wait()

	var saved []string
	for _, srv := range store.last() {
		saved = append(saved, srv.Address)
	}
	assert.ElementsMatch(t, []string{"a.example:1", "b.example:2"}, saved)
	assert.Len(t, s.registry.Favourites(), 2)
}

func TestCloseWaitsForPendingSave(t *testing.T) {
	store := newGatedStore()
	s := newGatedSession(t, store)
	ctx := context.Background()

	added := make(chan error, 1)
	go func() {
		_, err := s.AddServer(ctx, "a.example:1")
		added <- err
	}()
	<-store.entered

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	assert.Never(t, func() bool {
		select {
		case <-closed:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond)

	close(store.release)
	require.NoError(t, <-added)
	<-closed

	require.Equal(t, 1, store.saves())
	require.Len(t, store.last(), 1)
	assert.Equal(t, "a.example:1", store.last()[0].Address)

	_, err := s.AddServer(ctx, "b.example:2")
	assert.ErrorIs(t, err, ErrDisposed)
	assert.Equal(t, 1, store.saves())
}
