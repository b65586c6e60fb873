package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parkdir/parkdir/internal/compat"
	"github.com/parkdir/parkdir/internal/registry"
)

// DefaultURL is used when no directory URL is configured
const DefaultURL = "https://servers.openrct2.io"

// maxResponseSize caps how much of a directory response is read
const maxResponseSize = 4 << 20

// Options configures a Fetcher
type Options struct {
	// URL of the directory; empty selects DefaultURL.
	URL     string
	Timeout time.Duration
	// OnChange is called after every visible state change (status text or
	// list contents). It may run on any goroutine and must not block.
	OnChange func()
	Client   *http.Client
}

// Fetcher refreshes a registry from the remote directory. Refresh never
// blocks; the request runs on its own goroutine and merges results entry
// by entry.
type Fetcher struct {
	registry *registry.Registry
	client   *http.Client
	url      string
	onChange func()

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards every field below and is held across each per-entry merge
	// so that Close can fence out late callbacks.
	mu            sync.Mutex
	token         uuid.UUID
	closed        bool
	state         State
	status        Status
	playersOnline int
	inflight      int
	idle          chan struct{}
}

// New creates a fetcher merging into reg
func New(reg *registry.Registry, opts Options) *Fetcher {
	url := opts.URL
	if url == "" {
		url = DefaultURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: timeout,
		}
	}
	onChange := opts.OnChange
	if onChange == nil {
		onChange = func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Fetcher{
		registry: reg,
		client:   client,
		url:      url,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
		token:    uuid.New(),
		status:   StatusConnecting,
	}
}

// URL returns the directory address requests are sent to
func (f *Fetcher) URL() string {
	return f.url
}

// Refresh starts a refresh cycle: live entries are dropped immediately so
// the list falls back to favourites, then a request is issued in the
// background. It reports false once the fetcher has been closed.
func (f *Fetcher) Refresh() bool {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false
	}
	token := f.token
	f.state = Requesting
	f.status = StatusConnecting
	if f.inflight == 0 {
		f.idle = make(chan struct{})
	}
	f.inflight++
	f.registry.RemoveNonFavourites()
	f.registry.Sort()
	f.mu.Unlock()

	f.onChange()

	go f.fetch(token)
	return true
}

// Snapshot returns the current state, status and player total together.
func (f *Fetcher) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		State:         f.state,
		Status:        f.status,
		PlayersOnline: f.playersOnline,
	}
}

// Wait blocks until no request is outstanding or ctx is done.
func (f *Fetcher) Wait(ctx context.Context) error {
	f.mu.Lock()
	idle := f.idle
	busy := f.inflight > 0
	f.mu.Unlock()

	if !busy {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close invalidates every outstanding request. Responses arriving later are
// dropped without touching the registry.
func (f *Fetcher) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.token = uuid.New()
	f.mu.Unlock()

	f.cancel()
}

func (f *Fetcher) fetch(token uuid.UUID) {
	body, err := f.get()
	if err != nil {
		log.Printf("Unable to connect to directory server: %v", err)
		f.finish(token, StatusNoConnection)
		return
	}

	entries, err := Parse(body)
	if err != nil {
		var rerr *ResponseError
		if errors.As(err, &rerr) {
			if rerr.Status == StatusMasterFailed {
				log.Printf("Directory server failed to return servers: %v", err)
			} else {
				log.Printf("Invalid response from directory server: %v", err)
			}
			f.finish(token, rerr.Status)
			return
		}
		f.finish(token, StatusInvalidStatus)
		return
	}

	for _, e := range entries {
		if !f.merge(token, e) {
			break
		}
	}

	f.finish(token, StatusPlayersOnline)
}

func (f *Fetcher) get() ([]byte, error) {
	req, err := http.NewRequestWithContext(f.ctx, "GET", f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "parkdir/"+compat.Version)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// merge upserts one entry. It reports false when the fetcher was closed
// since the request started.
func (f *Fetcher) merge(token uuid.UUID, e Entry) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if token != f.token {
		return false
	}
	f.registry.Upsert(e.Address, e.Apply)
	return true
}

// finish ends one request; for a stale token it only updates the
// in-flight count. Sorting and counting players only happen for a
// successful merge; failures leave the favourites-only list in place.
func (f *Fetcher) finish(token uuid.UUID, status Status) {
	f.mu.Lock()
	f.inflight--
	last := f.inflight == 0
	if last {
		f.state = Idle
		close(f.idle)
	}
	if token != f.token {
		f.mu.Unlock()
		return
	}
	if status == StatusPlayersOnline {
		f.registry.Sort()
		f.playersOnline = f.registry.TotalPlayers()
	}
	f.status = status
	f.mu.Unlock()

	f.onChange()
}
