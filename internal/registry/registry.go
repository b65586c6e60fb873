package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/parkdir/parkdir/internal/address"
	"github.com/parkdir/parkdir/internal/compat"
)

// ErrNotFound is returned when no record has the requested address
var ErrNotFound = errors.New("server not found")

// Registry is the in-memory server list. Every method takes the single
// collection lock; no reference to internal storage escapes it.
type Registry struct {
	mu      sync.Mutex
	servers []*Server
	parser  address.Parser
	policy  compat.Policy
}

// New creates an empty registry
func New(parser address.Parser, policy compat.Policy) *Registry {
	return &Registry{
		parser: parser,
		policy: policy,
	}
}

// Upsert finds the record for addr (after normalization), creating it with
// Name=addr and Favourite=false when missing, then applies update to it
// under the lock. It returns a copy of the resulting record.
func (r *Registry) Upsert(addr string, update func(*Server)) Server {
	key := r.parser.Canonical(addr)

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(key)
	if s == nil {
		s = &Server{Address: key, Name: key}
		r.servers = append(r.servers, s)
	}
	if update != nil {
		update(s)
		// the key is owned by the registry
		s.Address = key
	}
	return *s
}

// Update applies fn to an existing record.
func (r *Registry) Update(addr string, fn func(*Server)) (Server, error) {
	key := r.parser.Canonical(addr)

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.find(key)
	if s == nil {
		return Server{}, ErrNotFound
	}
	fn(s)
	s.Address = key
	return *s, nil
}

// Get returns a copy of the record for addr.
func (r *Registry) Get(addr string) (Server, bool) {
	key := r.parser.Canonical(addr)

	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.find(key); s != nil {
		return *s, true
	}
	return Server{}, false
}

// At returns a copy of the record at position i of the last sort order.
func (r *Registry) At(i int) (Server, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.servers) {
		return Server{}, false
	}
	return *r.servers[i], true
}

// Remove deletes the record for addr and reports whether one existed.
func (r *Registry) Remove(addr string) bool {
	key := r.parser.Canonical(addr)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.servers {
		if s.Address == key {
			r.servers = append(r.servers[:i], r.servers[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveNonFavourites drops every live-only record, keeping the relative
// order of favourites.
func (r *Registry) RemoveNonFavourites() {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.servers[:0]
	for _, s := range r.servers {
		if s.Favourite {
			kept = append(kept, s)
		}
	}
	for i := len(kept); i < len(r.servers); i++ {
		r.servers[i] = nil
	}
	r.servers = kept
}

// Replace discards the current contents and inserts servers, merging
// duplicates by address (later entries win).
func (r *Registry) Replace(servers []Server) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.servers = nil
	for _, in := range servers {
		key := r.parser.Canonical(in.Address)
		if key == "" {
			continue
		}
		in.Address = key
		if in.Name == "" {
			in.Name = key
		}
		if s := r.find(key); s != nil {
			*s = in
			continue
		}
		s := in
		r.servers = append(r.servers, &s)
	}
}

// Sort recomputes the display order.
func (r *Registry) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	sort.SliceStable(r.servers, func(i, j int) bool {
		return Less(r.policy, *r.servers[i], *r.servers[j])
	})
}

// Snapshot returns copies of all records in the last sort order.
func (r *Registry) Snapshot() []Server {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]Server, 0, len(r.servers))
	for _, s := range r.servers {
		list = append(list, *s)
	}
	return list
}

// Favourites returns copies of the records flagged as favourite.
func (r *Registry) Favourites() []Server {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]Server, 0)
	for _, s := range r.servers {
		if s.Favourite {
			list = append(list, *s)
		}
	}
	return list
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.servers)
}

// TotalPlayers sums Players over all records.
func (r *Registry) TotalPlayers() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, s := range r.servers {
		total += s.Players
	}
	return total
}

// Clear empties the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers = nil
}

// find must be called with r.mu held.
func (r *Registry) find(key string) *Server {
	for _, s := range r.servers {
		if s.Address == key {
			return s
		}
	}
	return nil
}

// Less orders servers by preference: favourites first, then servers
// running the local version, then servers without a password, then by
// name ignoring case. The address breaks remaining ties.
func Less(policy compat.Policy, a, b Server) bool {
	if a.Favourite != b.Favourite {
		return a.Favourite
	}

	aCompatible := policy.Compatible(a.Version)
	bCompatible := policy.Compatible(b.Version)
	if aCompatible != bCompatible {
		return aCompatible
	}

	if a.RequiresPassword != b.RequiresPassword {
		return !a.RequiresPassword
	}

	an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if an != bn {
		return an < bn
	}
	return a.Address < b.Address
}
