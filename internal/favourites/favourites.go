package favourites

import (
	"context"

	"github.com/parkdir/parkdir/internal/registry"
)

// Store persists the favourite subset of the server list. Only the address,
// name, description and password flag survive a round trip; live fields
// (version, player counts) are fetched again from the directory.
type Store interface {
	// Load returns the saved favourites, all flagged Favourite. A missing or
	// unreadable store yields an empty list.
	Load(ctx context.Context) []registry.Server
	// Save overwrites the store with exactly servers. Callers filter to
	// favourites first.
	Save(ctx context.Context, servers []registry.Server) error
}

// entry is the persisted form of a favourite
type entry struct {
	Address          string `json:"address"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	RequiresPassword bool   `json:"requiresPassword"`
}

func toEntry(s registry.Server) entry {
	return entry{
		Address:          s.Address,
		Name:             s.Name,
		Description:      s.Description,
		RequiresPassword: s.RequiresPassword,
	}
}

func (e entry) server() registry.Server {
	name := e.Name
	if name == "" {
		name = e.Address
	}
	return registry.Server{
		Address:          e.Address,
		Name:             name,
		Description:      e.Description,
		RequiresPassword: e.RequiresPassword,
		Favourite:        true,
	}
}

// Filter returns the servers flagged as favourite.
func Filter(servers []registry.Server) []registry.Server {
	out := make([]registry.Server, 0, len(servers))
	for _, s := range servers {
		if s.Favourite {
			out = append(out, s)
		}
	}
	return out
}
