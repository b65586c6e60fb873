package favourites

import (
	"context"
	"log"

	"github.com/parkdir/parkdir/internal/database"
	"github.com/parkdir/parkdir/internal/registry"
)

// DBStore keeps favourites in Postgres, for players sharing one list
// across machines
type DBStore struct {
	db *database.DB
}

// NewDBStore creates a store on an open database
func NewDBStore(db *database.DB) *DBStore {
	return &DBStore{db: db}
}

// Load returns the stored favourites; query failures yield an empty list.
func (s *DBStore) Load(ctx context.Context) []registry.Server {
	rows, err := s.db.ListFavourites(ctx)
	if err != nil {
		log.Printf("Ignoring stored favourites: %v", err)
		return []registry.Server{}
	}

	servers := make([]registry.Server, 0, len(rows))
	for _, row := range rows {
		e := entry{
			Address:          row.Address,
			Name:             row.Name,
			RequiresPassword: row.RequiresPassword,
		}
		if row.Description != nil {
			e.Description = *row.Description
		}
		servers = append(servers, e.server())
	}
	return servers
}

// Save replaces the stored favourites with servers.
func (s *DBStore) Save(ctx context.Context, servers []registry.Server) error {
	rows := make([]*database.Favourite, 0, len(servers))
	for _, srv := range servers {
		e := toEntry(srv)
		row := &database.Favourite{
			Address:          e.Address,
			Name:             e.Name,
			RequiresPassword: e.RequiresPassword,
		}
		if e.Description != "" {
			row.Description = &e.Description
		}
		rows = append(rows, row)
	}
	return s.db.ReplaceFavourites(ctx, rows)
}
