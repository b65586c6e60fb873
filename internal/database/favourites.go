package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Favourite is a row of the favourite_servers table
type Favourite struct {
	Address          string    `json:"address"`
	Name             string    `json:"name"`
	Description      *string   `json:"description,omitempty"`
	RequiresPassword bool      `json:"requires_password"`
	Position         int       `json:"position"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ListFavourites returns all favourites in their saved order
func (db *DB) ListFavourites(ctx context.Context) ([]*Favourite, error) {
	query := `
		SELECT address, name, description, requires_password, position, updated_at
		FROM favourite_servers
		ORDER BY position ASC, address ASC
	`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query favourites: %w", err)
	}
	defer rows.Close()

	favourites := make([]*Favourite, 0)
	for rows.Next() {
		fav := &Favourite{}
		err := rows.Scan(
			&fav.Address, &fav.Name, &fav.Description,
			&fav.RequiresPassword, &fav.Position, &fav.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan favourite row: %w", err)
		}
		favourites = append(favourites, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favourites: %w", err)
	}

	return favourites, nil
}

// ReplaceFavourites overwrites the table with favourites in a single
// transaction, so readers see either the old set or the new one
func (db *DB) ReplaceFavourites(ctx context.Context, favourites []*Favourite) error {
	return db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM favourite_servers`); err != nil {
			return fmt.Errorf("clear favourites: %w", err)
		}

		query := `
			INSERT INTO favourite_servers (
				address, name, description, requires_password, position
			) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (address)
			DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				requires_password = EXCLUDED.requires_password,
				position = EXCLUDED.position,
				updated_at = NOW()
		`

		if len(favourites) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, fav := range favourites {
			batch.Queue(query, fav.Address, fav.Name, fav.Description, fav.RequiresPassword, i)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert favourites: %w", err)
		}
		return nil
	})
}
