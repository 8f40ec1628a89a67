// Package contracts looks up stored client contract records in PostgreSQL.
package contracts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"escort-pricing/pkg/api"
	perrors "escort-pricing/pkg/errors"
)

// Store reads client contracts
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open connects to PostgreSQL using a lib/pq DSN.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open contracts database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach contracts database: %w", err)
	}
	return NewStore(db), nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const activeContractQuery = `
	SELECT id, floor_amount, cap_amount, fixed_rate
	FROM client_contracts
	WHERE client_id = $1
	  AND active = TRUE
	  AND effective_from <= $2
	  AND (effective_to IS NULL OR effective_to > $2)
	ORDER BY effective_from DESC
	LIMIT 1`

// ActiveContract returns the contract in force for a client, or nil when the
// client has none.
func (s *Store) ActiveContract(ctx context.Context, clientID string) (*api.ClientContract, error) {
	if clientID == "" {
		return nil, nil
	}

	var (
		id                    string
		floor, ceiling, fixed decimal.NullDecimal
	)
	err := s.db.QueryRowContext(ctx, activeContractQuery, clientID, s.now().UTC()).
		Scan(&id, &floor, &ceiling, &fixed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.NewLookupError(perrors.ErrCodeContractLookup, "client "+clientID, err)
	}

	return &api.ClientContract{
		ID:        id,
		Floor:     nullable(floor),
		Cap:       nullable(ceiling),
		FixedRate: nullable(fixed),
	}, nil
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
