// Package clickhouse provides the ClickHouse rate card snapshot store.
// Rate cards are stored as immutable, content-hashed snapshots; exactly one
// snapshot per alias is active and is what a process loads at start.
package clickhouse

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"escort-pricing/decision/ratecard"
	perrors "escort-pricing/pkg/errors"
)

// DefaultAlias names the snapshot line used when none is given.
const DefaultAlias = "default"

// RateCardSnapshot represents a point-in-time rate card capture
type RateCardSnapshot struct {
	ID        uuid.UUID `ch:"id"`
	Alias     string    `ch:"alias"`
	Name      string    `ch:"name"`
	Source    string    `ch:"source"`
	Hash      string    `ch:"hash"`
	Version   string    `ch:"version"`
	Payload   string    `ch:"payload"`
	IsActive  bool      `ch:"is_active"`
	CreatedAt time.Time `ch:"created_at"`
}

// Card decodes the snapshot payload over the built-in defaults.
func (s *RateCardSnapshot) Card() (ratecard.Card, error) {
	return ratecard.ParseJSON([]byte(s.Payload))
}

// Config holds ClickHouse connection configuration
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns default development configuration
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "escort_pricing",
		Username: "default",
		Password: "",
		Debug:    false,
	}
}

// Store is the rate card snapshot store
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

// NewStore creates a new ClickHouse snapshot store
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Migrate creates the snapshot tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// =============================================================================
// SNAPSHOT OPERATIONS
// =============================================================================

const snapshotColumns = `id, alias, name, source, hash, version, payload, is_active, created_at`

// CreateSnapshot inserts a new rate card snapshot
func (s *Store) CreateSnapshot(ctx context.Context, snapshot *RateCardSnapshot) error {
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.Alias == "" {
		snapshot.Alias = DefaultAlias
	}
	snapshot.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO ratecard_snapshots (` + snapshotColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return s.conn.Exec(ctx, query,
		snapshot.ID,
		snapshot.Alias,
		snapshot.Name,
		snapshot.Source,
		snapshot.Hash,
		snapshot.Version,
		snapshot.Payload,
		boolToUInt8(snapshot.IsActive),
		snapshot.CreatedAt,
	)
}

// GetSnapshot retrieves a snapshot by ID
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (*RateCardSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM ratecard_snapshots FINAL
		WHERE id = ? AND _deleted = 0
	`
	snapshot, err := scanSnapshot(s.conn.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snapshot, nil
}

// GetActiveSnapshot retrieves the active snapshot for an alias
func (s *Store) GetActiveSnapshot(ctx context.Context, alias string) (*RateCardSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM ratecard_snapshots FINAL
		WHERE alias = ? AND is_active = 1 AND _deleted = 0
		ORDER BY created_at DESC
		LIMIT 1
	`
	snapshot, err := scanSnapshot(s.conn.QueryRow(ctx, query, alias))
	if err != nil {
		return nil, fmt.Errorf("failed to get active snapshot: %w", err)
	}
	return snapshot, nil
}

// FindSnapshotByHash finds a snapshot by its content hash
func (s *Store) FindSnapshotByHash(ctx context.Context, alias, hash string) (*RateCardSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM ratecard_snapshots FINAL
		WHERE alias = ? AND hash = ? AND _deleted = 0
		LIMIT 1
	`
	snapshot, err := scanSnapshot(s.conn.QueryRow(ctx, query, alias, hash))
	if err != nil {
		return nil, fmt.Errorf("failed to find snapshot by hash: %w", err)
	}
	return snapshot, nil
}

// ActivateSnapshot activates a snapshot (marks it as active, deactivates others)
func (s *Store) ActivateSnapshot(ctx context.Context, id uuid.UUID) error {
	snapshot, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return perrors.NewSnapshotNotFoundError(id.String())
	}

	// Deactivate existing active snapshots for this alias
	deactivateQuery := `
		INSERT INTO ratecard_snapshots
		SELECT id, alias, name, source, hash, version, payload, 0 as is_active, created_at,
			   _version + 1 as _version, _deleted
		FROM ratecard_snapshots FINAL
		WHERE alias = ? AND is_active = 1 AND _deleted = 0 AND id != ?
	`
	if err := s.conn.Exec(ctx, deactivateQuery, snapshot.Alias, id); err != nil {
		return fmt.Errorf("failed to deactivate snapshots: %w", err)
	}

	activateQuery := `
		INSERT INTO ratecard_snapshots
		SELECT id, alias, name, source, hash, version, payload, 1 as is_active, created_at,
			   _version + 1 as _version, _deleted
		FROM ratecard_snapshots FINAL
		WHERE id = ?
	`
	return s.conn.Exec(ctx, activateQuery, id)
}

// ListSnapshots lists snapshots for an alias, newest first
func (s *Store) ListSnapshots(ctx context.Context, alias string) ([]*RateCardSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM ratecard_snapshots FINAL
		WHERE alias = ? AND _deleted = 0
		ORDER BY created_at DESC
	`
	rows, err := s.conn.Query(ctx, query, alias)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*RateCardSnapshot
	for rows.Next() {
		var snapshot RateCardSnapshot
		var isActive uint8
		if err := rows.Scan(
			&snapshot.ID, &snapshot.Alias, &snapshot.Name, &snapshot.Source,
			&snapshot.Hash, &snapshot.Version, &snapshot.Payload, &isActive, &snapshot.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshot.IsActive = isActive == 1
		snapshots = append(snapshots, &snapshot)
	}
	return snapshots, rows.Err()
}

// LoadActiveCard returns the active rate card for alias. A missing snapshot
// is reported as SNAPSHOT_NOT_FOUND so callers can fall back to defaults.
func (s *Store) LoadActiveCard(ctx context.Context, alias string) (ratecard.Card, *RateCardSnapshot, error) {
	snapshot, err := s.GetActiveSnapshot(ctx, alias)
	if err != nil {
		return ratecard.Card{}, nil, err
	}
	if snapshot == nil {
		return ratecard.Card{}, nil, perrors.NewSnapshotNotFoundError("active snapshot for alias " + alias)
	}
	card, err := snapshot.Card()
	if err != nil {
		return ratecard.Card{}, snapshot, fmt.Errorf("snapshot %s: %w", snapshot.ID, err)
	}
	return card, snapshot, nil
}

// =============================================================================
// RATE ROW OPERATIONS
// =============================================================================

// CountRates returns the count of flattened rate rows in a snapshot
func (s *Store) CountRates(ctx context.Context, snapshotID uuid.UUID) (int, error) {
	query := `SELECT count() FROM ratecard_rates WHERE snapshot_id = ?`
	row := s.conn.QueryRow(ctx, query, snapshotID)
	var count uint64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rates: %w", err)
	}
	return int(count), nil
}

// BulkCreateRates inserts flattened rate rows using a batch insert
func (s *Store) BulkCreateRates(ctx context.Context, snapshotID uuid.UUID, rows []RateRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ratecard_rates (
			snapshot_id, section, escort_type, region, unit, low, high, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	now := time.Now().UTC()
	for _, r := range rows {
		if err := batch.Append(
			snapshotID, r.Section, r.EscortType, r.Region, r.Unit, r.Low, r.High, now,
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	return batch.Send()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// HashCard returns the content hash of a card. encoding/json writes map keys
// in sorted order, so equal cards hash equally.
func HashCard(card ratecard.Card) (string, []byte, error) {
	payload, err := json.Marshal(card)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal rate card: %w", err)
	}
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:]), payload, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*RateCardSnapshot, error) {
	var snapshot RateCardSnapshot
	var isActive uint8
	err := row.Scan(
		&snapshot.ID, &snapshot.Alias, &snapshot.Name, &snapshot.Source,
		&snapshot.Hash, &snapshot.Version, &snapshot.Payload, &isActive, &snapshot.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snapshot.IsActive = isActive == 1
	return &snapshot, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
