package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stayledger/backend/internal/storage/models"
)

// ConnectionRepository is the registry of per-(property, platform) sync
// connections. Connections are created by the connect flow, updated on
// every successful sync, and never auto-deleted.
type ConnectionRepository struct {
	BaseRepository
}

// NewConnectionRepository creates a new connection repository.
func NewConnectionRepository(db *DB) *ConnectionRepository {
	return &ConnectionRepository{BaseRepository: NewBaseRepository(db)}
}

const connectionColumns = `property_id, platform, feed_url, last_synced_at, cadence_minutes, conflict_alerts_enabled, created_at, updated_at`

func scanConnection(scan func(dest ...any) error) (*models.SyncConnection, error) {
	c := &models.SyncConnection{}
	var platform string
	if err := scan(
		&c.PropertyID, &platform, &c.FeedURL, &c.LastSyncedAt,
		&c.CadenceMinutes, &c.ConflictAlertsEnabled, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Platform = models.ParsePlatform(platform)
	return c, nil
}

// Get retrieves the connection for a (property, platform) pair.
// Returns (nil, nil) when no connection exists.
func (r *ConnectionRepository) Get(ctx context.Context, propertyID string, platform models.Platform) (*models.SyncConnection, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+connectionColumns+` FROM sync_connections
		WHERE property_id = ? AND platform = ?
	`, propertyID, string(platform))

	c, err := scanConnection(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying connection: %w", err)
	}

	return c, nil
}

// Upsert creates or replaces the connection for its (property, platform)
// pair. The cadence is clamped to a recognized value.
func (r *ConnectionRepository) Upsert(ctx context.Context, c *models.SyncConnection) error {
	now := r.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.CadenceMinutes = models.NormalizeCadence(c.CadenceMinutes)

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO sync_connections (`+connectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(property_id, platform) DO UPDATE SET
			feed_url = excluded.feed_url,
			last_synced_at = excluded.last_synced_at,
			cadence_minutes = excluded.cadence_minutes,
			conflict_alerts_enabled = excluded.conflict_alerts_enabled,
			updated_at = excluded.updated_at
	`,
		c.PropertyID, string(c.Platform), c.FeedURL, c.LastSyncedAt,
		c.CadenceMinutes, c.ConflictAlertsEnabled, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting connection: %w", err)
	}

	return nil
}

// MarkSynced stamps a successful sync on the connection.
func (r *ConnectionRepository) MarkSynced(ctx context.Context, propertyID string, platform models.Platform, at time.Time) error {
	_, err := r.DB().ExecContext(ctx, `
		UPDATE sync_connections SET last_synced_at = ?, updated_at = ?
		WHERE property_id = ? AND platform = ?
	`, at, r.Now(), propertyID, string(platform))
	if err != nil {
		return fmt.Errorf("marking connection synced: %w", err)
	}

	return nil
}

// List retrieves every connection in the registry.
func (r *ConnectionRepository) List(ctx context.Context) ([]models.SyncConnection, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+connectionColumns+` FROM sync_connections
		ORDER BY property_id, platform
	`)
	if err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}
	defer rows.Close()

	var connections []models.SyncConnection
	for rows.Next() {
		c, err := scanConnection(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		connections = append(connections, *c)
	}

	return connections, rows.Err()
}

// ListByProperty retrieves all of a property's connections.
func (r *ConnectionRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.SyncConnection, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+connectionColumns+` FROM sync_connections
		WHERE property_id = ?
		ORDER BY platform
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}
	defer rows.Close()

	var connections []models.SyncConnection
	for rows.Next() {
		c, err := scanConnection(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		connections = append(connections, *c)
	}

	return connections, rows.Err()
}
