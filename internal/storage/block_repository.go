package storage

import (
	"context"
	"fmt"

	"github.com/stayledger/backend/internal/storage/models"
)

// BlockRepository provides data access for blocked-date entries.
type BlockRepository struct {
	BaseRepository
}

// NewBlockRepository creates a new blocked-date repository.
func NewBlockRepository(db *DB) *BlockRepository {
	return &BlockRepository{BaseRepository: NewBaseRepository(db)}
}

const blockColumns = `id, external_id, property_id, platform, start_date, end_date, created_at`

// InsertIfAbsent stores a blocked-date entry unless one with the same
// (property, external_id) already exists. Same atomic dedup rule as
// bookings.
func (r *BlockRepository) InsertIfAbsent(ctx context.Context, b *models.BlockedDate) (bool, error) {
	b.ID = GenerateID()
	b.CreatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, `
		INSERT OR IGNORE INTO blocked_dates (`+blockColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.ExternalID, b.PropertyID, string(b.Platform), b.StartDate, b.EndDate, b.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting blocked date: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking insert result: %w", err)
	}

	return rows > 0, nil
}

// ListByProperty retrieves all blocked-date entries for a property.
func (r *BlockRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.BlockedDate, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+blockColumns+` FROM blocked_dates
		WHERE property_id = ?
		ORDER BY start_date ASC
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying blocked dates: %w", err)
	}
	defer rows.Close()

	var blocks []models.BlockedDate
	for rows.Next() {
		var b models.BlockedDate
		var platform string
		if err := rows.Scan(
			&b.ID, &b.ExternalID, &b.PropertyID, &platform, &b.StartDate, &b.EndDate, &b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning blocked date: %w", err)
		}
		b.Platform = models.ParsePlatform(platform)
		blocks = append(blocks, b)
	}

	return blocks, rows.Err()
}
