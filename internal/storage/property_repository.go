package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stayledger/backend/internal/storage/models"
)

// PropertyRepository provides the per-property attributes the engine needs
// (chiefly the nightly rate used to derive import amounts). Full property
// CRUD lives in the surrounding application.
type PropertyRepository struct {
	BaseRepository
}

// NewPropertyRepository creates a new property repository.
func NewPropertyRepository(db *DB) *PropertyRepository {
	return &PropertyRepository{BaseRepository: NewBaseRepository(db)}
}

// Upsert creates or updates a property.
func (r *PropertyRepository) Upsert(ctx context.Context, p *models.Property) error {
	if p.ID == "" {
		p.ID = GenerateID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.Now()
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO properties (id, name, nightly_rate, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			nightly_rate = excluded.nightly_rate
	`, p.ID, p.Name, p.NightlyRate, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting property: %w", err)
	}

	return nil
}

// GetByID retrieves a property. Returns (nil, nil) when absent.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	p := &models.Property{}
	err := r.DB().QueryRowContext(ctx, `
		SELECT id, name, nightly_rate, created_at FROM properties WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.NightlyRate, &p.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying property: %w", err)
	}

	return p, nil
}

// List returns all properties ordered by name.
func (r *PropertyRepository) List(ctx context.Context) ([]models.Property, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, name, nightly_rate, created_at FROM properties ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.NightlyRate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		properties = append(properties, p)
	}

	return properties, rows.Err()
}

// NightlyRate returns the property's nightly rate for amount derivation.
func (r *PropertyRepository) NightlyRate(ctx context.Context, propertyID string) (float64, error) {
	var rate float64
	err := r.DB().QueryRowContext(ctx, `
		SELECT nightly_rate FROM properties WHERE id = ?
	`, propertyID).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("property not found: %s", propertyID)
	}
	if err != nil {
		return 0, fmt.Errorf("querying nightly rate: %w", err)
	}

	return rate, nil
}
