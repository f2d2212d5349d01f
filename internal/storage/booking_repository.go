package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stayledger/backend/internal/storage/models"
)

// BookingRepository provides data access for bookings.
type BookingRepository struct {
	BaseRepository
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{BaseRepository: NewBaseRepository(db)}
}

const bookingColumns = `id, external_id, property_id, platform, start_date, end_date, guest_label, amount, status, created_at`

// Insert stores a new booking. The ID and CreatedAt are issued here.
func (r *BookingRepository) Insert(ctx context.Context, b *models.Booking) error {
	b.ID = GenerateID()
	b.CreatedAt = r.Now()
	if b.Status == "" {
		b.Status = models.BookingStatusActive
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.ExternalID, b.PropertyID, string(b.Platform), b.StartDate, b.EndDate,
		b.GuestLabel, b.Amount, b.Status, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}

	return nil
}

// InsertIfAbsent stores an imported booking unless one with the same
// (property, external_id) already exists. It reports whether a row was
// written. The unique index makes the check-and-insert atomic, so
// concurrent imports racing on the same dedup key cannot both win.
func (r *BookingRepository) InsertIfAbsent(ctx context.Context, b *models.Booking) (bool, error) {
	b.ID = GenerateID()
	b.CreatedAt = r.Now()
	if b.Status == "" {
		b.Status = models.BookingStatusActive
	}

	result, err := r.DB().ExecContext(ctx, `
		INSERT OR IGNORE INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.ExternalID, b.PropertyID, string(b.Platform), b.StartDate, b.EndDate,
		b.GuestLabel, b.Amount, b.Status, b.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking insert result: %w", err)
	}

	return rows > 0, nil
}

func scanBooking(scan func(dest ...any) error) (*models.Booking, error) {
	b := &models.Booking{}
	var platform string
	if err := scan(
		&b.ID, &b.ExternalID, &b.PropertyID, &platform, &b.StartDate, &b.EndDate,
		&b.GuestLabel, &b.Amount, &b.Status, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	b.Platform = models.ParsePlatform(platform)
	return b, nil
}

// GetByID retrieves a booking by its ID. Returns (nil, nil) when absent.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE id = ?
	`, id)

	b, err := scanBooking(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}

	return b, nil
}

// FindByExternalID retrieves a property's booking by its dedup key.
// Returns (nil, nil) when absent.
func (r *BookingRepository) FindByExternalID(ctx context.Context, propertyID, externalID string) (*models.Booking, error) {
	row := r.DB().QueryRowContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE property_id = ? AND external_id = ?
	`, propertyID, externalID)

	b, err := scanBooking(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking by external id: %w", err)
	}

	return b, nil
}

// ListByProperty retrieves all bookings for a property, oldest-created
// first.
func (r *BookingRepository) ListByProperty(ctx context.Context, propertyID string) ([]models.Booking, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE property_id = ?
		ORDER BY created_at ASC
	`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, *b)
	}

	return bookings, rows.Err()
}

// ListUpcoming retrieves up to limit future-dated bookings for a property,
// soonest first.
func (r *BookingRepository) ListUpcoming(ctx context.Context, propertyID string, after time.Time, limit int) ([]models.Booking, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE property_id = ? AND start_date > ?
		ORDER BY start_date ASC
		LIMIT ?
	`, propertyID, after, limit)
	if err != nil {
		return nil, fmt.Errorf("querying upcoming bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, *b)
	}

	return bookings, rows.Err()
}

// UpdateStatus changes a booking's status. The engine never deletes
// bookings; flagging is the only mutation it performs on existing rows.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE bookings SET status = ? WHERE id = ?
	`, status, id)
	if err != nil {
		return fmt.Errorf("updating booking status: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("booking not found: %s", id)
	}

	return nil
}
