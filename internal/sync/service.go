// Package sync orchestrates calendar feed ingestion: fetch, parse,
// deduplicate, persist, and report progress.
package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/stayledger/backend/internal/conflict"
	"github.com/stayledger/backend/internal/ical"
	"github.com/stayledger/backend/internal/storage/models"
	"github.com/stayledger/backend/pkg/logger"
	"github.com/stayledger/backend/pkg/metrics"
)

// BookingStore is the booking persistence collaborator. The engine only
// inserts and lists; it never deletes, and never mutates an imported
// booking outside conflict resolution.
type BookingStore interface {
	FindByExternalID(ctx context.Context, propertyID, externalID string) (*models.Booking, error)
	InsertIfAbsent(ctx context.Context, b *models.Booking) (bool, error)
	ListByProperty(ctx context.Context, propertyID string) ([]models.Booking, error)
	ListUpcoming(ctx context.Context, propertyID string, after time.Time, limit int) ([]models.Booking, error)
}

// BlockStore persists administrative blocks under the same dedup rule as
// bookings.
type BlockStore interface {
	InsertIfAbsent(ctx context.Context, b *models.BlockedDate) (bool, error)
}

// ConnectionRegistry holds per-(property, platform) sync metadata.
type ConnectionRegistry interface {
	Get(ctx context.Context, propertyID string, platform models.Platform) (*models.SyncConnection, error)
	MarkSynced(ctx context.Context, propertyID string, platform models.Platform, at time.Time) error
}

// RateProvider supplies the nightly rate used to derive a booking's amount
// at import time.
type RateProvider interface {
	NightlyRate(ctx context.Context, propertyID string) (float64, error)
}

// upcomingPreviewLimit caps the upcoming-bookings preview in the terminal
// result.
const upcomingPreviewLimit = 5

// Service runs sync operations. Each run is an independent, cancellable
// task; runs for different properties share no mutable state, and within a
// property only the import step is serialized.
type Service struct {
	bookings BookingStore
	blocks   BlockStore
	registry ConnectionRegistry
	rates    RateProvider
	parser   *ical.Parser
	fetcher  *Fetcher
	log      logger.Logger
	metrics  *metrics.Metrics

	mu            gosync.Mutex
	propertyLocks map[string]*gosync.Mutex
}

// NewService creates a sync service. A nil parser selects the default
// classifier rules; a nil fetcher selects the default timeout; metrics may
// be nil.
func NewService(
	bookings BookingStore,
	blocks BlockStore,
	registry ConnectionRegistry,
	rates RateProvider,
	parser *ical.Parser,
	fetcher *Fetcher,
	log logger.Logger,
	m *metrics.Metrics,
) *Service {
	if parser == nil {
		parser = ical.NewParser(nil)
	}
	if fetcher == nil {
		fetcher = NewFetcher(0)
	}
	return &Service{
		bookings:      bookings,
		blocks:        blocks,
		registry:      registry,
		rates:         rates,
		parser:        parser,
		fetcher:       fetcher,
		log:           log,
		metrics:       m,
		propertyLocks: make(map[string]*gosync.Mutex),
	}
}

// propertyLock returns the import lock for a property. Concurrent syncs of
// different platforms for the same property race on the externalId dedup
// check; this is the one place serialization is mandatory.
func (s *Service) propertyLock(propertyID string) *gosync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.propertyLocks[propertyID]
	if !ok {
		l = &gosync.Mutex{}
		s.propertyLocks[propertyID] = l
	}
	return l
}

// Sync starts a sync run for the given (property, platform) connection and
// returns its progress stream. The stream delivers stage events in order
// (connect, fetch, classify, import, finalize) and ends with a terminal
// event carrying either a Result or an error. Cancelling ctx stops event
// delivery; rows imported before cancellation stay committed.
func (s *Service) Sync(ctx context.Context, propertyID string, platform models.Platform) <-chan ProgressEvent {
	events := make(chan ProgressEvent, 8)
	go func() {
		defer close(events)
		s.run(ctx, propertyID, platform, events)
	}()
	return events
}

// emit delivers an event unless the consumer is gone.
func emit(ctx context.Context, events chan<- ProgressEvent, ev ProgressEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Service) run(ctx context.Context, propertyID string, platform models.Platform, events chan<- ProgressEvent) {
	started := time.Now()
	log := s.log.With("property_id", propertyID, "platform", platform.String())

	fail := func(stage Stage, err error) {
		log.Error("sync failed", "stage", string(stage), "error", err)
		if s.metrics != nil {
			s.metrics.SyncsTotal.WithLabelValues(platform.String(), "error").Inc()
		}
		emit(ctx, events, ProgressEvent{
			Stage:    stage,
			Message:  err.Error(),
			Fraction: stage.Fraction(),
			Err:      err,
		})
	}

	// Connect: resolve the connection and validate its feed URL before any
	// network traffic.
	conn, err := s.registry.Get(ctx, propertyID, platform)
	if err != nil {
		fail(StageConnect, fmt.Errorf("%w: %v", ErrPersistence, err))
		return
	}
	if conn == nil {
		fail(StageConnect, fmt.Errorf("%w: %s/%s", ErrConnectionNotFound, propertyID, platform))
		return
	}
	if err := ValidateFeedURL(conn.FeedURL); err != nil {
		fail(StageConnect, err)
		return
	}
	if !emit(ctx, events, ProgressEvent{
		Stage:    StageConnect,
		Message:  fmt.Sprintf("Connected to %s feed", platform.DisplayName()),
		Fraction: StageConnect.Fraction(),
	}) {
		return
	}

	// Fetch: one attempt, no automatic retry. A failed fetch aborts the
	// whole run with nothing imported.
	raw, err := s.fetcher.Fetch(ctx, conn.FeedURL)
	if err != nil {
		fail(StageFetch, err)
		return
	}
	if !emit(ctx, events, ProgressEvent{
		Stage:    StageFetch,
		Message:  fmt.Sprintf("Downloaded %d bytes", len(raw)),
		Fraction: StageFetch.Fraction(),
	}) {
		return
	}

	// Classify: parsing is total, so a garbled feed just yields fewer
	// events. Zero events is a success, not a failure.
	parsed := s.parser.Parse(raw, platform)
	reservations := 0
	for _, e := range parsed {
		if e.Classification == models.ClassificationReservation {
			reservations++
		}
	}
	if !emit(ctx, events, ProgressEvent{
		Stage:    StageClassify,
		Message:  fmt.Sprintf("Found %d reservations and %d blocks", reservations, len(parsed)-reservations),
		Fraction: StageClassify.Fraction(),
	}) {
		return
	}

	// Import: serialized per property, durable per row. Re-running against
	// an unchanged feed imports nothing.
	result := &Result{
		PropertyID:  propertyID,
		Platform:    platform,
		EventsFound: len(parsed),
	}
	if err := s.importEvents(ctx, conn, parsed, result); err != nil {
		fail(StageImport, err)
		return
	}
	if !emit(ctx, events, ProgressEvent{
		Stage:    StageImport,
		Message:  fmt.Sprintf("Imported %d reservations and %d blocks", result.ImportedReservations, result.ImportedBlocks),
		Fraction: StageImport.Fraction(),
	}) {
		return
	}

	// Finalize: recompute conflicts, stamp the connection, assemble the
	// upcoming preview.
	now := time.Now().UTC()
	all, err := s.bookings.ListByProperty(ctx, propertyID)
	if err != nil {
		fail(StageFinalize, fmt.Errorf("%w: %v", ErrPersistence, err))
		return
	}
	result.ConflictsFound = len(conflict.FindConflicts(all))

	if err := s.registry.MarkSynced(ctx, propertyID, platform, now); err != nil {
		fail(StageFinalize, fmt.Errorf("%w: %v", ErrPersistence, err))
		return
	}

	upcoming, err := s.bookings.ListUpcoming(ctx, propertyID, now, upcomingPreviewLimit)
	if err != nil {
		fail(StageFinalize, fmt.Errorf("%w: %v", ErrPersistence, err))
		return
	}
	result.UpcomingBookings = upcoming
	result.SyncedAt = now

	if s.metrics != nil {
		s.metrics.SyncsTotal.WithLabelValues(platform.String(), "success").Inc()
		s.metrics.BookingsImported.WithLabelValues(platform.String()).Add(float64(result.ImportedReservations))
		s.metrics.BlocksImported.WithLabelValues(platform.String()).Add(float64(result.ImportedBlocks))
		s.metrics.ConflictsDetected.Add(float64(result.ConflictsFound))
		s.metrics.SyncDuration.Observe(time.Since(started).Seconds())
	}

	log.Info("sync completed",
		"events_found", result.EventsFound,
		"imported_reservations", result.ImportedReservations,
		"imported_blocks", result.ImportedBlocks,
		"conflicts_found", result.ConflictsFound,
	)

	emit(ctx, events, ProgressEvent{
		Stage:    StageFinalize,
		Message:  "Sync complete",
		Fraction: StageFinalize.Fraction(),
		Result:   result,
	})
}

// importEvents persists parsed events: reservations become bookings priced
// at the property's nightly rate, blocks become blocked-date entries. Each
// insert is individually durable; cancellation mid-import keeps what has
// been written.
func (s *Service) importEvents(ctx context.Context, conn *models.SyncConnection, parsed []models.CalendarEvent, result *Result) error {
	if len(parsed) == 0 {
		return nil
	}

	rate, err := s.rates.NightlyRate(ctx, conn.PropertyID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	lock := s.propertyLock(conn.PropertyID)
	lock.Lock()
	defer lock.Unlock()

	for i := range parsed {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		event := parsed[i]
		externalID := event.ExternalID

		switch event.Classification {
		case models.ClassificationReservation:
			booking := &models.Booking{
				ExternalID: &externalID,
				PropertyID: conn.PropertyID,
				Platform:   conn.Platform,
				StartDate:  event.StartDate,
				EndDate:    event.EndDate,
				GuestLabel: event.GuestLabel,
				// Amount is derived once, at import time, and never
				// recomputed if the rate changes later.
				Amount: rate * float64(event.Nights()),
				Status: models.BookingStatusActive,
			}
			inserted, err := s.bookings.InsertIfAbsent(ctx, booking)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPersistence, err)
			}
			if inserted {
				result.ImportedReservations++
			}

		case models.ClassificationBlock:
			block := &models.BlockedDate{
				ExternalID: &externalID,
				PropertyID: conn.PropertyID,
				Platform:   conn.Platform,
				StartDate:  event.StartDate,
				EndDate:    event.EndDate,
			}
			inserted, err := s.blocks.InsertIfAbsent(ctx, block)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPersistence, err)
			}
			if inserted {
				result.ImportedBlocks++
			}
		}
	}

	return nil
}

// Conflicts recomputes the double-bookings for a property from its current
// booking set.
func (s *Service) Conflicts(ctx context.Context, propertyID string) ([]models.Conflict, error) {
	bookings, err := s.bookings.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return conflict.FindConflicts(bookings), nil
}
