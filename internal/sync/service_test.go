package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	gosync "sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stayledger/backend/internal/storage/models"
	"github.com/stayledger/backend/pkg/logger"
)

// In-memory collaborators matching the store contracts.

type fakeBookingStore struct {
	mu       gosync.Mutex
	bookings []models.Booking
}

func (f *fakeBookingStore) FindByExternalID(_ context.Context, propertyID, externalID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		b := f.bookings[i]
		if b.PropertyID == propertyID && b.ExternalID != nil && *b.ExternalID == externalID {
			return &b, nil
		}
	}
	return nil, nil
}

func (f *fakeBookingStore) InsertIfAbsent(_ context.Context, b *models.Booking) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ExternalID != nil {
		for i := range f.bookings {
			existing := f.bookings[i]
			if existing.PropertyID == b.PropertyID && existing.ExternalID != nil && *existing.ExternalID == *b.ExternalID {
				return false, nil
			}
		}
	}
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()
	f.bookings = append(f.bookings, *b)
	return true, nil
}

func (f *fakeBookingStore) ListByProperty(_ context.Context, propertyID string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.PropertyID == propertyID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) ListUpcoming(_ context.Context, propertyID string, after time.Time, limit int) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.PropertyID == propertyID && b.StartDate.After(after) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeBlockStore struct {
	mu     gosync.Mutex
	blocks []models.BlockedDate
}

func (f *fakeBlockStore) InsertIfAbsent(_ context.Context, b *models.BlockedDate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ExternalID != nil {
		for _, existing := range f.blocks {
			if existing.PropertyID == b.PropertyID && existing.ExternalID != nil && *existing.ExternalID == *b.ExternalID {
				return false, nil
			}
		}
	}
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()
	f.blocks = append(f.blocks, *b)
	return true, nil
}

type fakeRegistry struct {
	mu          gosync.Mutex
	connections map[string]*models.SyncConnection
	lastSynced  map[string]time.Time
}

func regKey(propertyID string, platform models.Platform) string {
	return propertyID + "/" + string(platform)
}

func newFakeRegistry(conns ...*models.SyncConnection) *fakeRegistry {
	r := &fakeRegistry{
		connections: make(map[string]*models.SyncConnection),
		lastSynced:  make(map[string]time.Time),
	}
	for _, c := range conns {
		r.connections[regKey(c.PropertyID, c.Platform)] = c
	}
	return r
}

func (f *fakeRegistry) Get(_ context.Context, propertyID string, platform models.Platform) (*models.SyncConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connections[regKey(propertyID, platform)], nil
}

func (f *fakeRegistry) MarkSynced(_ context.Context, propertyID string, platform models.Platform, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSynced[regKey(propertyID, platform)] = at
	return nil
}

type fakeRates struct {
	rate float64
	err  error
}

func (f *fakeRates) NightlyRate(context.Context, string) (float64, error) {
	return f.rate, f.err
}

type testEnv struct {
	bookings *fakeBookingStore
	blocks   *fakeBlockStore
	registry *fakeRegistry
	service  *Service
}

func newTestEnv(t *testing.T, feedURL string) *testEnv {
	t.Helper()
	env := &testEnv{
		bookings: &fakeBookingStore{},
		blocks:   &fakeBlockStore{},
		registry: newFakeRegistry(&models.SyncConnection{
			PropertyID:     "prop-1",
			Platform:       models.PlatformAirbnb,
			FeedURL:        feedURL,
			CadenceMinutes: 60,
		}),
	}
	env.service = NewService(
		env.bookings, env.blocks, env.registry, &fakeRates{rate: 100},
		nil, NewFetcher(5*time.Second), logger.NewNop(), nil,
	)
	return env
}

func drain(t *testing.T, events <-chan ProgressEvent) []ProgressEvent {
	t.Helper()
	var out []ProgressEvent
	for ev := range events {
		out = append(out, ev)
	}
	if len(out) == 0 {
		t.Fatal("progress stream delivered no events")
	}
	return out
}

func terminal(t *testing.T, events []ProgressEvent) ProgressEvent {
	t.Helper()
	last := events[len(events)-1]
	if !last.Terminal() {
		t.Fatalf("last event is not terminal: %+v", last)
	}
	return last
}

const endToEndFeed = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\nUID:1\r\nSUMMARY:Reserved\r\nDTSTART:20260201\r\nDTEND:20260205\r\nEND:VEVENT\r\n" +
	"BEGIN:VEVENT\r\nUID:2\r\nSUMMARY:CLOSED - Not available\r\nDTSTART:20260210\r\nDTEND:20260301\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSync_EndToEnd(t *testing.T) {
	srv := feedServer(t, endToEndFeed)
	env := newTestEnv(t, srv.URL)

	events := drain(t, env.service.Sync(context.Background(), "prop-1", models.PlatformAirbnb))
	last := terminal(t, events)

	if last.Err != nil {
		t.Fatalf("sync failed: %v", last.Err)
	}
	result := last.Result
	if result.EventsFound != 2 {
		t.Errorf("EventsFound = %d, want 2", result.EventsFound)
	}
	if result.ImportedReservations != 1 {
		t.Errorf("ImportedReservations = %d, want 1", result.ImportedReservations)
	}
	// Feb 10 to Mar 1 is 19 nights: past the 14-night cutoff, so the
	// ambiguous CLOSED marker classifies as a block.
	if result.ImportedBlocks != 1 {
		t.Errorf("ImportedBlocks = %d, want 1", result.ImportedBlocks)
	}

	if len(env.bookings.bookings) != 1 {
		t.Fatalf("stored %d bookings, want 1", len(env.bookings.bookings))
	}
	b := env.bookings.bookings[0]
	if b.Amount != 400 { // 4 nights at 100
		t.Errorf("Amount = %v, want 400", b.Amount)
	}
	if b.GuestLabel != "Airbnb Guest" {
		t.Errorf("GuestLabel = %q", b.GuestLabel)
	}
	if b.Platform != models.PlatformAirbnb {
		t.Errorf("Platform = %q", b.Platform)
	}

	if len(env.blocks.blocks) != 1 {
		t.Fatalf("stored %d blocks, want 1", len(env.blocks.blocks))
	}
	if n := env.blocks.blocks[0].Nights(); n != 19 {
		t.Errorf("block nights = %d, want 19", n)
	}

	if _, ok := env.registry.lastSynced["prop-1/airbnb"]; !ok {
		t.Error("connection was not marked synced")
	}
}

func TestSync_ProgressOrdering(t *testing.T) {
	srv := feedServer(t, endToEndFeed)
	env := newTestEnv(t, srv.URL)

	events := drain(t, env.service.Sync(context.Background(), "prop-1", models.PlatformAirbnb))

	wantStages := []Stage{StageConnect, StageFetch, StageClassify, StageImport, StageFinalize}
	if len(events) != len(wantStages) {
		t.Fatalf("got %d events, want %d", len(events), len(wantStages))
	}
	prev := 0.0
	for i, ev := range events {
		if ev.Stage != wantStages[i] {
			t.Errorf("event %d stage = %q, want %q", i, ev.Stage, wantStages[i])
		}
		if ev.Fraction <= prev {
			t.Errorf("event %d fraction %v not increasing past %v", i, ev.Fraction, prev)
		}
		prev = ev.Fraction
	}
	if events[len(events)-1].Fraction != 1.0 {
		t.Errorf("terminal fraction = %v, want 1.0", events[len(events)-1].Fraction)
	}
}

func TestSync_Idempotent(t *testing.T) {
	srv := feedServer(t, endToEndFeed)
	env := newTestEnv(t, srv.URL)

	first := terminal(t, drain(t, env.service.Sync(context.Background(), "prop-1", models.PlatformAirbnb)))
	if first.Result.ImportedReservations != 1 || first.Result.ImportedBlocks != 1 {
		t.Fatalf("first run imported %d/%d, want 1/1", first.Result.ImportedReservations, first.Result.ImportedBlocks)
	}

	second := terminal(t, drain(t, env.service.Sync(context.Background(), "prop-1", models.PlatformAirbnb)))
	if second.Err != nil {
		t.Fatalf("second run failed: %v", second.Err)
	}
	if second.Result.ImportedReservations != 0 || second.Result.ImportedBlocks != 0 {
		t.Errorf("second run imported %d reservations and %d blocks, want 0 and 0",
			second.Result.ImportedReservations, second.Result.ImportedBlocks)
	}
	if len(env.bookings.bookings) != 1 || len(env.blocks.blocks) != 1 {
		t.Errorf("stores grew on re-sync: %d bookings, %d blocks", len(env.bookings.bookings), len(env.blocks.blocks))
	}
}

func TestSync_ConnectionNotFound(t *testing.T) {
	env := newTestEnv(t, "http://example.com/feed.ics")

	last := terminal(t, drain(t, env.service.Sync(context.Background(), "prop-1", models.PlatformVrbo)))
	if !errors.Is(last.Err, ErrConnectionNotFound) {
		t.Fatalf("err = %v, want ErrConnectionNotFound", last.Err)
	}
	if last.Stage != StageConnect {
		t.Errorf("failed at stage %q, want connect", last.Stage)
	}
}

func TestSync_InvalidFeedURL(t *testing.T) {
	tests := []string{
		"not a url at all\n",
		"ftp://example.com/feed.ics",
		"/relative/path.ics",
		"",
	}

	for _, feedURL := range tests {
		env := newTestEnv(t, feedURL)

		last := terminal(t, drain(t, env.service.Sync(context.Background(), "prop-1", models.PlatformAirbnb)))
		if !errors.Is(last.Err, ErrInvalidFeedURL) {
			t.Errorf("feed %q: err = %v, want ErrInvalidFeedURL", feedURL, last.Err)
		}
	}
}

func TestSync_FetchFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	env := newTestEnv(t, srv.URL)

	last := terminal(t, drain(t, env.service.Sync(context.Background(), "prop-1", models.PlatformAirbnb)))
	if !errors.Is(last.Err, ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", last.Err)
	}
	if last.Stage != StageFetch {
		t.Errorf("failed at stage %q, want fetch", last.Stage)
	}
	// The whole run aborts: nothing is imported.
	if len(env.bookings.bookings) != 0 || len(env.blocks.blocks) != 0 {
		t.Error("fetch failure still imported rows")
	}
}

func TestSync_EmptyFeedIsZeroCountSuccess(t *testing.T) {
	srv := feedServer(t, "BEGIN:VCALENDAR\r\nPRODID:-//Vrbo//EN\r\nEND:VCALENDAR\r\n")
	env := newTestEnv(t, srv.URL)

	last := terminal(t, drain(t, env.service.Sync(context.Background(), "prop-1", models.PlatformAirbnb)))
	if last.Err != nil {
		t.Fatalf("empty feed reported as failure: %v", last.Err)
	}
	if last.Result.EventsFound != 0 || last.Result.ImportedReservations != 0 {
		t.Errorf("result = %+v, want zero counts", last.Result)
	}
}

func TestSync_PersistenceFailure(t *testing.T) {
	srv := feedServer(t, endToEndFeed)
	env := newTestEnv(t, srv.URL)
	env.service.rates = &fakeRates{err: errors.New("property missing")}

	last := terminal(t, drain(t, env.service.Sync(context.Background(), "prop-1", models.PlatformAirbnb)))
	if !errors.Is(last.Err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", last.Err)
	}
	if last.Stage != StageImport {
		t.Errorf("failed at stage %q, want import", last.Stage)
	}
}

func TestSync_UpcomingPreviewCappedAtFive(t *testing.T) {
	var feed string
	feed = "BEGIN:VCALENDAR\r\n"
	days := []string{"20270301", "20270310", "20270320", "20270401", "20270410", "20270420", "20270501"}
	ends := []string{"20270305", "20270312", "20270325", "20270403", "20270415", "20270425", "20270503"}
	for i := range days {
		feed += "BEGIN:VEVENT\r\nUID:evt-" + days[i] + "\r\nSUMMARY:Reserved\r\nDTSTART:" + days[i] + "\r\nDTEND:" + ends[i] + "\r\nEND:VEVENT\r\n"
	}
	feed += "END:VCALENDAR\r\n"

	srv := feedServer(t, feed)
	env := newTestEnv(t, srv.URL)

	last := terminal(t, drain(t, env.service.Sync(context.Background(), "prop-1", models.PlatformAirbnb)))
	if last.Err != nil {
		t.Fatalf("sync failed: %v", last.Err)
	}
	if last.Result.ImportedReservations != 7 {
		t.Fatalf("ImportedReservations = %d, want 7", last.Result.ImportedReservations)
	}
	if len(last.Result.UpcomingBookings) != 5 {
		t.Fatalf("UpcomingBookings = %d, want 5", len(last.Result.UpcomingBookings))
	}
	for i := 1; i < len(last.Result.UpcomingBookings); i++ {
		if last.Result.UpcomingBookings[i].StartDate.Before(last.Result.UpcomingBookings[i-1].StartDate) {
			t.Error("upcoming bookings not sorted by start date")
		}
	}
}

func TestSync_ConflictCountInResult(t *testing.T) {
	srv := feedServer(t, endToEndFeed)
	env := newTestEnv(t, srv.URL)

	// A manually entered booking already claims Feb 3 to Feb 7,
	// overlapping the feed's Feb 1 to Feb 5 reservation.
	env.bookings.bookings = append(env.bookings.bookings, models.Booking{
		ID:         "manual-1",
		PropertyID: "prop-1",
		Platform:   models.PlatformDirect,
		StartDate:  time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, time.February, 7, 0, 0, 0, 0, time.UTC),
		Status:     models.BookingStatusActive,
		CreatedAt:  time.Now().UTC().Add(-time.Hour),
	})

	last := terminal(t, drain(t, env.service.Sync(context.Background(), "prop-1", models.PlatformAirbnb)))
	if last.Err != nil {
		t.Fatalf("sync failed: %v", last.Err)
	}
	if last.Result.ConflictsFound != 1 {
		t.Errorf("ConflictsFound = %d, want 1", last.Result.ConflictsFound)
	}
}

func TestSync_CancellationStopsStream(t *testing.T) {
	srv := feedServer(t, endToEndFeed)
	env := newTestEnv(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	events := env.service.Sync(ctx, "prop-1", models.PlatformAirbnb)

	// Take the first event, then walk away.
	first, ok := <-events
	if !ok {
		t.Fatal("stream closed before first event")
	}
	if first.Stage != StageConnect {
		t.Fatalf("first stage = %q, want connect", first.Stage)
	}
	cancel()

	// The producer must notice and close the stream rather than block.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, open := <-events:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}

func TestSync_ConcurrentSameProperty(t *testing.T) {
	srv := feedServer(t, endToEndFeed)
	env := newTestEnv(t, srv.URL)
	env.registry.connections[regKey("prop-1", models.PlatformVrbo)] = &models.SyncConnection{
		PropertyID:     "prop-1",
		Platform:       models.PlatformVrbo,
		FeedURL:        srv.URL,
		CadenceMinutes: 60,
	}

	var wg gosync.WaitGroup
	for _, platform := range []models.Platform{models.PlatformAirbnb, models.PlatformVrbo} {
		wg.Add(1)
		go func(p models.Platform) {
			defer wg.Done()
			for range env.service.Sync(context.Background(), "prop-1", p) {
			}
		}(platform)
	}
	wg.Wait()

	// Both platforms carry the same event UIDs; the dedup key is scoped to
	// the property, so each UID lands exactly once.
	if len(env.bookings.bookings) != 1 {
		t.Errorf("stored %d bookings, want 1", len(env.bookings.bookings))
	}
	if len(env.blocks.blocks) != 1 {
		t.Errorf("stored %d blocks, want 1", len(env.blocks.blocks))
	}
}
