package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stayledger/backend/internal/storage/models"
)

func TestConnectionGetAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := NewConnectionRepository(db)

	conn, err := repo.Get(context.Background(), "prop-1", models.PlatformAirbnb)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if conn != nil {
		t.Errorf("expected nil for unregistered connection, got %+v", conn)
	}
}

func TestConnectionUpsertCreateThenUpdate(t *testing.T) {
	db := newTestDB(t)
	seedProperty(t, db, "prop-1", 100)
	repo := NewConnectionRepository(db)
	ctx := context.Background()

	err := repo.Upsert(ctx, &models.SyncConnection{
		PropertyID:            "prop-1",
		Platform:              models.PlatformAirbnb,
		FeedURL:               "https://airbnb.example/feed.ics",
		CadenceMinutes:        30,
		ConflictAlertsEnabled: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	created, err := repo.Get(ctx, "prop-1", models.PlatformAirbnb)
	if err != nil {
		t.Fatal(err)
	}
	if created == nil {
		t.Fatal("connection not found after create")
	}
	if created.FeedURL != "https://airbnb.example/feed.ics" || created.CadenceMinutes != 30 {
		t.Errorf("unexpected connection: %+v", created)
	}
	if created.LastSyncedAt != nil {
		t.Errorf("new connection has LastSyncedAt = %v, want nil", created.LastSyncedAt)
	}

	// Upserting the same pair replaces the feed settings.
	err = repo.Upsert(ctx, &models.SyncConnection{
		PropertyID:            "prop-1",
		Platform:              models.PlatformAirbnb,
		FeedURL:               "https://airbnb.example/feed-v2.ics",
		CadenceMinutes:        180,
		ConflictAlertsEnabled: false,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	updated, err := repo.Get(ctx, "prop-1", models.PlatformAirbnb)
	if err != nil {
		t.Fatal(err)
	}
	if updated.FeedURL != "https://airbnb.example/feed-v2.ics" {
		t.Errorf("FeedURL = %q, want updated URL", updated.FeedURL)
	}
	if updated.CadenceMinutes != 180 || updated.ConflictAlertsEnabled {
		t.Errorf("settings not replaced: %+v", updated)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("got %d connections, want 1", len(all))
	}
}

func TestConnectionUpsertNormalizesCadence(t *testing.T) {
	db := newTestDB(t)
	seedProperty(t, db, "prop-1", 100)
	repo := NewConnectionRepository(db)
	ctx := context.Background()

	err := repo.Upsert(ctx, &models.SyncConnection{
		PropertyID: "prop-1",
		Platform:   models.PlatformVrbo,
		FeedURL:    "https://vrbo.example/feed.ics",
		// 45 is not a recognized cadence.
		CadenceMinutes: 45,
	})
	if err != nil {
		t.Fatal(err)
	}

	conn, err := repo.Get(ctx, "prop-1", models.PlatformVrbo)
	if err != nil {
		t.Fatal(err)
	}
	if conn.CadenceMinutes != models.DefaultCadenceMinutes {
		t.Errorf("CadenceMinutes = %d, want default %d", conn.CadenceMinutes, models.DefaultCadenceMinutes)
	}
}

func TestConnectionMarkSynced(t *testing.T) {
	db := newTestDB(t)
	seedProperty(t, db, "prop-1", 100)
	repo := NewConnectionRepository(db)
	ctx := context.Background()

	err := repo.Upsert(ctx, &models.SyncConnection{
		PropertyID:     "prop-1",
		Platform:       models.PlatformBookingDotCom,
		FeedURL:        "https://booking.example/feed.ics",
		CadenceMinutes: 60,
	})
	if err != nil {
		t.Fatal(err)
	}

	syncedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.MarkSynced(ctx, "prop-1", models.PlatformBookingDotCom, syncedAt); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	conn, err := repo.Get(ctx, "prop-1", models.PlatformBookingDotCom)
	if err != nil {
		t.Fatal(err)
	}
	if conn.LastSyncedAt == nil {
		t.Fatal("LastSyncedAt still nil after MarkSynced")
	}
	if !conn.LastSyncedAt.Equal(syncedAt) {
		t.Errorf("LastSyncedAt = %v, want %v", conn.LastSyncedAt, syncedAt)
	}
}

func TestConnectionListByProperty(t *testing.T) {
	db := newTestDB(t)
	seedProperty(t, db, "prop-1", 100)
	seedProperty(t, db, "prop-2", 150)
	repo := NewConnectionRepository(db)
	ctx := context.Background()

	seed := []struct {
		propertyID string
		platform   models.Platform
	}{
		{"prop-1", models.PlatformAirbnb},
		{"prop-1", models.PlatformVrbo},
		{"prop-2", models.PlatformAirbnb},
	}
	for _, s := range seed {
		err := repo.Upsert(ctx, &models.SyncConnection{
			PropertyID:     s.propertyID,
			Platform:       s.platform,
			FeedURL:        "https://feeds.example/" + s.propertyID + ".ics",
			CadenceMinutes: 60,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.ListByProperty(ctx, "prop-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d connections for prop-1, want 2", len(list))
	}
	for _, c := range list {
		if c.PropertyID != "prop-1" {
			t.Errorf("connection for wrong property: %+v", c)
		}
	}
}
