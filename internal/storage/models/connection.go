package models

import "time"

// SyncConnection links a property to one platform's calendar feed.
// There is at most one connection per (property, platform) pair.
type SyncConnection struct {
	PropertyID            string     `json:"property_id"`
	Platform              Platform   `json:"platform"`
	FeedURL               string     `json:"feed_url"`
	LastSyncedAt          *time.Time `json:"last_synced_at,omitempty"`
	CadenceMinutes        int        `json:"cadence_minutes"`
	ConflictAlertsEnabled bool       `json:"conflict_alerts_enabled"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// DefaultCadenceMinutes is used when a connection does not specify a cadence.
const DefaultCadenceMinutes = 60

// recognizedCadences are the sync intervals the surrounding app offers.
var recognizedCadences = map[int]bool{15: true, 30: true, 60: true, 180: true}

// CadenceRecognized reports whether minutes is one of the supported
// sync intervals (15, 30, 60, 180).
func CadenceRecognized(minutes int) bool {
	return recognizedCadences[minutes]
}

// NormalizeCadence clamps an unrecognized cadence to the default.
func NormalizeCadence(minutes int) int {
	if CadenceRecognized(minutes) {
		return minutes
	}
	return DefaultCadenceMinutes
}
