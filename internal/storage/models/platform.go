// Package models contains the domain models for the booking engine.
package models

import "strings"

// Platform identifies the source system a booking or feed belongs to.
// It is a closed enum: anything unrecognized maps to PlatformOther.
type Platform string

const (
	PlatformAirbnb        Platform = "airbnb"
	PlatformBookingDotCom Platform = "booking.com"
	PlatformVrbo          Platform = "vrbo"
	PlatformDirect        Platform = "direct"
	PlatformOther         Platform = "other"
)

// AllPlatforms lists every recognized platform value.
var AllPlatforms = []Platform{
	PlatformAirbnb,
	PlatformBookingDotCom,
	PlatformVrbo,
	PlatformDirect,
	PlatformOther,
}

// ParsePlatform converts a wire string into a Platform.
// Unknown values map to PlatformOther rather than failing.
func ParsePlatform(s string) Platform {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformAirbnb:
		return PlatformAirbnb
	case PlatformBookingDotCom:
		return PlatformBookingDotCom
	case PlatformVrbo:
		return PlatformVrbo
	case PlatformDirect:
		return PlatformDirect
	default:
		return PlatformOther
	}
}

// Valid reports whether p is one of the recognized platform values.
func (p Platform) Valid() bool {
	switch p {
	case PlatformAirbnb, PlatformBookingDotCom, PlatformVrbo, PlatformDirect, PlatformOther:
		return true
	}
	return false
}

// DisplayName returns the human-facing platform name.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformAirbnb:
		return "Airbnb"
	case PlatformBookingDotCom:
		return "Booking.com"
	case PlatformVrbo:
		return "Vrbo"
	case PlatformDirect:
		return "Direct"
	default:
		return "Other"
	}
}

// GuestPlaceholder returns the generic guest label used when a feed does not
// carry guest details (platform feeds never do).
func (p Platform) GuestPlaceholder() string {
	return p.DisplayName() + " Guest"
}

func (p Platform) String() string {
	return string(p)
}
