package ical

import (
	"strings"
	"testing"
	"time"

	"github.com/stayledger/backend/internal/storage/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParser_Parse(t *testing.T) {
	p := NewParser(nil)

	tests := []struct {
		name string
		feed string
		want int
	}{
		{
			name: "single well-formed event",
			feed: "BEGIN:VCALENDAR\nBEGIN:VEVENT\nUID:abc\nSUMMARY:Reserved\nDTSTART:20260201\nDTEND:20260205\nEND:VEVENT\nEND:VCALENDAR\n",
			want: 1,
		},
		{
			name: "three well-formed events",
			feed: "BEGIN:VEVENT\nUID:1\nDTSTART:20260201\nDTEND:20260203\nEND:VEVENT\n" +
				"BEGIN:VEVENT\nUID:2\nDTSTART:20260210\nDTEND:20260212\nEND:VEVENT\n" +
				"BEGIN:VEVENT\nUID:3\nDTSTART:20260220\nDTEND:20260221\nEND:VEVENT\n",
			want: 3,
		},
		{
			name: "missing DTEND is dropped",
			feed: "BEGIN:VEVENT\nUID:1\nDTSTART:20260201\nEND:VEVENT\n" +
				"BEGIN:VEVENT\nUID:2\nDTSTART:20260210\nDTEND:20260212\nEND:VEVENT\n",
			want: 1,
		},
		{
			name: "missing DTSTART is dropped",
			feed: "BEGIN:VEVENT\nUID:1\nDTEND:20260205\nEND:VEVENT\n",
			want: 0,
		},
		{
			name: "datetime format is unsupported",
			feed: "BEGIN:VEVENT\nUID:1\nDTSTART:20260201T150000Z\nDTEND:20260205T110000Z\nEND:VEVENT\n",
			want: 0,
		},
		{
			name: "zero-night span is dropped",
			feed: "BEGIN:VEVENT\nUID:1\nDTSTART:20260201\nDTEND:20260201\nEND:VEVENT\n",
			want: 0,
		},
		{
			name: "text outside VEVENT is ignored",
			feed: "BEGIN:VCALENDAR\nPRODID:-//Airbnb Inc//EN\nVERSION:2.0\nEND:VCALENDAR\n",
			want: 0,
		},
		{
			name: "garbage lines never fail the feed",
			feed: "not an ics line\n::::\nBEGIN:VEVENT\nUID:1\nDTSTART:20260201\nDTEND:20260202\nEND:VEVENT\n",
			want: 1,
		},
		{
			name: "empty input",
			feed: "",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := p.Parse(tt.feed, models.PlatformAirbnb)
			if len(events) != tt.want {
				t.Fatalf("Parse returned %d events, want %d", len(events), tt.want)
			}
		})
	}
}

func TestParser_Parse_Fields(t *testing.T) {
	p := NewParser(nil)

	feed := strings.Join([]string{
		"BEGIN:VEVENT",
		"UID:airbnb-evt-42",
		"DTSTART;VALUE=DATE:20260201",
		"DTEND;VALUE=DATE:20260205",
		"SUMMARY:Reserved",
		"DESCRIPTION:Check-in after 3pm\\, keys in lockbox",
		"END:VEVENT",
	}, "\r\n")

	events := p.Parse(feed, models.PlatformAirbnb)
	if len(events) != 1 {
		t.Fatalf("Parse returned %d events, want 1", len(events))
	}

	e := events[0]
	if e.ExternalID != "airbnb-evt-42" {
		t.Errorf("ExternalID = %q, want %q", e.ExternalID, "airbnb-evt-42")
	}
	if !e.StartDate.Equal(date(2026, time.February, 1)) {
		t.Errorf("StartDate = %v", e.StartDate)
	}
	if !e.EndDate.Equal(date(2026, time.February, 5)) {
		t.Errorf("EndDate = %v", e.EndDate)
	}
	if e.Nights() != 4 {
		t.Errorf("Nights = %d, want 4", e.Nights())
	}
	if e.RawDescription != "Check-in after 3pm, keys in lockbox" {
		t.Errorf("RawDescription = %q", e.RawDescription)
	}
	if e.Classification != models.ClassificationReservation {
		t.Errorf("Classification = %q, want reservation", e.Classification)
	}
	if e.GuestLabel != "Airbnb Guest" {
		t.Errorf("GuestLabel = %q, want %q", e.GuestLabel, "Airbnb Guest")
	}
}

func TestParser_Parse_RepeatedKeyLastWriteWins(t *testing.T) {
	p := NewParser(nil)

	feed := "BEGIN:VEVENT\nUID:1\nSUMMARY:First\nSUMMARY:Second\nDTSTART:20260201\nDTEND:20260202\nEND:VEVENT\n"
	events := p.Parse(feed, models.PlatformVrbo)
	if len(events) != 1 {
		t.Fatalf("Parse returned %d events, want 1", len(events))
	}
	if events[0].RawSummary != "Second" {
		t.Errorf("RawSummary = %q, want %q", events[0].RawSummary, "Second")
	}
}

func TestParser_Parse_FoldedLines(t *testing.T) {
	p := NewParser(nil)

	feed := "BEGIN:VEVENT\r\nUID:1\r\nSUMMARY:Reserved for a very lon\r\n g stay\r\nDTSTART:20260201\r\nDTEND:20260203\r\nEND:VEVENT\r\n"
	events := p.Parse(feed, models.PlatformVrbo)
	if len(events) != 1 {
		t.Fatalf("Parse returned %d events, want 1", len(events))
	}
	if events[0].RawSummary != "Reserved for a very long stay" {
		t.Errorf("RawSummary = %q", events[0].RawSummary)
	}
}

func TestParser_Parse_MissingUIDGetsFreshToken(t *testing.T) {
	p := NewParser(nil)

	feed := "BEGIN:VEVENT\nSUMMARY:Reserved\nDTSTART:20260201\nDTEND:20260203\nEND:VEVENT\n"

	first := p.Parse(feed, models.PlatformOther)
	second := p.Parse(feed, models.PlatformOther)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("Parse returned %d and %d events, want 1 and 1", len(first), len(second))
	}
	if first[0].ExternalID == "" {
		t.Fatal("ExternalID is empty for UID-less event")
	}
	// No UID means no stable identity: every parse mints a new token.
	if first[0].ExternalID == second[0].ExternalID {
		t.Errorf("UID-less events share token %q across parses", first[0].ExternalID)
	}
}

func TestParser_Parse_BlockHasNoGuestLabel(t *testing.T) {
	p := NewParser(nil)

	feed := "BEGIN:VEVENT\nUID:1\nSUMMARY:Owner stay\nDTSTART:20260201\nDTEND:20260203\nEND:VEVENT\n"
	events := p.Parse(feed, models.PlatformAirbnb)
	if len(events) != 1 {
		t.Fatalf("Parse returned %d events, want 1", len(events))
	}
	if events[0].Classification != models.ClassificationBlock {
		t.Errorf("Classification = %q, want block", events[0].Classification)
	}
	if events[0].GuestLabel != "" {
		t.Errorf("GuestLabel = %q, want empty", events[0].GuestLabel)
	}
}
