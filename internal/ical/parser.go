// Package ical parses iCal/ICS calendar feeds into classified booking
// events.
package ical

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stayledger/backend/internal/storage/models"
)

// dateLayout is the only date format platform feeds use for all-day
// availability events. Timed events are unsupported and dropped.
const dateLayout = "20060102"

// Parser turns raw feed text into classified calendar events.
// Parsing is total: feeds are frequently non-conformant, so malformed
// records are dropped rather than failing the whole feed.
type Parser struct {
	classifier *Classifier
}

// NewParser creates a parser using the given classifier. A nil classifier
// selects the default rule table.
func NewParser(classifier *Classifier) *Parser {
	if classifier == nil {
		classifier = NewClassifier(nil, 0)
	}
	return &Parser{classifier: classifier}
}

// Parse extracts every well-formed VEVENT from raw feed text. The platform
// supplies the generic guest label for reservations, since feeds never
// carry guest details. Records missing DTSTART or DTEND, carrying a date in
// any format other than YYYYMMDD, or spanning zero nights are dropped
// silently.
func (p *Parser) Parse(raw string, platform models.Platform) []models.CalendarEvent {
	var events []models.CalendarEvent

	var record map[string]string
	for _, line := range unfoldLines(raw) {
		colonIdx := strings.Index(line, ":")
		if colonIdx == -1 {
			continue
		}

		key := line[:colonIdx]
		value := line[colonIdx+1:]

		// Strip property parameters (e.g. DTSTART;VALUE=DATE:20260215).
		if semiIdx := strings.Index(key, ";"); semiIdx != -1 {
			key = key[:semiIdx]
		}

		switch {
		case key == "BEGIN" && value == "VEVENT":
			record = make(map[string]string)
		case key == "END" && value == "VEVENT":
			if record != nil {
				if event, ok := p.buildEvent(record, platform); ok {
					events = append(events, event)
				}
				record = nil
			}
		case record != nil:
			// Last write wins for repeated keys.
			record[key] = value
		}
	}

	return events
}

// buildEvent converts one VEVENT's key/value pairs into a classified event.
func (p *Parser) buildEvent(record map[string]string, platform models.Platform) (models.CalendarEvent, bool) {
	startRaw, okStart := record["DTSTART"]
	endRaw, okEnd := record["DTEND"]
	if !okStart || !okEnd {
		return models.CalendarEvent{}, false
	}

	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		return models.CalendarEvent{}, false
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		return models.CalendarEvent{}, false
	}
	if !start.Before(end) {
		return models.CalendarEvent{}, false
	}

	event := models.CalendarEvent{
		ExternalID:     record["UID"],
		StartDate:      start,
		EndDate:        end,
		RawSummary:     unescapeText(record["SUMMARY"]),
		RawDescription: unescapeText(record["DESCRIPTION"]),
	}
	if event.ExternalID == "" {
		// Known limitation: without a UID there is no dedup key, so the
		// event re-imports on every sync.
		event.ExternalID = uuid.NewString()
	}

	event.Classification = p.classifier.Classify(event.RawSummary, event.Nights())
	if event.Classification == models.ClassificationReservation {
		event.GuestLabel = platform.GuestPlaceholder()
	}

	return event, true
}

// unfoldLines splits feed text into logical lines, joining RFC 5545
// continuation lines (lines starting with a space or tab) onto their
// predecessor and stripping CR from CRLF endings.
func unfoldLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if len(lines) > 0 && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// unescapeText reverses the common iCal text escapes.
func unescapeText(value string) string {
	value = strings.ReplaceAll(value, "\\n", "\n")
	value = strings.ReplaceAll(value, "\\,", ",")
	value = strings.ReplaceAll(value, "\\;", ";")
	value = strings.ReplaceAll(value, "\\\\", "\\")
	return value
}
