package ical

import (
	"strings"

	"github.com/stayledger/backend/internal/storage/models"
)

// DefaultAmbiguousMaxNights is the duration cutoff for the ambiguous
// "closed"/"not available" marker: spans of at most this many nights are
// treated as reservations, longer spans as owner blocks.
const DefaultAmbiguousMaxNights = 14

// Rule matches a feed event summary and decides its classification.
// Rules are evaluated in order; the first match wins. Platform feeds change
// their wording occasionally, so the rule set is data, not code: new
// platforms get new rules, the classifier stays untouched.
type Rule struct {
	// Name identifies the rule in logs.
	Name string
	// AnyOf matches when the summary contains at least one of these
	// substrings (case-insensitive). Empty means match everything.
	AnyOf []string
	// NoneOf vetoes the match when the summary contains any of these.
	NoneOf []string
	// Ambiguous marks a rule whose summary wording is used by some
	// platforms for both blocks and real bookings. The span duration
	// disambiguates: short spans classify as reservations, long spans as
	// blocks.
	Ambiguous bool
	// Classification applies when the rule matches and is not ambiguous.
	Classification models.Classification
}

func (r *Rule) matches(summary string) bool {
	if len(r.AnyOf) > 0 {
		hit := false
		for _, s := range r.AnyOf {
			if strings.Contains(summary, s) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, s := range r.NoneOf {
		if strings.Contains(summary, s) {
			return false
		}
	}
	return true
}

// Classifier applies an ordered rule table to event summaries.
// The result is a best-effort guess: feeds do not say whether an entry is a
// paying guest or the owner blocking dates, and misclassifications are
// expected and acceptable.
type Classifier struct {
	rules              []Rule
	ambiguousMaxNights int
}

// DefaultRules returns the rule table matching the wording Airbnb, Vrbo and
// Booking.com use today.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:           "reserved",
			AnyOf:          []string{"reserved"},
			NoneOf:         []string{"not available"},
			Classification: models.ClassificationReservation,
		},
		{
			Name:      "closed-or-unavailable",
			AnyOf:     []string{"closed", "not available"},
			Ambiguous: true,
		},
	}
}

// NewClassifier creates a classifier over the given rules. A nil rules
// slice selects DefaultRules; a non-positive cutoff selects
// DefaultAmbiguousMaxNights.
func NewClassifier(rules []Rule, ambiguousMaxNights int) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	if ambiguousMaxNights <= 0 {
		ambiguousMaxNights = DefaultAmbiguousMaxNights
	}
	return &Classifier{rules: rules, ambiguousMaxNights: ambiguousMaxNights}
}

// Classify decides whether an event summary describes a reservation or an
// administrative block. Summaries that match no rule are blocks.
func (c *Classifier) Classify(summary string, nights int) models.Classification {
	s := strings.ToLower(summary)
	for i := range c.rules {
		r := &c.rules[i]
		if !r.matches(s) {
			continue
		}
		if r.Ambiguous {
			if nights <= c.ambiguousMaxNights {
				return models.ClassificationReservation
			}
			return models.ClassificationBlock
		}
		return r.Classification
	}
	return models.ClassificationBlock
}
