package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks structural validity of the event, including the
// endDate >= startDate invariant.
func (e *Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	// ISO dates compare correctly as strings.
	if e.EndDate < e.StartDate {
		return fmt.Errorf("invalid event: end date %s before start date %s", e.EndDate, e.StartDate)
	}
	return nil
}

// Validate checks structural validity of the deck.
func (d *Deck) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid deck: %w", err)
	}
	return nil
}

// Validate checks structural validity of the match. The round ceiling against
// the owning event's totalRounds is enforced by the repositories, which can
// see the event.
func (m *Match) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid match: %w", err)
	}
	return nil
}

// DatesBetween expands an inclusive [start, end] ISO date range into the
// individual dates it covers.
func DatesBetween(start, end string) ([]string, error) {
	from, err := time.Parse(DateFormat, start)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start date %q: %w", start, err)
	}
	to, err := time.Parse(DateFormat, end)
	if err != nil {
		return nil, fmt.Errorf("failed to parse end date %q: %w", end, err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("end date %s before start date %s", end, start)
	}

	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateFormat))
	}
	return dates, nil
}
