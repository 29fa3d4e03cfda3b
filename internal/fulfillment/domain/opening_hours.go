package domain

import (
	"fmt"
	"strings"
	"time"

	"go-marketplace/pkg/errors"
)

// OpeningHours is one weekday's service window, "HH:mm" in 24h local time.
// Close must be after Open; windows do not wrap past midnight.
type OpeningHours struct {
	Day    time.Weekday `json:"day"`
	Open   string       `json:"open"`
	Close  string       `json:"close"`
	Closed bool         `json:"closed"`
}

// Validate checks the time format and ordering
func (h OpeningHours) Validate() error {
	if h.Closed {
		return nil
	}
	open, err := parseClock(h.Open)
	if err != nil {
		return err
	}
	closing, err := parseClock(h.Close)
	if err != nil {
		return err
	}
	if closing <= open {
		return errors.NewValidation("close time must be after open time", map[string]interface{}{
			"day": h.Day.String(), "open": h.Open, "close": h.Close,
		}).WithReason(ReasonInvalidOpeningHours)
	}
	return nil
}

// IsOpenAt reports whether t falls in [Open, Close) on h.Day
func (h OpeningHours) IsOpenAt(t time.Time) bool {
	if h.Closed || t.Weekday() != h.Day {
		return false
	}
	open, err := parseClock(h.Open)
	if err != nil {
		return false
	}
	closing, err := parseClock(h.Close)
	if err != nil {
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= open && minutes < closing
}

// Schedule is a restaurant's weekly opening hours
type Schedule []OpeningHours

// IsOpenAt reports whether any entry covers t. An empty schedule means the
// restaurant does not publish hours and is treated as always open.
func (s Schedule) IsOpenAt(t time.Time) bool {
	if len(s) == 0 {
		return true
	}
	for _, h := range s {
		if h.IsOpenAt(t) {
			return true
		}
	}
	return false
}

// ParseWeekday accepts "MONDAY", "monday" or "Monday"
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return 0, errors.NewValidation(fmt.Sprintf("unknown weekday %q", s), nil).WithReason(ReasonInvalidOpeningHours)
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return 0, errors.NewValidation("time must be in HH:mm format (24-hour)", map[string]interface{}{
			"value": s,
		}).WithReason(ReasonInvalidOpeningHours)
	}
	return t.Hour()*60 + t.Minute(), nil
}
