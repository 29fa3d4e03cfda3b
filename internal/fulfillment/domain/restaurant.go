package domain

import "time"

// Restaurant is the read model the engine needs from the restaurant catalog
type Restaurant struct {
	ID           string
	MerchantID   string
	Name         string
	Description  string
	Categories   []string
	Location     GeoPoint
	Address      Address
	Hours        Schedule
	IsActive     bool
	Rating       float64
	TotalReviews int
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AcceptsOrdersAt reports whether the restaurant takes new orders at t
func (r *Restaurant) AcceptsOrdersAt(t time.Time) bool {
	return r.IsActive && r.Hours.IsOpenAt(t)
}

// RatedAggregate returns the restaurant's current rating state
func (r *Restaurant) RatedAggregate() RatedAggregate {
	return RatedAggregate{Rating: r.Rating, TotalReviews: r.TotalReviews}
}

// HasAnyCategory reports whether the restaurant serves at least one of the
// wanted categories. An empty filter matches everything.
func (r *Restaurant) HasAnyCategory(wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		for _, c := range r.Categories {
			if c == w {
				return true
			}
		}
	}
	return false
}
