package domain

import "time"

// Product is a menu item as the catalog exposes it
type Product struct {
	ID           string
	RestaurantID string
	Name         string
	Description  string
	Category     string
	UnitPrice    Money
	Available    bool
	Rating       float64
	TotalReviews int
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RatedAggregate returns the product's current rating state
func (p *Product) RatedAggregate() RatedAggregate {
	return RatedAggregate{Rating: p.Rating, TotalReviews: p.TotalReviews}
}

// CheckOrderable verifies the product can be sold by restaurantID right now
func (p *Product) CheckOrderable(restaurantID string) error {
	if p.RestaurantID != "" && p.RestaurantID != restaurantID {
		return NewProductNotInRestaurant(p.ID, restaurantID)
	}
	if !p.Available {
		return NewProductUnavailable(p.ID)
	}
	return nil
}
