package domain

import (
	"strings"
	"time"
)

// Review is a customer's rating of a delivered order
type Review struct {
	ID           string
	CustomerID   string
	RestaurantID string
	OrderID      string
	Rating       int
	Comment      string
	Images       []string
	CreatedAt    time.Time
}

// NewReview validates a review against the order it rates
func NewReview(id, customerID string, order *Order, rating int, comment string, images []string, at time.Time) (*Review, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrCustomerIDRequired
	}
	if err := ValidateRating(rating); err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, ErrReviewerNotOwner
	}
	if order.Status != OrderStatusDelivered {
		return nil, ErrOrderNotDelivered.WithDetails(map[string]interface{}{
			"order_id": order.ID,
			"status":   string(order.Status),
		})
	}

	imgs := make([]string, len(images))
	copy(imgs, images)

	return &Review{
		ID:           id,
		CustomerID:   customerID,
		RestaurantID: order.RestaurantID,
		OrderID:      order.ID,
		Rating:       rating,
		Comment:      strings.TrimSpace(comment),
		Images:       imgs,
		CreatedAt:    at,
	}, nil
}
