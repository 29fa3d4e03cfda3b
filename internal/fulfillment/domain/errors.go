package domain

import (
	"fmt"

	"go-marketplace/pkg/errors"
)

// Failure reasons carried on AppError.Reason
const (
	ReasonInvalidAmount           = "INVALID_AMOUNT"
	ReasonInvalidCurrency         = "INVALID_CURRENCY"
	ReasonInvalidLocation         = "INVALID_LOCATION"
	ReasonInvalidRating           = "INVALID_RATING"
	ReasonInvalidQuantity         = "INVALID_QUANTITY"
	ReasonInvalidStatus           = "INVALID_STATUS"
	ReasonInvalidOpeningHours     = "INVALID_OPENING_HOURS"
	ReasonRestaurantNotFound      = "RESTAURANT_NOT_FOUND"
	ReasonRestaurantInactive      = "RESTAURANT_INACTIVE"
	ReasonProductNotFound         = "PRODUCT_NOT_FOUND"
	ReasonProductUnavailable      = "PRODUCT_UNAVAILABLE"
	ReasonProductNotInRestaurant  = "PRODUCT_NOT_IN_RESTAURANT"
	ReasonEmptyOrder              = "EMPTY_ORDER"
	ReasonOrderNotFound           = "ORDER_NOT_FOUND"
	ReasonItemNotFound            = "ITEM_NOT_FOUND"
	ReasonInvalidTransition       = "INVALID_STATUS_TRANSITION"
	ReasonOrderNotEditable        = "ORDER_NOT_EDITABLE"
	ReasonPaymentFinal            = "PAYMENT_STATUS_FINAL"
	ReasonReviewNotFound          = "REVIEW_NOT_FOUND"
	ReasonDuplicateReview         = "DUPLICATE_REVIEW"
	ReasonOrderNotDelivered       = "ORDER_NOT_DELIVERED"
	ReasonReviewerNotOwner        = "REVIEWER_NOT_OWNER"
	ReasonVersionConflict         = "VERSION_CONFLICT"
	ReasonConflictRetriesExceeded = "CONFLICT_RETRIES_EXCEEDED"
)

// Domain-specific errors
var (
	ErrInvalidAmount      = errors.NewValidation("amount must be non-negative with at most two fractional digits", nil).WithReason(ReasonInvalidAmount)
	ErrInvalidCurrency    = errors.NewValidation("currency is not supported", nil).WithReason(ReasonInvalidCurrency)
	ErrInvalidLatitude    = errors.NewValidation("latitude must be between -90 and 90 degrees", nil).WithReason(ReasonInvalidLocation)
	ErrInvalidLongitude   = errors.NewValidation("longitude must be between -180 and 180 degrees", nil).WithReason(ReasonInvalidLocation)
	ErrInvalidRadius      = errors.NewValidation("radius must be greater than 0", nil).WithReason(ReasonInvalidLocation)
	ErrInvalidRating      = errors.NewValidation("rating must be an integer between 1 and 5", nil).WithReason(ReasonInvalidRating)
	ErrInvalidAggregate   = errors.NewValidation("rating aggregate must have rating in [0,5] and a non-negative count", nil).WithReason(ReasonInvalidRating)
	ErrInvalidQuantity    = errors.NewValidation("quantity must be at least 1", nil).WithReason(ReasonInvalidQuantity)
	ErrEmptyOrder         = errors.NewBusinessRule(ReasonEmptyOrder, "order must contain at least one item")
	ErrOrderNotEditable   = errors.NewInvalidState("order items can only be edited while the order is pending").WithReason(ReasonOrderNotEditable)
	ErrDuplicateReview    = errors.NewBusinessRule(ReasonDuplicateReview, "order has already been reviewed")
	ErrOrderNotDelivered  = errors.NewBusinessRule(ReasonOrderNotDelivered, "only delivered orders can be reviewed")
	ErrReviewerNotOwner   = errors.NewForbidden("customers can only review or delete their own orders' reviews").WithReason(ReasonReviewerNotOwner)
	ErrVersionConflict    = errors.NewConflict("aggregate was modified concurrently").WithReason(ReasonVersionConflict)
	ErrRetriesExhausted   = errors.NewConflict("aggregate kept changing concurrently, giving up").WithReason(ReasonConflictRetriesExceeded)
	ErrCustomerIDRequired = errors.NewValidation("customer_id is required", nil)
	ErrRestaurantIDNeeded = errors.NewValidation("restaurant_id is required", nil)
	ErrPaymentMethodEmpty = errors.NewValidation("payment_method is required", nil)
)

// NewOrderNotFound creates a not found error with the order ID
func NewOrderNotFound(id string) error {
	return errors.NewNotFound("order", id).WithReason(ReasonOrderNotFound)
}

// NewRestaurantNotFound creates a not found error with the restaurant ID
func NewRestaurantNotFound(id string) error {
	return errors.NewNotFound("restaurant", id).WithReason(ReasonRestaurantNotFound)
}

// NewRestaurantInactive reports a restaurant that is not accepting orders
func NewRestaurantInactive(id string) error {
	return errors.NewBusinessRule(ReasonRestaurantInactive,
		fmt.Sprintf("restaurant %s is not accepting orders", id))
}

// NewProductNotFound creates a not found error with the product ID
func NewProductNotFound(id string) error {
	return errors.NewNotFound("product", id).WithReason(ReasonProductNotFound)
}

// NewProductUnavailable reports a product that cannot currently be ordered
func NewProductUnavailable(id string) error {
	return errors.NewBusinessRule(ReasonProductUnavailable,
		fmt.Sprintf("product %s is not available", id))
}

// NewProductNotInRestaurant reports a product sold by a different restaurant
func NewProductNotInRestaurant(productID, restaurantID string) error {
	return errors.NewBusinessRule(ReasonProductNotInRestaurant,
		fmt.Sprintf("product %s is not sold by restaurant %s", productID, restaurantID))
}

// NewItemNotFound reports a line item missing from an order
func NewItemNotFound(productID string) error {
	return errors.NewNotFound("order item", productID).WithReason(ReasonItemNotFound)
}

// NewReviewNotFound creates a not found error with the review ID
func NewReviewNotFound(id string) error {
	return errors.NewNotFound("review", id).WithReason(ReasonReviewNotFound)
}

// NewInvalidStatusTransition names both ends of a rejected transition
func NewInvalidStatusTransition(from, to OrderStatus) error {
	return errors.NewInvalidState(fmt.Sprintf("invalid status transition from %s to %s", from, to)).
		WithReason(ReasonInvalidTransition).
		WithDetails(map[string]interface{}{"from": string(from), "to": string(to)})
}

// NewInvalidStatus reports an unknown order or payment status value
func NewInvalidStatus(value string) error {
	return errors.NewValidation(fmt.Sprintf("unknown status %q", value), nil).WithReason(ReasonInvalidStatus)
}

// NewPaymentStatusFinal reports a payment status change out of a final state
func NewPaymentStatusFinal(from, to PaymentStatus) error {
	return errors.NewInvalidState(fmt.Sprintf("payment status cannot change from %s to %s", from, to)).
		WithReason(ReasonPaymentFinal)
}
