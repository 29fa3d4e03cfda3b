package infrastructure

import (
	"time"

	"go-marketplace/internal/fulfillment/application"
	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/ports"
)

// SuccessResponse wraps every successful payload
type SuccessResponse struct {
	Data    interface{} `json:"data"`
	TraceID string      `json:"trace_id,omitempty"`
}

// ErrorResponse documents the error envelope rendered by the error middleware
type ErrorResponse struct {
	Error   ErrorBody `json:"error"`
	TraceID string    `json:"trace_id,omitempty"`
}

// ErrorBody contains error details
type ErrorBody struct {
	Code    string      `json:"code"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// =============================================================================
// Requests
// =============================================================================

// OrderItemRequest is one cart line
type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes"`
}

// CreateOrderRequest is the request body for creating an order
type CreateOrderRequest struct {
	CustomerID      string             `json:"customer_id" binding:"required"`
	RestaurantID    string             `json:"restaurant_id" binding:"required"`
	Items           []OrderItemRequest `json:"items" binding:"dive"`
	DeliveryAddress domain.Address     `json:"delivery_address"`
	PaymentMethod   string             `json:"payment_method" binding:"required"`
	Notes           string             `json:"notes"`
}

// UpdateStatusRequest is the request body for a status transition
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdatePaymentRequest is the request body for a payment status change
type UpdatePaymentRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

// SetETARequest is the request body for the estimated delivery time
type SetETARequest struct {
	EstimatedDeliveryTime time.Time `json:"estimated_delivery_time" binding:"required"`
}

// UpdateQuantityRequest is the request body for a line quantity change
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// SubmitReviewRequest is the request body for reviewing an order
type SubmitReviewRequest struct {
	CustomerID string   `json:"customer_id" binding:"required"`
	OrderID    string   `json:"order_id" binding:"required"`
	Rating     int      `json:"rating"`
	Comment    string   `json:"comment"`
	Images     []string `json:"images"`
}

// RestaurantRequest is the request body for upserting a restaurant
type RestaurantRequest struct {
	MerchantID  string                `json:"merchant_id"`
	Name        string                `json:"name" binding:"required"`
	Description string                `json:"description"`
	Categories  []string              `json:"categories"`
	Latitude    float64               `json:"latitude"`
	Longitude   float64               `json:"longitude"`
	Address     domain.Address        `json:"address"`
	Hours       []domain.OpeningHours `json:"opening_hours"`
	IsActive    *bool                 `json:"is_active"`
}

// ProductRequest is the request body for upserting a product
type ProductRequest struct {
	RestaurantID string `json:"restaurant_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Price        string `json:"price" binding:"required"`
	Currency     string `json:"currency" binding:"required"`
	Available    *bool  `json:"available"`
}

// =============================================================================
// Responses
// =============================================================================

// OrderItemResponse is one priced line
type OrderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Total       string `json:"total"`
	Notes       string `json:"notes,omitempty"`
}

// OrderResponse is the response body for order operations
type OrderResponse struct {
	ID                    string              `json:"id"`
	CustomerID            string              `json:"customer_id"`
	RestaurantID          string              `json:"restaurant_id"`
	Items                 []OrderItemResponse `json:"items"`
	TotalPrice            string              `json:"total_price"`
	Currency              string              `json:"currency"`
	DeliveryAddress       domain.Address      `json:"delivery_address"`
	Status                string              `json:"status"`
	PaymentMethod         string              `json:"payment_method"`
	PaymentStatus         string              `json:"payment_status"`
	EstimatedDeliveryTime *time.Time          `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time          `json:"actual_delivery_time,omitempty"`
	Notes                 string              `json:"notes,omitempty"`
	Version               int64               `json:"version"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// OrderListResponse is one page of orders
type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	Total      int64           `json:"total"`
	TotalPages int             `json:"total_pages"`
}

// RestaurantOrderStatsResponse summarises a restaurant's order book. Revenue
// covers DELIVERED orders created in the last 30 days.
type RestaurantOrderStatsResponse struct {
	TotalRevenue        string `json:"total_revenue"`
	AverageOrderValue   string `json:"average_order_value"`
	Currency            string `json:"currency,omitempty"`
	DeliveredLast30Days int    `json:"delivered_last_30_days"`
	PendingOrders       int64  `json:"pending_orders"`
	CompletedOrders     int64  `json:"completed_orders"`
}

// RestaurantOrderListResponse is one page of a restaurant's orders with stats
type RestaurantOrderListResponse struct {
	OrderListResponse
	Stats RestaurantOrderStatsResponse `json:"stats"`
}

// StatusChangeResponse is one status history entry
type StatusChangeResponse struct {
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	Version   int64     `json:"version"`
	ChangedAt time.Time `json:"changed_at"`
}

// ReviewResponse is the response body for review operations
type ReviewResponse struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	RestaurantID string    `json:"restaurant_id"`
	OrderID      string    `json:"order_id"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	Images       []string  `json:"images,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RatingResponse is a rating aggregate
type RatingResponse struct {
	ID           string  `json:"id"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"total_reviews"`
}

// SubmitReviewResponse carries the review and the updated restaurant rating
type SubmitReviewResponse struct {
	Review     ReviewResponse `json:"review"`
	Restaurant RatingResponse `json:"restaurant"`
}

// RatingStatsResponse is the rating breakdown of a restaurant
type RatingStatsResponse struct {
	RestaurantID string         `json:"restaurant_id"`
	Average      float64        `json:"average"`
	TotalReviews int            `json:"total_reviews"`
	Distribution map[string]int `json:"distribution"`
}

// RestaurantResponse is the public view of a restaurant
type RestaurantResponse struct {
	ID           string                `json:"id"`
	MerchantID   string                `json:"merchant_id,omitempty"`
	Name         string                `json:"name"`
	Description  string                `json:"description,omitempty"`
	Categories   []string              `json:"categories"`
	Latitude     float64               `json:"latitude"`
	Longitude    float64               `json:"longitude"`
	Address      domain.Address        `json:"address"`
	Hours        []domain.OpeningHours `json:"opening_hours,omitempty"`
	IsActive     bool                  `json:"is_active"`
	Rating       float64               `json:"rating"`
	TotalReviews int                   `json:"total_reviews"`
}

// NearbyRestaurantResponse is one discovery hit
type NearbyRestaurantResponse struct {
	RestaurantResponse
	DistanceKm float64 `json:"distance_km"`
}

// NearbyResponse is one page of discovery hits
type NearbyResponse struct {
	Restaurants []NearbyRestaurantResponse `json:"restaurants"`
	Page        int                        `json:"page"`
	Limit       int                        `json:"limit"`
	Total       int                        `json:"total"`
	TotalPages  int                        `json:"total_pages"`
}

// ProductResponse is the public view of a product
type ProductResponse struct {
	ID           string  `json:"id"`
	RestaurantID string  `json:"restaurant_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Category     string  `json:"category,omitempty"`
	Price        string  `json:"price"`
	Currency     string  `json:"currency"`
	Available    bool    `json:"available"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"total_reviews"`
}

// =============================================================================
// Mappers
// =============================================================================

func toOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		// quantity >= 1 is enforced on construction, so Total cannot fail
		total, _ := item.Total()
		items[i] = OrderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice.Amount().StringFixed(2),
			Quantity:    item.Quantity,
			Total:       total.Amount().StringFixed(2),
			Notes:       item.Notes,
		}
	}

	return OrderResponse{
		ID:                    o.ID,
		CustomerID:            o.CustomerID,
		RestaurantID:          o.RestaurantID,
		Items:                 items,
		TotalPrice:            o.TotalPrice.Amount().StringFixed(2),
		Currency:              string(o.TotalPrice.Currency()),
		DeliveryAddress:       o.DeliveryAddress,
		Status:                string(o.Status),
		PaymentMethod:         o.PaymentMethod,
		PaymentStatus:         string(o.PaymentStatus),
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		ActualDeliveryTime:    o.ActualDeliveryTime,
		Notes:                 o.Notes,
		Version:               o.Version,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

func toOrderListResponse(orders []*domain.Order, page, limit int, total int64, totalPages int) OrderListResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return OrderListResponse{
		Orders:     out,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

func toRestaurantOrderStatsResponse(s application.RestaurantOrderStats) RestaurantOrderStatsResponse {
	out := RestaurantOrderStatsResponse{
		TotalRevenue:        "0.00",
		AverageOrderValue:   "0.00",
		DeliveredLast30Days: s.DeliveredInWindow,
		PendingOrders:       s.PendingOrders,
		CompletedOrders:     s.CompletedOrders,
	}
	if s.Revenue != nil {
		out.TotalRevenue = s.Revenue.Amount().StringFixed(2)
		out.Currency = string(s.Revenue.Currency())
	}
	if s.AverageOrderValue != nil {
		out.AverageOrderValue = s.AverageOrderValue.Amount().StringFixed(2)
	}
	return out
}

func toHistoryResponse(changes []ports.StatusChange) []StatusChangeResponse {
	out := make([]StatusChangeResponse, len(changes))
	for i, c := range changes {
		out[i] = StatusChangeResponse{
			From:      string(c.From),
			To:        string(c.To),
			Version:   c.Version,
			ChangedAt: c.ChangedAt,
		}
	}
	return out
}

func toReviewResponse(r *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:           r.ID,
		CustomerID:   r.CustomerID,
		RestaurantID: r.RestaurantID,
		OrderID:      r.OrderID,
		Rating:       r.Rating,
		Comment:      r.Comment,
		Images:       r.Images,
		CreatedAt:    r.CreatedAt,
	}
}

func toRatingResponse(r *application.RatingOutput) RatingResponse {
	return RatingResponse{ID: r.ID, Rating: r.Rating, TotalReviews: r.TotalReviews}
}

func toRestaurantResponse(r *domain.Restaurant) RestaurantResponse {
	categories := r.Categories
	if categories == nil {
		categories = []string{}
	}
	return RestaurantResponse{
		ID:           r.ID,
		MerchantID:   r.MerchantID,
		Name:         r.Name,
		Description:  r.Description,
		Categories:   categories,
		Latitude:     r.Location.Latitude(),
		Longitude:    r.Location.Longitude(),
		Address:      r.Address,
		Hours:        r.Hours,
		IsActive:     r.IsActive,
		Rating:       r.Rating,
		TotalReviews: r.TotalReviews,
	}
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID,
		RestaurantID: p.RestaurantID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		Price:        p.UnitPrice.Amount().StringFixed(2),
		Currency:     string(p.UnitPrice.Currency()),
		Available:    p.Available,
		Rating:       p.Rating,
		TotalReviews: p.TotalReviews,
	}
}
