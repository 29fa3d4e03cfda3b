package infrastructure

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"go-marketplace/internal/fulfillment/application"
	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/pkg/errors"
	"go-marketplace/pkg/middleware"
)

// HTTPHandler handles HTTP requests for the fulfillment engine
type HTTPHandler struct {
	fulfillment *application.FulfillmentService
	ratings     *application.RatingService
	discovery   *application.DiscoveryService
	catalog     *application.CatalogService
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(
	fulfillment *application.FulfillmentService,
	ratings *application.RatingService,
	discovery *application.DiscoveryService,
	catalog *application.CatalogService,
) *HTTPHandler {
	return &HTTPHandler{
		fulfillment: fulfillment,
		ratings:     ratings,
		discovery:   discovery,
		catalog:     catalog,
	}
}

// RegisterRoutes registers the engine routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetOrder)
		orders.GET("/:id/history", h.GetOrderHistory)
		orders.PATCH("/:id/status", h.UpdateOrderStatus)
		orders.PATCH("/:id/payment", h.UpdatePaymentStatus)
		orders.PATCH("/:id/eta", h.SetEstimatedDeliveryTime)
		orders.POST("/:id/items", h.AddItem)
		orders.PATCH("/:id/items/:productId", h.UpdateItemQuantity)
		orders.DELETE("/:id/items/:productId", h.RemoveItem)
	}

	r.GET("/customers/:id/orders", h.ListCustomerOrders)

	reviews := r.Group("/reviews")
	{
		reviews.POST("", h.SubmitReview)
		reviews.DELETE("/:id", h.DeleteReview)
	}

	restaurants := r.Group("/restaurants")
	{
		restaurants.GET("/nearby", h.FindNearbyRestaurants)
		restaurants.POST("", h.UpsertRestaurant)
		restaurants.GET("/:id", h.GetRestaurant)
		restaurants.PUT("/:id", h.UpsertRestaurant)
		restaurants.GET("/:id/ratings", h.GetRatingStats)
		restaurants.GET("/:id/orders", h.ListRestaurantOrders)
	}

	products := r.Group("/products")
	{
		products.POST("", h.UpsertProduct)
		products.PUT("/:id", h.UpsertProduct)
	}
}

// =============================================================================
// Orders
// =============================================================================

// CreateOrder creates a new order
// @Summary Create an order
// @Description Price a cart against the catalog and create a PENDING order
// @Tags orders
// @Accept json
// @Produce json
// @Param request body CreateOrderRequest true "Order creation request"
// @Success 201 {object} SuccessResponse{data=OrderResponse} "Order created"
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 404 {object} ErrorResponse "Restaurant or product not found"
// @Failure 422 {object} ErrorResponse "Business rule violation or currency mismatch"
// @Router /api/v1/orders [post]
func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	items := make([]application.CreateOrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = application.CreateOrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Notes: it.Notes}
	}

	output, err := h.fulfillment.CreateOrder(c.Request.Context(), application.CreateOrderInput{
		CustomerID:      req.CustomerID,
		RestaurantID:    req.RestaurantID,
		Items:           items,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		c.Error(err)
		return
	}

	respond(c, http.StatusCreated, toOrderResponse(output.Order))
}

// GetOrder retrieves an order by ID
// @Summary Get an order
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} SuccessResponse{data=OrderResponse}
// @Failure 404 {object} ErrorResponse "Order not found"
// @Router /api/v1/orders/{id} [get]
func (h *HTTPHandler) GetOrder(c *gin.Context) {
	output, err := h.fulfillment.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	respond(c, http.StatusOK, toOrderResponse(output.Order))
}

// GetOrderHistory returns the status transitions of an order
// @Summary Get order status history
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} SuccessResponse{data=[]StatusChangeResponse}
// @Failure 404 {object} ErrorResponse "Order not found"
// @Router /api/v1/orders/{id}/history [get]
func (h *HTTPHandler) GetOrderHistory(c *gin.Context) {
	changes, err := h.fulfillment.OrderHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	respond(c, http.StatusOK, toHistoryResponse(changes))
}

// UpdateOrderStatus moves an order through its lifecycle
// @Summary Transition order status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body UpdateStatusRequest true "Target status"
// @Success 200 {object} SuccessResponse{data=OrderResponse}
// @Failure 404 {object} ErrorResponse "Order not found"
// @Failure 409 {object} ErrorResponse "Invalid transition or concurrent update"
// @Router /api/v1/orders/{id}/status [patch]
func (h *HTTPHandler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}
	status, err := domain.ParseOrderStatus(strings.ToUpper(req.Status))
	if err != nil {
		c.Error(err)
		return
	}

	output, err := h.fulfillment.UpdateOrderStatus(c.Request.Context(), application.UpdateOrderStatusInput{
		OrderID: c.Param("id"),
		Status:  status,
	})
	if err != nil {
		c.Error(err)
		return
	}
	respond(c, http.StatusOK, toOrderResponse(output.Order))
}

// UpdatePaymentStatus records a payment outcome
// @Summary Update payment status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body UpdatePaymentRequest true "Payment status"
// @Success 200 {object} SuccessResponse{data=OrderResponse}
// @Failure 409 {object} ErrorResponse "Payment status is final"
// @Router /api/v1/orders/{id}/payment [patch]
func (h *HTTPHandler) UpdatePaymentStatus(c *gin.Context) {
	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}
	status, err := domain.ParsePaymentStatus(strings.ToUpper(req.PaymentStatus))
	if err != nil {
		c.Error(err)
		return
	}

	output, err := h.fulfillment.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		c.Error(err)
		return
	}
	respond(c, http.StatusOK, toOrderResponse(output.Order))
}

// SetEstimatedDeliveryTime sets the delivery estimate
// @Summary Set estimated delivery time
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body SetETARequest true "Estimate"
// @Success 200 {object} SuccessResponse{data=OrderResponse}
// @Failure 409 {object} ErrorResponse "Order is terminal"
// @Router /api/v1/orders/{id}/eta [patch]
func (h *HTTPHandler) SetEstimatedDeliveryTime(c *gin.Context) {
	var req SetETARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.fulfillment.SetEstimatedDeliveryTime(c.Request.Context(), c.Param("id"), req.EstimatedDeliveryTime)
	if err != nil {
		c.Error(err)
		return
	}
	respond(c, http.StatusOK, toOrderResponse(output.Order))
}

// AddItem adds a product to a pending order
// @Summary Add an order item
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body OrderItemRequest true "Item"
// @Success 200 {object} SuccessResponse{data=OrderResponse}
// @Failure 409 {object} ErrorResponse "Order is not editable"
// @Router /api/v1/orders/{id}/items [post]
func (h *HTTPHandler) AddItem(c *gin.Context) {
	var req OrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.fulfillment.AddItem(c.Request.Context(), application.AddItemInput{
		OrderID:   c.Param("id"),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
	})
	if err != nil {
		c.Error(err)
		return
	}
	respond(c, http.StatusOK, toOrderResponse(output.Order))
}

// UpdateItemQuantity changes the quantity of a line
// @Summary Update an order item quantity
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param productId path string true "Product ID"
// @Param request body UpdateQuantityRequest true "Quantity"
// @Success 200 {object} SuccessResponse{data=OrderResponse}
// @Router /api/v1/orders/{id}/items/{productId} [patch]
func (h *HTTPHandler) UpdateItemQuantity(c *gin.Context) {
	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.fulfillment.UpdateItemQuantity(c.Request.Context(), c.Param("id"), c.Param("productId"), req.Quantity)
	if err != nil {
		c.Error(err)
		return
	}
	respond(c, http.StatusOK, toOrderResponse(output.Order))
}

// RemoveItem removes a line from a pending order
// @Summary Remove an order item
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Param productId path string true "Product ID"
// @Success 200 {object} SuccessResponse{data=OrderResponse}
// @Failure 422 {object} ErrorResponse "Order would become empty"
// @Router /api/v1/orders/{id}/items/{productId} [delete]
func (h *HTTPHandler) RemoveItem(c *gin.Context) {
	output, err := h.fulfillment.RemoveItem(c.Request.Context(), c.Param("id"), c.Param("productId"))
	if err != nil {
		c.Error(err)
		return
	}
	respond(c, http.StatusOK, toOrderResponse(output.Order))
}

// ListCustomerOrders pages through a customer's orders
// @Summary List a customer's orders
// @Tags orders
// @Produce json
// @Param id path string true "Customer ID"
// @Param status query string false "Status filter"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} SuccessResponse{data=OrderListResponse}
// @Router /api/v1/customers/{id}/orders [get]
func (h *HTTPHandler) ListCustomerOrders(c *gin.Context) {
	page, limit, status, err := orderPageQuery(c)
	if err != nil {
		c.Error(err)
		return
	}

	output, err := h.fulfillment.ListCustomerOrders(c.Request.Context(), application.ListCustomerOrdersInput{
		CustomerID: c.Param("id"),
		Status:     status,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		c.Error(err)
		return
	}

	respond(c, http.StatusOK, toOrderListResponse(output.Orders, output.Page, output.Limit, output.Total, output.TotalPages))
}

// ListRestaurantOrders pages through a restaurant's orders with order stats
// @Summary List a restaurant's orders
// @Description Newest-first orders of a restaurant, with 30-day delivered revenue, average order value and pending/completed counts
// @Tags orders
// @Produce json
// @Param id path string true "Restaurant ID"
// @Param status query string false "Status filter"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} SuccessResponse{data=RestaurantOrderListResponse}
// @Failure 404 {object} ErrorResponse "Restaurant not found"
// @Failure 422 {object} ErrorResponse "Orders in more than one currency"
// @Router /api/v1/restaurants/{id}/orders [get]
func (h *HTTPHandler) ListRestaurantOrders(c *gin.Context) {
	page, limit, status, err := orderPageQuery(c)
	if err != nil {
		c.Error(err)
		return
	}

	output, err := h.fulfillment.ListRestaurantOrders(c.Request.Context(), application.ListRestaurantOrdersInput{
		RestaurantID: c.Param("id"),
		Status:       status,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		c.Error(err)
		return
	}

	respond(c, http.StatusOK, RestaurantOrderListResponse{
		OrderListResponse: toOrderListResponse(output.Orders, output.Page, output.Limit, output.Total, output.TotalPages),
		Stats:             toRestaurantOrderStatsResponse(output.Stats),
	})
}

// orderPageQuery reads page, limit and an optional status filter
func orderPageQuery(c *gin.Context) (int, int, *domain.OrderStatus, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return 0, 0, nil, err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return 0, 0, nil, err
	}
	raw := c.Query("status")
	if raw == "" {
		return page, limit, nil, nil
	}
	status, err := domain.ParseOrderStatus(strings.ToUpper(raw))
	if err != nil {
		return 0, 0, nil, err
	}
	return page, limit, &status, nil
}

// =============================================================================
// Reviews and ratings
// =============================================================================

// SubmitReview reviews a delivered order
// @Summary Review a delivered order
// @Tags reviews
// @Accept json
// @Produce json
// @Param request body SubmitReviewRequest true "Review"
// @Success 201 {object} SuccessResponse{data=SubmitReviewResponse}
// @Failure 403 {object} ErrorResponse "Reviewer does not own the order"
// @Failure 422 {object} ErrorResponse "Order not delivered or already reviewed"
// @Router /api/v1/reviews [post]
func (h *HTTPHandler) SubmitReview(c *gin.Context) {
	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	output, err := h.ratings.SubmitReview(c.Request.Context(), application.SubmitReviewInput{
		CustomerID: req.CustomerID,
		OrderID:    req.OrderID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Images:     req.Images,
	})
	if err != nil {
		c.Error(err)
		return
	}

	respond(c, http.StatusCreated, SubmitReviewResponse{
		Review:     toReviewResponse(output.Review),
		Restaurant: toRatingResponse(output.Restaurant),
	})
}

// DeleteReview deletes a review and recomputes the restaurant rating
// @Summary Delete a review
// @Tags reviews
// @Produce json
// @Param id path string true "Review ID"
// @Param customer_id query string true "Reviewer"
// @Success 200 {object} SuccessResponse{data=RatingResponse}
// @Failure 403 {object} ErrorResponse "Reviewer does not own the review"
// @Failure 404 {object} ErrorResponse "Review not found"
// @Router /api/v1/reviews/{id} [delete]
func (h *HTTPHandler) DeleteReview(c *gin.Context) {
	customerID := c.Query("customer_id")
	if customerID == "" {
		c.Error(errors.NewValidation("customer_id is required", nil))
		return
	}

	output, err := h.ratings.DeleteReview(c.Request.Context(), application.DeleteReviewInput{
		ReviewID:   c.Param("id"),
		CustomerID: customerID,
	})
	if err != nil {
		c.Error(err)
		return
	}
	respond(c, http.StatusOK, toRatingResponse(output))
}

// GetRatingStats returns the rating breakdown of a restaurant
// @Summary Restaurant rating statistics
// @Tags restaurants
// @Produce json
// @Param id path string true "Restaurant ID"
// @Success 200 {object} SuccessResponse{data=RatingStatsResponse}
// @Failure 404 {object} ErrorResponse "Restaurant not found"
// @Router /api/v1/restaurants/{id}/ratings [get]
func (h *HTTPHandler) GetRatingStats(c *gin.Context) {
	stats, err := h.ratings.RestaurantRatingStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	distribution := make(map[string]int, len(stats.Distribution))
	for star, n := range stats.Distribution {
		distribution[strconv.Itoa(star)] = n
	}
	respond(c, http.StatusOK, RatingStatsResponse{
		RestaurantID: stats.RestaurantID,
		Average:      stats.Average,
		TotalReviews: stats.TotalReviews,
		Distribution: distribution,
	})
}

// =============================================================================
// Restaurants and products
// =============================================================================

// FindNearbyRestaurants searches restaurants around a point
// @Summary Find nearby restaurants
// @Tags restaurants
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param radius_km query number false "Radius in km"
// @Param categories query string false "Comma separated categories"
// @Param min_rating query number false "Minimum rating"
// @Param sort query string false "distance, rating or name"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} SuccessResponse{data=NearbyResponse}
// @Failure 400 {object} ErrorResponse "Validation error"
// @Router /api/v1/restaurants/nearby [get]
func (h *HTTPHandler) FindNearbyRestaurants(c *gin.Context) {
	lat, err := queryFloat(c, "lat", true)
	if err != nil {
		c.Error(err)
		return
	}
	lng, err := queryFloat(c, "lng", true)
	if err != nil {
		c.Error(err)
		return
	}
	center, err := domain.NewGeoPoint(lat, lng)
	if err != nil {
		c.Error(err)
		return
	}

	radius, err := queryFloat(c, "radius_km", false)
	if err != nil {
		c.Error(err)
		return
	}
	if _, ok := c.GetQuery("radius_km"); !ok {
		radius = h.discovery.DefaultRadiusKm()
	}
	minRating, err := queryFloat(c, "min_rating", false)
	if err != nil {
		c.Error(err)
		return
	}
	page, err := queryInt(c, "page")
	if err != nil {
		c.Error(err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.Error(err)
		return
	}

	var categories []string
	if raw := c.Query("categories"); raw != "" {
		categories = strings.Split(raw, ",")
	}

	result, err := h.discovery.FindNearbyRestaurants(c.Request.Context(), application.NearbyQuery{
		Center:     center,
		RadiusKm:   radius,
		Categories: categories,
		MinRating:  minRating,
		SortBy:     application.SortKey(c.Query("sort")),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		c.Error(err)
		return
	}

	hits := make([]NearbyRestaurantResponse, len(result.Results))
	for i, r := range result.Results {
		hits[i] = NearbyRestaurantResponse{
			RestaurantResponse: toRestaurantResponse(r.Restaurant),
			DistanceKm:         r.DistanceKm,
		}
	}
	respond(c, http.StatusOK, NearbyResponse{
		Restaurants: hits,
		Page:        result.Page,
		Limit:       result.Limit,
		Total:       result.Total,
		TotalPages:  result.TotalPages,
	})
}

// GetRestaurant retrieves a restaurant by ID
// @Summary Get a restaurant
// @Tags restaurants
// @Produce json
// @Param id path string true "Restaurant ID"
// @Success 200 {object} SuccessResponse{data=RestaurantResponse}
// @Failure 404 {object} ErrorResponse "Restaurant not found"
// @Router /api/v1/restaurants/{id} [get]
func (h *HTTPHandler) GetRestaurant(c *gin.Context) {
	restaurant, err := h.catalog.GetRestaurant(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	respond(c, http.StatusOK, toRestaurantResponse(restaurant))
}

// UpsertRestaurant creates or replaces a restaurant
// @Summary Create or update a restaurant
// @Tags restaurants
// @Accept json
// @Produce json
// @Param id path string false "Restaurant ID (PUT only)"
// @Param request body RestaurantRequest true "Restaurant"
// @Success 200 {object} SuccessResponse{data=RestaurantResponse}
// @Failure 400 {object} ErrorResponse "Validation error"
// @Router /api/v1/restaurants [post]
// @Router /api/v1/restaurants/{id} [put]
func (h *HTTPHandler) UpsertRestaurant(c *gin.Context) {
	var req RestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	restaurant, err := h.catalog.UpsertRestaurant(c.Request.Context(), application.UpsertRestaurantInput{
		ID:          c.Param("id"),
		MerchantID:  req.MerchantID,
		Name:        req.Name,
		Description: req.Description,
		Categories:  req.Categories,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		Hours:       domain.Schedule(req.Hours),
		IsActive:    active,
	})
	if err != nil {
		c.Error(err)
		return
	}
	respond(c, upsertStatus(c), toRestaurantResponse(restaurant))
}

// UpsertProduct creates or replaces a product
// @Summary Create or update a product
// @Tags products
// @Accept json
// @Produce json
// @Param id path string false "Product ID (PUT only)"
// @Param request body ProductRequest true "Product"
// @Success 200 {object} SuccessResponse{data=ProductResponse}
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 404 {object} ErrorResponse "Restaurant not found"
// @Router /api/v1/products [post]
// @Router /api/v1/products/{id} [put]
func (h *HTTPHandler) UpsertProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidation("invalid request body", err.Error()))
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	product, err := h.catalog.UpsertProduct(c.Request.Context(), application.UpsertProductInput{
		ID:           c.Param("id"),
		RestaurantID: req.RestaurantID,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Price:        req.Price,
		Currency:     strings.ToUpper(req.Currency),
		Available:    available,
	})
	if err != nil {
		c.Error(err)
		return
	}
	respond(c, upsertStatus(c), toProductResponse(product))
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:    data,
		TraceID: c.GetString(middleware.TraceIDKey),
	})
}

// upsertStatus is 201 for POST and 200 for PUT
func upsertStatus(c *gin.Context) int {
	if c.Request.Method == http.MethodPost {
		return http.StatusCreated
	}
	return http.StatusOK
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidation("invalid "+name, map[string]interface{}{name: raw})
	}
	return v, nil
}

func queryFloat(c *gin.Context, name string, required bool) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		if required {
			return 0, errors.NewValidation(name+" is required", nil)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.NewValidation("invalid "+name, map[string]interface{}{name: raw})
	}
	return v, nil
}
