package events

import (
	"strings"
	"time"
)

// ExchangeMarketplace carries every event the marketplace emits or consumes
const ExchangeMarketplace = "marketplace.events"

// Routing keys
const (
	RoutingKeyNotificationPrefix = "notification."
	RoutingKeyPaymentResult      = "payment.result"
)

// NotificationRoutingKey returns the routing key for a template, e.g.
// "notification.order_confirmed"
func NotificationRoutingKey(template string) string {
	return RoutingKeyNotificationPrefix + strings.ToLower(template)
}

// NotificationEvent asks the notification workers to render and deliver a
// template to one recipient
type NotificationEvent struct {
	Version   string              `json:"version"`
	EventType string              `json:"event_type"`
	Timestamp time.Time           `json:"timestamp"`
	TraceID   string              `json:"trace_id"`
	Payload   NotificationPayload `json:"payload"`
}

// NotificationPayload contains the template inputs
type NotificationPayload struct {
	RecipientID  string                 `json:"recipient_id"`
	Template     string                 `json:"template"`
	OrderID      string                 `json:"order_id,omitempty"`
	RestaurantID string                 `json:"restaurant_id,omitempty"`
	CustomerID   string                 `json:"customer_id,omitempty"`
	Status       string                 `json:"status,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

// NewNotificationEvent creates a new NotificationEvent
func NewNotificationEvent(payload NotificationPayload, traceID string) *NotificationEvent {
	return &NotificationEvent{
		Version:   "1.0",
		EventType: "notification.requested",
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
		Payload:   payload,
	}
}

// PaymentResultEvent is published by the payment provider integration when a
// charge settles or fails
type PaymentResultEvent struct {
	Version   string               `json:"version"`
	EventType string               `json:"event_type"`
	Timestamp time.Time            `json:"timestamp"`
	TraceID   string               `json:"trace_id"`
	Payload   PaymentResultPayload `json:"payload"`
}

// PaymentResultPayload contains the settled payment state
type PaymentResultPayload struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	ProviderRef string `json:"provider_ref,omitempty"`
}

// NewPaymentResultEvent creates a new PaymentResultEvent
func NewPaymentResultEvent(orderID, status, providerRef, traceID string) *PaymentResultEvent {
	return &PaymentResultEvent{
		Version:   "1.0",
		EventType: RoutingKeyPaymentResult,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
		Payload: PaymentResultPayload{
			OrderID:     orderID,
			Status:      status,
			ProviderRef: providerRef,
		},
	}
}
