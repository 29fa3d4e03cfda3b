package adapters

import (
	"context"

	"go.uber.org/zap"

	"go-marketplace/internal/fulfillment/ports"
	"go-marketplace/pkg/events"
	"go-marketplace/pkg/logger"
)

// EventPublisher publishes a message under a routing key.
// *rabbitmq.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// RabbitMQNotifier implements ports.Notifier by publishing notification
// events for the delivery workers
type RabbitMQNotifier struct {
	publisher EventPublisher
	log       *logger.Logger
}

// NewRabbitMQNotifier creates a new RabbitMQ notifier
func NewRabbitMQNotifier(publisher EventPublisher, log *logger.Logger) *RabbitMQNotifier {
	return &RabbitMQNotifier{
		publisher: publisher,
		log:       log,
	}
}

// Notify publishes one notification event
func (n *RabbitMQNotifier) Notify(ctx context.Context, recipientID string, kind ports.TemplateKind, payload ports.Notification) error {
	event := events.NewNotificationEvent(events.NotificationPayload{
		RecipientID:  recipientID,
		Template:     string(kind),
		OrderID:      payload.OrderID,
		RestaurantID: payload.RestaurantID,
		CustomerID:   payload.CustomerID,
		Status:       payload.Status,
		Data:         payload.Data,
	}, logger.GetTraceID(ctx))

	return n.publisher.Publish(ctx, events.NotificationRoutingKey(string(kind)), event)
}

// LogNotifier implements ports.Notifier by logging. Used when no broker is
// configured.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs the notification
func (n *LogNotifier) Notify(ctx context.Context, recipientID string, kind ports.TemplateKind, payload ports.Notification) error {
	n.log.WithContext(ctx).Info("notification",
		zap.String("recipient_id", recipientID),
		zap.String("template", string(kind)),
		zap.String("order_id", payload.OrderID),
		zap.String("restaurant_id", payload.RestaurantID),
		zap.String("status", payload.Status),
	)
	return nil
}
