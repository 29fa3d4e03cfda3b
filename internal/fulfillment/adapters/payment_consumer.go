package adapters

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"go-marketplace/internal/fulfillment/domain"
	apperrors "go-marketplace/pkg/errors"
	"go-marketplace/pkg/events"
	"go-marketplace/pkg/logger"
	"go-marketplace/pkg/rabbitmq"
)

// PaymentRecorder applies a settled payment status to an order
type PaymentRecorder func(ctx context.Context, orderID string, status domain.PaymentStatus) error

// PaymentStatusConsumer consumes payment result events
type PaymentStatusConsumer struct {
	consumer *rabbitmq.Consumer
	record   PaymentRecorder
	log      *logger.Logger
}

// NewPaymentStatusConsumer declares the payment queue and binds it to the
// payment result routing key
func NewPaymentStatusConsumer(conn *rabbitmq.Connection, queue, exchange string, record PaymentRecorder, log *logger.Logger) (*PaymentStatusConsumer, error) {
	consumer, err := rabbitmq.NewConsumer(
		conn,
		queue,
		exchange,
		[]string{events.RoutingKeyPaymentResult},
		log,
	)
	if err != nil {
		return nil, err
	}

	return &PaymentStatusConsumer{
		consumer: consumer,
		record:   record,
		log:      log,
	}, nil
}

// Start starts consuming payment result events
func (c *PaymentStatusConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *PaymentStatusConsumer) handleMessage(ctx context.Context, body []byte) error {
	var event events.PaymentResultEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.log.WithContext(ctx).Error("failed to unmarshal PaymentResultEvent", zap.Error(err))
		return rabbitmq.Permanent(err)
	}

	status, err := domain.ParsePaymentStatus(event.Payload.Status)
	if err != nil {
		return rabbitmq.Permanent(err)
	}
	if event.Payload.OrderID == "" {
		return rabbitmq.Permanent(apperrors.NewValidation("payment result without order_id", nil))
	}

	err = c.record(ctx, event.Payload.OrderID, status)
	if err != nil {
		if retryable(err) {
			return err
		}
		c.log.WithContext(ctx).Warn("payment result rejected",
			zap.String("order_id", event.Payload.OrderID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return rabbitmq.Permanent(err)
	}

	c.log.WithContext(ctx).Info("payment status applied",
		zap.String("order_id", event.Payload.OrderID),
		zap.String("status", string(status)),
		zap.String("provider_ref", event.Payload.ProviderRef),
	)
	return nil
}

// retryable reports whether redelivery could succeed. Domain rejections
// (missing order, final payment state) never will.
func retryable(err error) bool {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return true
	}
	return appErr.Code == apperrors.CodeInternal || appErr.Code == apperrors.CodeConflict
}
