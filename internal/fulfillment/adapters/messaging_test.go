package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/ports"
	apperrors "go-marketplace/pkg/errors"
	"go-marketplace/pkg/events"
	"go-marketplace/pkg/logger"
	"go-marketplace/pkg/rabbitmq"
)

type recordedPublish struct {
	routingKey string
	message    interface{}
}

type fakePublisher struct {
	published []recordedPublish
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	p.published = append(p.published, recordedPublish{routingKey: routingKey, message: message})
	return p.err
}

func TestRabbitMQNotifier_Notify(t *testing.T) {
	pub := &fakePublisher{}
	notifier := NewRabbitMQNotifier(pub, logger.Nop())
	ctx := logger.WithTraceIDContext(context.Background(), "trace-1")

	err := notifier.Notify(ctx, "c1", ports.TemplateOrderConfirmed, ports.Notification{
		OrderID: "o1", Status: "CONFIRMED", Data: map[string]interface{}{"total": "25.50 USD"},
	})
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	assert.Equal(t, "notification.order_confirmed", pub.published[0].routingKey)
	event, ok := pub.published[0].message.(*events.NotificationEvent)
	require.True(t, ok)
	assert.Equal(t, "trace-1", event.TraceID)
	assert.Equal(t, "c1", event.Payload.RecipientID)
	assert.Equal(t, "ORDER_CONFIRMED", event.Payload.Template)
	assert.Equal(t, "o1", event.Payload.OrderID)
}

func TestRabbitMQNotifier_PropagatesPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	notifier := NewRabbitMQNotifier(pub, logger.Nop())

	err := notifier.Notify(context.Background(), "r1", ports.TemplateNewOrder, ports.Notification{})
	assert.Error(t, err)
}

func paymentMessage(t *testing.T, orderID, status string) []byte {
	t.Helper()
	body, err := json.Marshal(events.NewPaymentResultEvent(orderID, status, "ch_1", "trace"))
	require.NoError(t, err)
	return body
}

func TestPaymentStatusConsumer_HandleMessage(t *testing.T) {
	type call struct {
		orderID string
		status  domain.PaymentStatus
	}

	tests := []struct {
		name          string
		body          func(t *testing.T) []byte
		recordErr     error
		wantCall      bool
		wantErr       bool
		wantPermanent bool
	}{
		{
			name:     "applies paid",
			body:     func(t *testing.T) []byte { return paymentMessage(t, "o1", "PAID") },
			wantCall: true,
		},
		{
			name:          "malformed json is dead-lettered",
			body:          func(t *testing.T) []byte { return []byte("{") },
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name:          "unknown status is dead-lettered",
			body:          func(t *testing.T) []byte { return paymentMessage(t, "o1", "REFUNDED") },
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name:          "missing order id is dead-lettered",
			body:          func(t *testing.T) []byte { return paymentMessage(t, "", "PAID") },
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name:          "final payment state is dead-lettered",
			body:          func(t *testing.T) []byte { return paymentMessage(t, "o1", "FAILED") },
			recordErr:     domain.NewPaymentStatusFinal(domain.PaymentStatusPaid, domain.PaymentStatusFailed),
			wantCall:      true,
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name:      "store outage is requeued",
			body:      func(t *testing.T) []byte { return paymentMessage(t, "o1", "PAID") },
			recordErr: apperrors.NewInternal("db down", errors.New("dial tcp")),
			wantCall:  true,
			wantErr:   true,
		},
		{
			name:      "exhausted retries are requeued",
			body:      func(t *testing.T) []byte { return paymentMessage(t, "o1", "PAID") },
			recordErr: domain.ErrRetriesExhausted,
			wantCall:  true,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []call
			c := &PaymentStatusConsumer{
				record: func(ctx context.Context, orderID string, status domain.PaymentStatus) error {
					calls = append(calls, call{orderID, status})
					return tt.recordErr
				},
				log: logger.Nop(),
			}

			err := c.handleMessage(context.Background(), tt.body(t))

			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
			assert.Equal(t, tt.wantPermanent, rabbitmq.IsPermanent(err))
			assert.Equal(t, tt.wantCall, len(calls) == 1)
		})
	}
}
