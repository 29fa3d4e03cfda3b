package domain

// OrderStatus represents the lifecycle position of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusPreparing  OrderStatus = "PREPARING"
	OrderStatusReady      OrderStatus = "READY"
	OrderStatusOnDelivery OrderStatus = "ON_DELIVERY"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// AllOrderStatuses lists every status in lifecycle order
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusOnDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:  {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:      {OrderStatusOnDelivery, OrderStatusCancelled},
	OrderStatusOnDelivery: {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ParseOrderStatus validates a status name
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := allowedTransitions[st]; !ok {
		return "", NewInvalidStatus(s)
	}
	return st, nil
}

// IsTerminal reports whether no further transition is permitted
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition reports whether from -> to is a legal edge.
// Delivered orders are never cancellable; the table agrees, but the rule is
// checked on its own as well.
func CanTransition(from, to OrderStatus) bool {
	if from == OrderStatusDelivered && to == OrderStatusCancelled {
		return false
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentStatus tracks the payment outcome reported by the payment provider
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// ParsePaymentStatus validates a payment status name
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return PaymentStatus(s), nil
	}
	return "", NewInvalidStatus(s)
}

// CanChangePayment reports whether a payment status change is accepted.
// PAID is final. FAILED may be retried into PAID or back to PENDING.
func CanChangePayment(from, to PaymentStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case PaymentStatusPending:
		return true
	case PaymentStatusFailed:
		return to == PaymentStatusPaid || to == PaymentStatusPending
	default:
		return false
	}
}
