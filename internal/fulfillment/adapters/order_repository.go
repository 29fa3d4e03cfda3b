package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/ports"
	apperrors "go-marketplace/pkg/errors"
)

// AddressColumns is the embedded delivery address of an order row
type AddressColumns struct {
	Street  string `gorm:"size:255;not null"`
	City    string `gorm:"size:100;not null"`
	State   string `gorm:"size:100"`
	Country string `gorm:"size:100;not null"`
	ZipCode string `gorm:"size:20"`
	Details string `gorm:"size:255"`
}

// OrderModel is the GORM model for orders (persistence layer)
type OrderModel struct {
	ID                    string           `gorm:"primaryKey;size:36"`
	CustomerID            string           `gorm:"index:idx_orders_customer_created,priority:1;size:36;not null"`
	RestaurantID          string           `gorm:"index:idx_orders_restaurant_created,priority:1;size:36;not null"`
	Items                 []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalAmount           decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	Currency              string           `gorm:"size:3;not null"`
	Delivery              AddressColumns   `gorm:"embedded;embeddedPrefix:delivery_"`
	Status                string           `gorm:"size:20;not null;index"`
	PaymentMethod         string           `gorm:"size:50;not null"`
	PaymentStatus         string           `gorm:"size:20;not null"`
	EstimatedDeliveryTime *time.Time
	ActualDeliveryTime    *time.Time
	Notes                 string    `gorm:"size:1000"`
	Version               int64     `gorm:"not null"`
	CreatedAt             time.Time `gorm:"index:idx_orders_customer_created,priority:2;index:idx_orders_restaurant_created,priority:2;not null"`
	UpdatedAt             time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is one line item row. Position keeps the cart order.
type OrderItemModel struct {
	ID          uint            `gorm:"primaryKey"`
	OrderID     string          `gorm:"index;size:36;not null"`
	Position    int             `gorm:"not null"`
	ProductID   string          `gorm:"size:36;not null"`
	ProductName string          `gorm:"size:255"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency    string          `gorm:"size:3;not null"`
	Quantity    int             `gorm:"not null"`
	Notes       string          `gorm:"size:500"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// PostgresOrderRepository implements ports.OrderStore using PostgreSQL
type PostgresOrderRepository struct {
	db *gorm.DB
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository
func NewPostgresOrderRepository(db *gorm.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// Migrate runs auto-migration for the order models
func (r *PostgresOrderRepository) Migrate() error {
	return r.db.AutoMigrate(&OrderModel{}, &OrderItemModel{})
}

// Create inserts the order and its items
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := toOrderModel(order)

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return apperrors.NewConflict("order already exists").WithDetails(map[string]interface{}{"order_id": order.ID})
		}
		return apperrors.NewInternal("failed to create order", result.Error)
	}
	return nil
}

// FindByID retrieves an order with its items
func (r *PostgresOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel

	result := r.db.WithContext(ctx).Preload("Items", byPosition).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternal("failed to get order", result.Error)
	}

	return toOrderDomain(&model)
}

// CompareAndSwap rewrites the order row and its items if the stored version
// still equals expectedVersion
func (r *PostgresOrderRepository) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutated domain.Order) (*domain.Order, error) {
	mutated.ID = id
	mutated.Version = expectedVersion + 1
	model := toOrderModel(&mutated)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&OrderModel{}).
			Where("id = ? AND version = ?", id, expectedVersion).
			Updates(orderColumns(model))
		if result.Error != nil {
			return apperrors.NewInternal("failed to update order", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return apperrors.NewInternal("failed to check order", err)
			}
			if count == 0 {
				return domain.NewOrderNotFound(id)
			}
			return domain.ErrVersionConflict.WithDetails(map[string]interface{}{
				"order_id":         id,
				"expected_version": expectedVersion,
			})
		}

		if err := tx.Where("order_id = ?", id).Delete(&OrderItemModel{}).Error; err != nil {
			return apperrors.NewInternal("failed to replace order items", err)
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return apperrors.NewInternal("failed to replace order items", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &mutated, nil
}

// ListByCustomer returns a newest-first page of a customer's orders
func (r *PostgresOrderRepository) ListByCustomer(ctx context.Context, customerID string, status *domain.OrderStatus, offset, limit int) (*ports.OrderPage, error) {
	return r.list(ctx, "customer_id = ?", customerID, status, offset, limit)
}

// ListByRestaurant returns a newest-first page of a restaurant's orders
func (r *PostgresOrderRepository) ListByRestaurant(ctx context.Context, restaurantID string, status *domain.OrderStatus, offset, limit int) (*ports.OrderPage, error) {
	return r.list(ctx, "restaurant_id = ?", restaurantID, status, offset, limit)
}

// DeliveredSince returns the restaurant's delivered orders created at or after since
func (r *PostgresOrderRepository) DeliveredSince(ctx context.Context, restaurantID string, since time.Time) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND status = ? AND created_at >= ?", restaurantID, string(domain.OrderStatusDelivered), since).
		Preload("Items", byPosition).
		Order("created_at DESC, id DESC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.NewInternal("failed to list delivered orders", err)
	}
	return toOrderDomains(models)
}

func (r *PostgresOrderRepository) list(ctx context.Context, owner, ownerID string, status *domain.OrderStatus, offset, limit int) (*ports.OrderPage, error) {
	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&OrderModel{}).Where(owner, ownerID)
		if status != nil {
			q = q.Where("status = ?", string(*status))
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, apperrors.NewInternal("failed to count orders", err)
	}

	var models []OrderModel
	err := scope().
		Preload("Items", byPosition).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.NewInternal("failed to list orders", err)
	}

	orders, err := toOrderDomains(models)
	if err != nil {
		return nil, err
	}
	return &ports.OrderPage{Orders: orders, Total: total}, nil
}

func toOrderDomains(models []OrderModel) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		order, err := toOrderDomain(&models[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// orderColumns lists every mutable column so zero values are written too
func orderColumns(m *OrderModel) map[string]interface{} {
	return map[string]interface{}{
		"total_amount":            m.TotalAmount,
		"currency":                m.Currency,
		"delivery_street":         m.Delivery.Street,
		"delivery_city":           m.Delivery.City,
		"delivery_state":          m.Delivery.State,
		"delivery_country":        m.Delivery.Country,
		"delivery_zip_code":       m.Delivery.ZipCode,
		"delivery_details":        m.Delivery.Details,
		"status":                  m.Status,
		"payment_method":          m.PaymentMethod,
		"payment_status":          m.PaymentStatus,
		"estimated_delivery_time": m.EstimatedDeliveryTime,
		"actual_delivery_time":    m.ActualDeliveryTime,
		"notes":                   m.Notes,
		"version":                 m.Version,
		"updated_at":              m.UpdatedAt,
	}
}

// toOrderModel converts a domain order to GORM models
func toOrderModel(order *domain.Order) *OrderModel {
	items := make([]OrderItemModel, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemModel{
			OrderID:     order.ID,
			Position:    i,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice.Amount(),
			Currency:    string(item.UnitPrice.Currency()),
			Quantity:    item.Quantity,
			Notes:       item.Notes,
		}
	}

	return &OrderModel{
		ID:           order.ID,
		CustomerID:   order.CustomerID,
		RestaurantID: order.RestaurantID,
		Items:        items,
		TotalAmount:  order.TotalPrice.Amount(),
		Currency:     string(order.TotalPrice.Currency()),
		Delivery: AddressColumns{
			Street:  order.DeliveryAddress.Street,
			City:    order.DeliveryAddress.City,
			State:   order.DeliveryAddress.State,
			Country: order.DeliveryAddress.Country,
			ZipCode: order.DeliveryAddress.ZipCode,
			Details: order.DeliveryAddress.Details,
		},
		Status:                string(order.Status),
		PaymentMethod:         order.PaymentMethod,
		PaymentStatus:         string(order.PaymentStatus),
		EstimatedDeliveryTime: order.EstimatedDeliveryTime,
		ActualDeliveryTime:    order.ActualDeliveryTime,
		Notes:                 order.Notes,
		Version:               order.Version,
		CreatedAt:             order.CreatedAt,
		UpdatedAt:             order.UpdatedAt,
	}
}

// toOrderDomain converts GORM models back to a domain order
func toOrderDomain(m *OrderModel) (*domain.Order, error) {
	items := make([]domain.OrderLineItem, len(m.Items))
	for i, im := range m.Items {
		price, err := domain.NewMoney(im.UnitPrice, domain.Currency(im.Currency))
		if err != nil {
			return nil, apperrors.Wrap(err, "stored order item has an invalid price")
		}
		items[i] = domain.OrderLineItem{
			ProductID:   im.ProductID,
			ProductName: im.ProductName,
			UnitPrice:   price,
			Quantity:    im.Quantity,
			Notes:       im.Notes,
		}
	}

	total, err := domain.NewMoney(m.TotalAmount, domain.Currency(m.Currency))
	if err != nil {
		return nil, apperrors.Wrap(err, "stored order has an invalid total")
	}

	return &domain.Order{
		ID:           m.ID,
		CustomerID:   m.CustomerID,
		RestaurantID: m.RestaurantID,
		Items:        items,
		TotalPrice:   total,
		DeliveryAddress: domain.Address{
			Street:  m.Delivery.Street,
			City:    m.Delivery.City,
			State:   m.Delivery.State,
			Country: m.Delivery.Country,
			ZipCode: m.Delivery.ZipCode,
			Details: m.Delivery.Details,
		},
		Status:                domain.OrderStatus(m.Status),
		PaymentMethod:         m.PaymentMethod,
		PaymentStatus:         domain.PaymentStatus(m.PaymentStatus),
		EstimatedDeliveryTime: m.EstimatedDeliveryTime,
		ActualDeliveryTime:    m.ActualDeliveryTime,
		Notes:                 m.Notes,
		Version:               m.Version,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}, nil
}
