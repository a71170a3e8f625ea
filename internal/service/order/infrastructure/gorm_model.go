package infrastructure

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"shopcart/internal/service/order/domain"
)

// OrderModel maps the orders table.
type OrderModel struct {
	ID             string          `gorm:"primaryKey;size:64"`
	UserID         int64
	State          string          `gorm:"size:16;index"`
	TransportType  string          `gorm:"size:32"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2)"`
	ShipmentRef    sql.NullString  `gorm:"size:64"`
	ReservationRef sql.NullString  `gorm:"size:64"`

	Address AddressModel    `gorm:"foreignKey:OrderID"`
	Items   []LineItemModel `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OrderModel) TableName() string { return "orders" }

// LineItemModel maps the order_items table. Position preserves the
// insertion order of the lines; unit price is the snapshot taken at
// order creation.
type LineItemModel struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   string          `gorm:"size:64;index"`
	Position  int
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2)"`
}

func (LineItemModel) TableName() string { return "order_items" }

// AddressModel maps the shipping_addresses table.
type AddressModel struct {
	ID           uint   `gorm:"primaryKey"`
	OrderID      string `gorm:"size:64;uniqueIndex"`
	ReceiverName string `gorm:"size:128"`
	Street       string `gorm:"size:128"`
	City         string `gorm:"size:64"`
	Province     string `gorm:"size:64"`
	PostalCode   string `gorm:"size:16"`
	Country      string `gorm:"size:64"`
	Phone        string `gorm:"size:32"`
}

func (AddressModel) TableName() string { return "shipping_addresses" }

func toDomainOrder(m *OrderModel) *domain.Order {
	items := make([]domain.LineItem, 0, len(m.Items))
	for _, it := range m.Items {
		items = append(items, domain.LineItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return &domain.Order{
		ID:             m.ID,
		UserID:         m.UserID,
		State:          domain.State(m.State),
		TransportType:  m.TransportType,
		Total:          m.Total,
		ShipmentRef:    m.ShipmentRef.String,
		ReservationRef: m.ReservationRef.String,
		Address: domain.ShippingAddress{
			ReceiverName: m.Address.ReceiverName,
			Street:       m.Address.Street,
			City:         m.Address.City,
			Province:     m.Address.Province,
			PostalCode:   m.Address.PostalCode,
			Country:      m.Address.Country,
			Phone:        m.Address.Phone,
		},
		Items:     items,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
