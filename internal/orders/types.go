package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the aggregate stored in the orders table, keyed by
// (user_id, order_id).
type Order struct {
	UserID            string          `json:"UserId"`
	OrderID           string          `json:"OrderId"`
	Address           *Address        `json:"Address,omitempty"`
	Items             []OrderItem     `json:"Items"`
	TotalAmount       decimal.Decimal `json:"TotalAmount"`
	DeliveryRating    int             `json:"DeliveryRating"`
	Status            string          `json:"Status,omitempty"`
	TrackingStatus    string          `json:"TrackingStatus,omitempty"`
	PaymentMethod     string          `json:"PaymentMethod,omitempty"`
	StoreID           string          `json:"StoreId,omitempty"`
	Notes             string          `json:"Notes,omitempty"`
	CreatedAt         *time.Time      `json:"CreatedAt,omitempty"`
	PaidAt            *time.Time      `json:"PaidAt,omitempty"`
	DeliveryStartedAt *time.Time      `json:"DeliveryStartedAt,omitempty"`
	DeliveredAt       *time.Time      `json:"DeliveredAt,omitempty"`
}

// Address is the delivery address of an order.
type Address struct {
	Line1     string       `json:"Line1,omitempty"`
	Line2     string       `json:"Line2,omitempty"`
	City      string       `json:"City,omitempty"`
	State     string       `json:"State,omitempty"`
	Country   string       `json:"Country,omitempty"`
	Type      string       `json:"Type,omitempty"`
	Reference string       `json:"Reference,omitempty"`
	Default   bool         `json:"Default"`
	Location  *GeoLocation `json:"Location,omitempty"`
}

// GeoLocation is a latitude/longitude pair.
type GeoLocation struct {
	Lat float64 `json:"Lat"`
	Lon float64 `json:"Lon"`
}

// OrderItem is a single line of an order.
type OrderItem struct {
	SkuID    string          `json:"SkuId" validate:"required"`
	Price    decimal.Decimal `json:"Price"`
	Quantity int             `json:"Quantity" validate:"gte=0"`
}

// OrderRequest is the inbound body for create, update and delete.
//
// StoreId is accepted but ignored: writes copy PaymentMethod into StoreId.
type OrderRequest struct {
	UserID            string          `json:"UserId" validate:"required"`
	OrderID           string          `json:"OrderId,omitempty"`
	Address           *Address        `json:"Address,omitempty"`
	Items             []OrderItem     `json:"Items,omitempty" validate:"dive"`
	TotalAmount       decimal.Decimal `json:"TotalAmount"`
	DeliveryRating    int             `json:"DeliveryRating"`
	Status            string          `json:"Status,omitempty"`
	TrackingStatus    string          `json:"TrackingStatus,omitempty"`
	PaymentMethod     string          `json:"PaymentMethod,omitempty"`
	StoreID           string          `json:"StoreId,omitempty"`
	Notes             string          `json:"Notes,omitempty"`
	CreatedAt         *time.Time      `json:"CreatedAt,omitempty"`
	PaidAt            *time.Time      `json:"PaidAt,omitempty"`
	DeliveryStartedAt *time.Time      `json:"DeliveryStartedAt,omitempty"`
	DeliveredAt       *time.Time      `json:"DeliveredAt,omitempty"`
}

// OrderRef is the payload returned by write operations.
type OrderRef struct {
	OrderID string `json:"OrderId"`
}

// OrderResponse is the outcome of an operation. Status is an HTTP status
// code; Data is nil unless the operation produced a payload.
type OrderResponse struct {
	Status  int
	Message string
	Data    any
}
