package validation

// OrderKey identifies a stored order.
type OrderKey struct {
	UserID  string `json:"UserId" validate:"required"`
	OrderID string `json:"OrderId" validate:"required"`
}
