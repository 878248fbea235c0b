package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-order-gateway/internal/orders"
)

// New returns a validator that reports fields by their JSON names.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	return v
}

// ValidateCreate checks a create body. OrderId is ignored on create.
func ValidateCreate(v *validatorv10.Validate, req *orders.OrderRequest) error {
	return v.Struct(req)
}

// ValidateUpdate checks an update body, which must name the order it replaces.
func ValidateUpdate(v *validatorv10.Validate, req *orders.OrderRequest) error {
	if err := v.Struct(req); err != nil {
		return err
	}
	return ValidateKey(v, req.UserID, req.OrderID)
}

// ValidateKey checks that both halves of an order key are present.
func ValidateKey(v *validatorv10.Validate, userID, orderID string) error {
	return v.Struct(OrderKey{UserID: userID, OrderID: orderID})
}
