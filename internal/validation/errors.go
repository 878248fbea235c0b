package validation

import (
	"errors"

	validatorv10 "github.com/go-playground/validator/v10"
)

// FieldErrors flattens a validation error into namespace -> message.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.Namespace()] = fe.Error() // simple message; can be improved
		}
	} else if err != nil {
		out["error"] = err.Error()
	}
	return out
}
