package shared

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Validate is the process-wide validator used by request DTOs.
var Validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs struct validation and converts the first failure into a
// caller-facing ValidationError.
func ValidateStruct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return Validationf("field %s failed on %s", fe.Field(), fe.Tag())
	}
	return Validationf("%v", err)
}
