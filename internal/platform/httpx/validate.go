package httpx

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// ValidateStruct runs validator tags on payload and folds failures into one validation error.
func ValidateStruct(v *validator.Validate, payload any) error {
	err := v.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.Validationf("%v", err)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		fields = append(fields, fieldErr.Field()+" "+fieldErr.Tag())
	}
	sort.Strings(fields)
	return shared.Validationf("%s", strings.Join(fields, ", "))
}
