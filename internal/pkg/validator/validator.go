package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Pesokrava/review_widget/internal/domain"
)

// Shared validator instance to avoid creating multiple instances
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report wire names (productId, not ProductID)
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// Get returns the shared validator instance
func Get() *validator.Validate {
	return validate
}

// Struct validates s and converts the first failure into a *domain.ValidationError
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	fe := fieldErrs[0]
	return &domain.ValidationError{Field: fe.Field(), Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "max":
		if fe.Field() == "rating" {
			return fmt.Sprintf("must be between %d and %d", domain.MinRating, domain.MaxRating)
		}
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
