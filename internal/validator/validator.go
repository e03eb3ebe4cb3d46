package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

var (
	currencyRgx = regexp.MustCompile(`^[A-Z]{3}$`)
	seatIDRgx   = regexp.MustCompile(`^[A-Za-z][1-9][0-9]*$`)
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("seatid", validateSeatID)
	validator.RegisterValidation("outcome", validateOutcome)
	validator.RegisterValidation("currency", validateCurrency)

	return validator
}

// validateSeatID accepts the row-letter and column form, e.g. A1 or C12, with
// no sign or leading zeros. Whether the seat exists is decided against the
// show's layout later.
func validateSeatID(fl validator.FieldLevel) bool {
	return seatIDRgx.MatchString(fl.Field().String())
}

func validateOutcome(fl validator.FieldLevel) bool {
	_, err := domain.ParsePaymentOutcome(fl.Field().String())
	return err == nil
}

func validateCurrency(fl validator.FieldLevel) bool {
	return currencyRgx.MatchString(fl.Field().String())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", err.Param())
	case "unique":
		return "must not contain duplicates"
	case "seatid":
		return "must be a seat id such as A1 or C12"
	case "outcome":
		return "must be one of succeeded, failed, canceled, refunded"
	case "currency":
		return "must be a three letter ISO currency code"
	default:
		return "is invalid"
	}
}
