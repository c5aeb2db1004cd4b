package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var setupOnce sync.Once

// SetupValidator configures the gin validator with the procurement tags:
//   - decimal_gte0: a decimal.Decimal that is zero or positive
//   - order_status: a purchase order status name, case-insensitive
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// Use JSON tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("decimal_gte0", validateDecimalGTE0)
		_ = v.RegisterValidation("order_status", validateOrderStatus)
	})
}

func validateDecimalGTE0(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return !d.IsNegative()
}

func validateOrderStatus(fl validator.FieldLevel) bool {
	_, err := purchasing.ParseStatus(fl.Field().String())
	return err == nil
}

// fieldCodes maps a rejected decimal field to the domain code the same
// check would raise further down
var fieldCodes = map[string]string{
	"unit_price":     shared.CodeInvalidPrice,
	"tax_rate":       shared.CodeInvalidTaxRate,
	"value":          shared.CodeInvalidDiscount,
	"discount_value": shared.CodeInvalidDiscount,
	"quantity":       shared.CodeInvalidQuantity,
}

// BindingErrorCode picks the error code for a failed ShouldBind call. Tag
// failures that mirror a domain rule reuse that rule's code; everything else
// (malformed JSON, missing fields) is VALIDATION_ERROR.
func BindingErrorCode(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return shared.CodeValidation
	}
	for _, e := range validationErrors {
		switch e.Tag() {
		case "order_status":
			return shared.CodeInvalidStatus
		case "decimal_gte0", "gte", "gt", "min":
			if code, ok := fieldCodes[e.Field()]; ok {
				return code
			}
		}
	}
	return shared.CodeValidation
}

// FormatValidationErrors formats binding errors into an error response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	} else {
		details = append(details, dto.ValidationDetail{
			Field:   "body",
			Message: err.Error(),
		})
	}

	return dto.NewValidationErrorResponse(
		BindingErrorCode(err),
		"Request validation failed",
		requestID,
		details,
	)
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "decimal_gte0":
		return "Must be a number greater than or equal to 0"
	case "order_status":
		return "Must be one of: PENDING PENDING_PAYMENT PARTIALLY_RECEIVED RECEIVED COMPLETED CANCELLED"
	default:
		return "Invalid value"
	}
}
