package middleware

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CustomerNameTag validates that a name still has content once normalized
const CustomerNameTag = "customer_name"

var setupOnce sync.Once

// SetupValidator registers the JSON field naming, decimal amounts and the
// customer_name tag on gin's validator. Safe to call more than once.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		// Amounts compare as numbers so gt=0 and gte=0 work on decimal fields
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		_ = v.RegisterValidation(CustomerNameTag, validCustomerName)
	})
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func decimalValue(v reflect.Value) interface{} {
	d, ok := v.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return f
}

func validCustomerName(fl validator.FieldLevel) bool {
	return ledger.NormalizeCustomerName(fl.Field().String()) != ""
}

// FormatValidationErrors turns validator errors into the standard error body
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range errs {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 validation response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, getRequestIDFromContext(c)))
}

func getRequestIDFromContext(c *gin.Context) string {
	if id := c.GetString(RequestIDContextKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}

func getValidationMessage(e validator.FieldError) string {
	isText := e.Kind() == reflect.String
	switch e.Tag() {
	case "required":
		return "This field is required"
	case CustomerNameTag:
		return "Customer name must contain at least one visible character"
	case "e164":
		return "Invalid phone number, expected international format"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min":
		if isText {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if isText {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "gt":
		if e.Param() == "0" {
			return "Amount must be positive"
		}
		return "Must be greater than " + e.Param()
	case "gte":
		if e.Param() == "0" {
			return "Amount cannot be negative"
		}
		return "Must be greater than or equal to " + e.Param()
	case "dive":
		return "Invalid list entry"
	default:
		return "Invalid value"
	}
}
