package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"kasturi-ledger/pkg/apperror"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

// Message renders the failure for API clients.
func (e *ErrorResponse) Message() string {
	switch e.Tag {
	case "required", "uuid_required":
		return fmt.Sprintf("%s is required", e.FailedField)
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", e.FailedField, e.Value)
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", e.FailedField, e.Value)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", e.FailedField, e.Value)
	case "email":
		return fmt.Sprintf("%s must be a valid email", e.FailedField)
	default:
		return fmt.Sprintf("%s failed on '%s'", e.FailedField, e.Tag)
	}
}

var validate = validator.New()

func init() {
	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{FailedField: "request", Tag: "invalid"}}
		}
		for _, err := range validationErrors {
			var element ErrorResponse
			element.FailedField = err.Field()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}

// Check validates data and returns the first failure as a validation error.
func Check(data interface{}) error {
	if errs := ValidateStruct(data); len(errs) > 0 {
		return apperror.Validation("%s", errs[0].Message())
	}
	return nil
}
