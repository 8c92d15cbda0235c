package apperr

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their json name.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// FromValidation converts validator.ValidationErrors into a 422 VALIDATION_ERROR with one
// detail entry per failing field. Other errors are returned as a generic validation error.
func FromValidation(err error) *Error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return &Error{Status: 422, Code: CodeValidation, Message: "invalid request", Err: err}
	}

	details := make(map[string]any, len(ve))
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		if _, seen := details[fe.Field()]; seen {
			continue
		}
		details[fe.Field()] = describe(fe)
		fields = append(fields, fe.Field())
	}
	sort.Strings(fields)

	msg := "invalid request"
	if len(fields) == 1 {
		msg = "invalid " + fields[0]
	}
	return &Error{Status: 422, Code: CodeValidation, Message: msg, Details: details}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "len":
		return fmt.Sprintf("must have exactly %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s characters", fe.Param())
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "numeric":
		return "must contain only digits"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
