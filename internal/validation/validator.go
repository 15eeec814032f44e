// Package validation wires go-playground/validator into gin's binding engine
// and translates validation failures into the API error format.
//
// Custom tags:
//   - username: letters, digits and @ . + - _ only
//   - slug: letters, digits, hyphens and underscores
//
// Field names in errors use the json (or yaml) tag of the struct field.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// singleton validator instance for non-HTTP callers
var (
	validate     *validator.Validate
	validateOnce sync.Once
	ginOnce      sync.Once
)

// Register installs the custom tags and the json field-name resolver on v
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(fieldName)
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
}

// RegisterWithGin installs the custom tags on gin's default validator.
// Safe to call more than once.
func RegisterWithGin() {
	ginOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := Register(v); err != nil {
				panic(fmt.Sprintf("failed to register validators: %v", err))
			}
		}
	})
}

// Validator returns the shared validator used outside of gin binding
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		if err := Register(validate); err != nil {
			panic(fmt.Sprintf("failed to register validators: %v", err))
		}
	})
	return validate
}

// ValidateStruct validates s with the shared validator
func ValidateStruct(s interface{}) error {
	return Validator().Struct(s)
}

func fieldName(fld reflect.StructField) string {
	for _, key := range []string{"json", "yaml", "form"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// ToAPIError converts a binding or validation error into the API error shape
func ToAPIError(err error) models.APIError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]interface{}, len(fieldErrs))
		messages := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msg := message(fe)
			fields[fieldPath(fe)] = msg
			messages = append(messages, fmt.Sprintf("%s: %s", fieldPath(fe), msg))
		}
		return models.NewAPIError(models.ErrValidationFailed, strings.Join(messages, "; "), map[string]interface{}{
			"fields": fields,
		})
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return models.NewAPIError(models.ErrBadRequest, "Malformed JSON body")
	case errors.As(err, &typeErr):
		return models.NewAPIError(models.ErrValidationFailed, fmt.Sprintf("%s: expected %s", typeErr.Field, typeErr.Type), map[string]interface{}{
			"fields": map[string]interface{}{typeErr.Field: "wrong type"},
		})
	}
	return models.NewAPIError(models.ErrBadRequest, "Invalid request body")
}

// fieldPath drops the top-level struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min", "gte":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "username":
		return "Enter a valid username: letters, digits and @/./+/-/_ only."
	case "slug":
		return "Enter a valid slug: letters, numbers, underscores or hyphens."
	case "hexcolor":
		return "Enter a valid HEX color."
	case "unique":
		return "Items must be unique."
	default:
		return fmt.Sprintf("Failed on the '%s' rule.", fe.Tag())
	}
}
