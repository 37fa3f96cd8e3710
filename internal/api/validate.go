package api

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"caseintake/internal/services"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared request validator.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("ident", validateIdent)
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// ident accepts printable identifiers without whitespace.
func validateIdent(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, r := range value {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// ValidationFields maps JSON field names to the failed rule.
func ValidationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = formatValidationError(e)
	}
	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is empty", lowerFirst(e.Param()))
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "ident":
		return "must not contain whitespace"
	default:
		return "is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// validationError wraps validator output as a services.ErrValidation.
type validationError struct {
	err    error
	fields map[string]string
}

func (v *validationError) Error() string {
	return v.err.Error()
}

func (v *validationError) Unwrap() error {
	return v.err
}

// Fields exposes per-field messages to the HTTP layer.
func (v *validationError) Fields() map[string]string {
	return v.fields
}

func checkRequest(operation string, req any) error {
	err := Validator().Struct(req)
	if err == nil {
		return nil
	}
	fields := ValidationFields(err)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+fields[k])
	}
	return &validationError{
		err:    services.Wrap(services.ErrValidation, "api", operation, strings.Join(parts, "; "), nil),
		fields: fields,
	}
}

// FieldErrors returns per-field messages carried by a validation error, if any.
func FieldErrors(err error) map[string]string {
	var verr *validationError
	if errors.As(err, &verr) {
		return verr.Fields()
	}
	return nil
}
