package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validatePayload checks payload against its validate tags before it is sent.
// Failures are validation errors with no status code.
func validatePayload(method, path string, payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &driven.APIError{Kind: driven.KindValidation, Method: method, Path: path, Err: err}
	}

	lines := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		lines = append(lines, fe.Field()+": failed "+rule)
	}
	return &driven.APIError{
		Kind:   driven.KindValidation,
		Detail: strings.Join(lines, "\n"),
		Method: method,
		Path:   path,
		Err:    err,
	}
}
