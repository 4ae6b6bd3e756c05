// Package validation checks request structs against their validate tags and
// turns failures into messages fit for a toast or a JSON error.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// Struct validates v. Field errors are joined into one message, with fields
// named by their form or json tag.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fe.Field()+" is required")
		case "numeric":
			messages = append(messages, fe.Field()+" must be a number")
		case "datetime":
			messages = append(messages, fe.Field()+" must be a date (YYYY-MM-DD)")
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}
