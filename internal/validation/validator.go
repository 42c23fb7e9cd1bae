package validation

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/Pinzun/simula-ameba/internal/models"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Row validates one source row using its struct tags. position is the file
// line or result index used in the message.
func Row(tag string, position int, v interface{}) error {
	if v == nil {
		return errors.New("row cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(tag, position, err)
	}
	return nil
}

// Rows validates a slice of rows and stops at the first failure.
func Rows(tag string, rows interface{}) error {
	rv := reflect.ValueOf(rows)
	if rv.Kind() != reflect.Slice {
		return fmt.Errorf("[%s] expected a slice of rows, got %s", tag, rv.Kind())
	}
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i)
		if item.Kind() != reflect.Ptr {
			item = item.Addr()
		}
		if err := Row(tag, i+1, item.Interface()); err != nil {
			return err
		}
	}
	return nil
}

func formatValidationError(tag string, position int, err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Report the first violation
	for _, e := range validationErrs {
		field := e.Field()
		value := fmt.Sprintf("%v", e.Value())

		var msg string
		switch e.Tag() {
		case "required":
			msg = "field is required"
		case "gte":
			msg = fmt.Sprintf("must be at least %s", e.Param())
		case "gtfield":
			msg = fmt.Sprintf("must be after %s", e.Param())
		default:
			msg = fmt.Sprintf("validation failed (%s)", e.Tag())
		}

		return &models.ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("[%s] row %d: %s", tag, position, msg),
		}
	}

	return err
}
