package model

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
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldErrors maps a JSON field name to a user-facing message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for field, msg := range fe {
		parts = append(parts, field+": "+msg)
	}
	return "invalid event: " + strings.Join(parts, "; ")
}

// Normalize trims surrounding whitespace from every text field.
func (d UpsertEventDto) Normalize() UpsertEventDto {
	return UpsertEventDto{
		Title:       strings.TrimSpace(d.Title),
		Category:    strings.TrimSpace(d.Category),
		Location:    strings.TrimSpace(d.Location),
		Date:        strings.TrimSpace(d.Date),
		Description: strings.TrimSpace(d.Description),
	}
}

// Validate returns FieldErrors when the dto is not acceptable.
func (d UpsertEventDto) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate event: %w", err)
	}

	fe := make(FieldErrors, len(verrs))
	for _, ve := range verrs {
		fe[ve.Field()] = fieldMessage(ve)
	}
	return fe
}

func fieldMessage(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		if ve.Field() == "date" {
			return "Valid date & time is required"
		}
		return strings.ToUpper(ve.Field()[:1]) + ve.Field()[1:] + " is required"
	case "max":
		return "Max " + ve.Param() + " characters"
	case "datetime":
		return "Valid date & time is required"
	default:
		return "Invalid value"
	}
}
