package domain

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Validate runs struct-tag validation on any domain entity and
// returns a single wrapped error describing every failing field.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return err
	}
	return nil
}
