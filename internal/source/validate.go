package source

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks an ingested value against its struct-tag rules.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: invalid payload: %w", ErrFetchFailure, err)
	}
	return nil
}
