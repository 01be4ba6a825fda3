package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/softioc/softioc-go/pkg/engine"
)

// Validate checks struct tags, then the engine options.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	if _, err := engine.ParseConfig(cfg.Server.Options); err != nil {
		return fmt.Errorf("server.options: %w", err)
	}
	return nil
}

// formatValidationError reports the first failed field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
