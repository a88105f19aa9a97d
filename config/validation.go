package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator with the custom rules
// used by configuration structs.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("authtype", validateAuthType)
	return &Validator{validate: v}
}

// Validate validates a struct
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

var defaultValidator = NewValidator()

// Validate normalizes the configuration, fills unset fields with
// production-safe defaults, and checks the result for invalid values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	applyClientDefaults(&cfg.Client)
	applyLogDefaults(&cfg.Log)

	return defaultValidator.Validate(cfg)
}

// applyClientDefaults fills zero-valued client fields so configurations
// built in code behave like loaded ones. MaxRetries is left alone: zero is
// a valid setting that disables retries.
func applyClientDefaults(cfg *ClientConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Auth.Type == "" {
		cfg.Auth.Type = AuthTypeNone
	}
	cfg.Auth.Type = strings.ToLower(cfg.Auth.Type)
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = 2 * time.Second
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = 2
	}
	if cfg.Trace.Header == "" {
		cfg.Trace.Header = "X-Request-ID"
	}
	if cfg.Payload.MaxBytes == 0 {
		cfg.Payload.MaxBytes = 1024
	}
}

func applyLogDefaults(cfg *LogConfig) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	cfg.Level = strings.ToLower(cfg.Level)
}

// validateAuthType accepts the supported authentication scheme names,
// case-insensitively.
func validateAuthType(fl validator.FieldLevel) bool {
	switch strings.ToLower(fl.Field().String()) {
	case AuthTypeNone, AuthTypeBearer, AuthTypeBasic, AuthTypeAPIKey:
		return true
	default:
		return false
	}
}

// ValidationError represents validation errors
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// FieldError represents a single field validation error
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s", e.Errors[0].Message)
	}
	return fmt.Sprintf("validation failed: %d errors", len(e.Errors))
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fieldErrors := make([]FieldError, len(errs))
	for i, err := range errs {
		fieldErrors[i] = FieldError{
			Field:   err.Field(),
			Message: getErrorMessage(err),
			Value:   fmt.Sprintf("%v", err.Value()),
		}
	}
	return &ValidationError{Errors: fieldErrors}
}

// getErrorMessage returns a human-readable error message for a validation error
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", err.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "authtype":
		return fmt.Sprintf("%s must be one of: %s, %s, %s, %s",
			err.Field(), AuthTypeNone, AuthTypeBearer, AuthTypeBasic, AuthTypeAPIKey)
	default:
		return fmt.Sprintf("%s is invalid", err.Field())
	}
}
