package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/volview-xnat/volviewd/internal/domain/auth"
)

// RegisterCustomValidators registers the volviewd-specific validation rules.
// Must be called before validating AppConfig.
func RegisterCustomValidators(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"context_path": validateContextPath,
		"key_hash":     validateKeyHash,
		"duration":     validateDuration,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

// validateContextPath accepts "" or a path starting with "/" that does not
// end with "/" (except "/" itself).
func validateContextPath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" || p == "/" {
		return true
	}
	return strings.HasPrefix(p, "/") && !strings.HasSuffix(p, "/") && !strings.ContainsAny(p, " ?#")
}

// validateKeyHash accepts "sha256:<64 hex>" or an Argon2id PHC string.
func validateKeyHash(fl validator.FieldLevel) bool {
	h := fl.Field().String()
	switch {
	case strings.HasPrefix(h, "sha256:"):
		return auth.DetectHashType(strings.TrimPrefix(h, "sha256:")) == auth.HashSHA256
	case strings.HasPrefix(h, "$argon2id$"):
		return true
	default:
		return false
	}
}

func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// Validate validates the AppConfig using struct tags and custom cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *AppConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateIdentityReferences(); err != nil {
		return err
	}
	if err := c.validateUniqueIdentities(); err != nil {
		return err
	}
	if err := c.validateSessionBackend(); err != nil {
		return err
	}

	return nil
}

// validateIdentityReferences ensures all API key identity_id values reference valid identities.
func (c *AppConfig) validateIdentityReferences() error {
	knownIdentities := make(map[string]struct{}, len(c.Auth.Identities))
	for _, identity := range c.Auth.Identities {
		knownIdentities[identity.ID] = struct{}{}
	}

	for i, apiKey := range c.Auth.APIKeys {
		if _, exists := knownIdentities[apiKey.IdentityID]; !exists {
			return fmt.Errorf("api_keys[%d]: references unknown identity_id: %s", i, apiKey.IdentityID)
		}
	}
	return nil
}

func (c *AppConfig) validateUniqueIdentities() error {
	seen := make(map[string]int, len(c.Auth.Identities))
	for i, identity := range c.Auth.Identities {
		if prev, dup := seen[identity.ID]; dup {
			return fmt.Errorf("identities[%d]: duplicate id %q (first at identities[%d])", i, identity.ID, prev)
		}
		seen[identity.ID] = i
	}
	return nil
}

func (c *AppConfig) validateSessionBackend() error {
	if c.Sessions.Backend == SessionBackendSQLite && strings.TrimSpace(c.Sessions.SQLitePath) == "" {
		return errors.New("sessions.sqlite_path is required when sessions.backend is sqlite")
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s items", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "context_path":
		return fmt.Sprintf("%s must be empty or start with '/' and not end with '/'", field)
	case "key_hash":
		return fmt.Sprintf("%s must be 'sha256:<hex>' or an argon2id hash", field)
	case "duration":
		return fmt.Sprintf("%s must be a positive duration such as '10s'", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
