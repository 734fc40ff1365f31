package core

import (
	"context"
	"errors"
	"fmt"
)

// Category is the machine-readable class of an error as reported at the
// system boundary.
type Category string

const (
	// CategoryInput covers missing or malformed requests.
	CategoryInput Category = "input"
	// CategoryConfiguration covers missing credentials and unresolvable roles.
	CategoryConfiguration Category = "configuration"
	// CategoryProvider covers failures reported by a model backend.
	CategoryProvider Category = "provider"
	// CategoryUnknownRole covers registry lookups outside the registered set.
	CategoryUnknownRole Category = "unknown_role"
	// CategoryTimeout covers caller deadlines and cancellation.
	CategoryTimeout Category = "timeout"
	// CategoryInternal is used for anything not classified above.
	CategoryInternal Category = "internal"
)

// Categorized is implemented by every error in the taxonomy.
type Categorized interface {
	error
	Category() Category
}

// InputError reports a client input problem. No model call is attempted.
type InputError struct {
	Message string
}

// NewInputError formats an InputError.
func NewInputError(format string, args ...any) *InputError {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

func (e *InputError) Error() string { return "invalid input: " + e.Message }

// Category implements Categorized.
func (e *InputError) Category() Category { return CategoryInput }

// ConfigurationError reports a missing credential or an unresolvable role
// configuration.
type ConfigurationError struct {
	Role    string
	Message string
	Cause   error
}

// NewConfigurationError formats a ConfigurationError for role.
func NewConfigurationError(role string, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Role: role, Message: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Role != "" {
		msg += " for role " + e.Role
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// Category implements Categorized.
func (e *ConfigurationError) Category() Category { return CategoryConfiguration }

// ProviderErrorKind distinguishes provider failure modes.
type ProviderErrorKind string

const (
	// ProviderErrCredential means the credential was missing or malformed.
	ProviderErrCredential ProviderErrorKind = "credential"
	// ProviderErrAuth means the provider rejected the credential.
	ProviderErrAuth ProviderErrorKind = "auth"
	// ProviderErrNetwork covers connection failures and provider 5xx responses.
	ProviderErrNetwork ProviderErrorKind = "network"
	// ProviderErrRateLimit covers rate-limit and quota failures.
	ProviderErrRateLimit ProviderErrorKind = "rate_limit"
	// ProviderErrUnsupported means no adapter exists for the provider kind.
	ProviderErrUnsupported ProviderErrorKind = "unsupported"
	// ProviderErrInvalidResponse means the provider answered with nothing usable.
	ProviderErrInvalidResponse ProviderErrorKind = "invalid_response"
)

// ProviderError reports a failure of a model invocation.
type ProviderError struct {
	Kind       ProviderErrorKind
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// Category implements Categorized.
func (e *ProviderError) Category() Category { return CategoryProvider }

// Retryable reports whether resending the same request may succeed.
func (e *ProviderError) Retryable() bool {
	return e.Kind == ProviderErrNetwork || e.Kind == ProviderErrRateLimit
}

// ProviderErrorFromStatus classifies an HTTP status returned by provider.
func ProviderErrorFromStatus(provider string, status int, message string, cause error) *ProviderError {
	kind := ProviderErrInvalidResponse
	switch {
	case status == 401 || status == 403:
		kind = ProviderErrAuth
	case status == 429:
		kind = ProviderErrRateLimit
	case status >= 500:
		kind = ProviderErrNetwork
	}
	return &ProviderError{Kind: kind, Provider: provider, StatusCode: status, Message: message, Cause: cause}
}

// UnknownRoleError reports a registry lookup outside the registered set.
type UnknownRoleError struct {
	Key string
}

func (e *UnknownRoleError) Error() string { return fmt.Sprintf("unknown expert role %q", e.Key) }

// Category implements Categorized.
func (e *UnknownRoleError) Category() Category { return CategoryUnknownRole }

// CategoryOf returns the category of the first categorized error in err's chain.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	var c Categorized
	if errors.As(err, &c) {
		return c.Category()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTimeout
	}
	return CategoryInternal
}

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// UserMessage renders err as text suitable for an end user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case ProviderErrRateLimit:
			return "The model provider is rate limiting requests. Please try again shortly."
		case ProviderErrNetwork:
			return "The model provider could not be reached. Please try again."
		case ProviderErrAuth, ProviderErrCredential:
			return "The model provider rejected the configured credentials."
		case ProviderErrUnsupported:
			return "The selected model provider is not supported."
		}
		return "The model provider returned an unusable response."
	}
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Message
	}
	switch CategoryOf(err) {
	case CategoryConfiguration:
		return "The service is misconfigured: " + err.Error()
	case CategoryTimeout:
		return "The request timed out before all models answered."
	}
	return "Unexpected error: " + err.Error()
}
