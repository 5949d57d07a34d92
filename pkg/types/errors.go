package types

import "fmt"

// ErrorCode is a typed string for categorizing SDK errors.
type ErrorCode string

// Error code constants. Components construct AppErrors with these instead
// of hardcoded strings so logs stay greppable across the SDK.
const (
	// Payload
	ErrCodePayloadMissing          ErrorCode = "payload_missing"
	ErrCodePayloadParse            ErrorCode = "payload_parse_failed"
	ErrCodePayloadMissingMessageID ErrorCode = "payload_missing_message_id"

	// Configuration
	ErrCodeConfigInvalid ErrorCode = "config_invalid"
	ErrCodeConfigMissing ErrorCode = "config_missing_field"

	// Storage
	ErrCodeStorageRead   ErrorCode = "storage_read_failed"
	ErrCodeStorageWrite  ErrorCode = "storage_write_failed"
	ErrCodeStorageEncode ErrorCode = "storage_encode_failed"
	ErrCodeStorageOpen   ErrorCode = "storage_open_failed"

	// Platform
	ErrCodeDisplayFailed    ErrorCode = "display_failed"
	ErrCodePermissionFailed ErrorCode = "permission_request_failed"
	ErrCodeNavigationFailed ErrorCode = "navigation_failed"

	// Initialization
	ErrCodeInitSubscription ErrorCode = "init_subscription_failed"
	ErrCodeNotInitialized   ErrorCode = "sdk_not_initialized"

	// Upstream (event/device API)
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamRejected    ErrorCode = "upstream_rejected"

	// Internal
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// AppError is the standard application error type used throughout the SDK.
// Domain errors are expressed as AppError to enable consistent formatting
// and error chain support.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Details map[string]any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error with the provided details merged
// in, leaving the original untouched.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
