package domain

import "fmt"

// ErrorCode represents categorized error types.
// These codes are stable and can be used for programmatic error handling
// and server-side audit logging. User-facing layers must map each code to
// a generic, non-information-leaking message.
type ErrorCode string

const (
	ErrCodeValidation      ErrorCode = "validation_error"
	ErrCodeConfiguration   ErrorCode = "configuration_error"
	ErrCodeMetadata        ErrorCode = "metadata_error"
	ErrCodeUntrustedIssuer ErrorCode = "untrusted_issuer"
	ErrCodeEncryption      ErrorCode = "encryption_error"
	ErrCodeSignature       ErrorCode = "signature_error"
	ErrCodeCommunication   ErrorCode = "specific_communication_error"
	ErrCodeReplayDetected  ErrorCode = "replay_detected"
)

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// ProtocolError is a structured error with code, message, and optional cause.
// All protocol errors are terminal for the single message being processed;
// none are retried internally.
type ProtocolError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// CodeOf extracts the ErrorCode from an error, or empty string if the error
// is not a ProtocolError.
func CodeOf(err error) ErrorCode {
	if pe, ok := err.(*ProtocolError); ok {
		return pe.Code
	}
	return ""
}

// ValidationError creates an error for a malformed or invariant-violating
// value object. Always recoverable by rejecting the single message.
func ValidationError(message string) *ProtocolError {
	return &ProtocolError{Code: ErrCodeValidation, Message: message}
}

// ValidationErrorf creates a validation error with a formatted message.
func ValidationErrorf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError creates an error for missing or invalid algorithm, key,
// or instance configuration. Fatal at startup, never per-message.
func ConfigurationError(message string) *ProtocolError {
	return &ProtocolError{Code: ErrCodeConfiguration, Message: message}
}

// MetadataError creates a trust-resolution error. The message is rejected,
// never retried automatically.
func MetadataError(message string, cause error) *ProtocolError {
	return &ProtocolError{Code: ErrCodeMetadata, Message: message, Cause: cause}
}

// UntrustedIssuerError creates an error for a response whose issuer is not
// in the caller-supplied trusted set.
func UntrustedIssuerError(issuer string) *ProtocolError {
	return &ProtocolError{
		Code:    ErrCodeUntrustedIssuer,
		Message: fmt.Sprintf("issuer %q is not trusted", issuer),
	}
}

// EncryptionError creates an error for a failed or policy-violating
// encryption or decryption operation.
func EncryptionError(message string, cause error) *ProtocolError {
	return &ProtocolError{Code: ErrCodeEncryption, Message: message, Cause: cause}
}

// SignatureError creates an error for a failed or policy-violating
// signature operation.
func SignatureError(message string, cause error) *ProtocolError {
	return &ProtocolError{Code: ErrCodeSignature, Message: message, Cause: cause}
}

// CommunicationError creates a token/cache lookup error. Callers must treat
// it as "not found" and must not retry blindly.
func CommunicationError(message string, cause error) *ProtocolError {
	return &ProtocolError{Code: ErrCodeCommunication, Message: message, Cause: cause}
}

// ReplayError creates an error for an anti-replay cache hit. Must be logged
// as a security event and the message rejected, never silently accepted.
func ReplayError(messageID, countryCode string) *ProtocolError {
	return &ProtocolError{
		Code:    ErrCodeReplayDetected,
		Message: fmt.Sprintf("message %q from %q was already processed", messageID, countryCode),
	}
}
