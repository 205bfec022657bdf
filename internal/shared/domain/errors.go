package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a command failure.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotReady   ErrorKind = "not_ready"
	KindNotFound   ErrorKind = "not_found"
	KindProvider   ErrorKind = "provider"
	KindTimeout    ErrorKind = "timeout"
)

// Sentinel errors matched by errors.Is against any *BridgeError of the same kind.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotReady   = errors.New("service not ready")
	ErrNotFound   = errors.New("not found")
	ErrProvider   = errors.New("provider error")
	ErrTimeout    = errors.New("timed out")
)

// BridgeError is the error returned to the originating command.
type BridgeError struct {
	Kind    ErrorKind
	Op      string
	Message string
}

// Error returns the message unchanged so provider diagnostics reach the caller verbatim.
func (e *BridgeError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.sentinel().Error()
}

// Is reports whether target is the sentinel for this error's kind.
func (e *BridgeError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *BridgeError) sentinel() error {
	switch e.Kind {
	case KindValidation:
		return ErrValidation
	case KindNotReady:
		return ErrNotReady
	case KindNotFound:
		return ErrNotFound
	case KindTimeout:
		return ErrTimeout
	default:
		return ErrProvider
	}
}

// ValidationError reports missing or empty required input.
func ValidationError(op, format string, args ...any) *BridgeError {
	return &BridgeError{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotReadyError reports an operation attempted while the connection is not ready.
func NotReadyError(op string) *BridgeError {
	return &BridgeError{Kind: KindNotReady, Op: op, Message: "billing service not ready"}
}

// NotFoundError reports a referenced record absent from the provider.
func NotFoundError(op, format string, args ...any) *BridgeError {
	return &BridgeError{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

// ProviderError carries the external service's diagnostic text as-is.
func ProviderError(op, message string) *BridgeError {
	return &BridgeError{Kind: KindProvider, Op: op, Message: message}
}

// TimeoutError reports an exhausted polling budget.
func TimeoutError(op, message string) *BridgeError {
	return &BridgeError{Kind: KindTimeout, Op: op, Message: message}
}

// KindOf returns the kind of err, or KindProvider for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindProvider
}

// KindName is KindOf as a string, for metric and log labels.
func KindName(err error) string {
	return string(KindOf(err))
}
