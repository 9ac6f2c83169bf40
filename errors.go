package connector

import (
	"errors"
	"fmt"
)

// Common errors returned by connector operations.
var (
	// ErrUnsupportedOperation is returned when a request's operation is not in
	// the connector's catalog. Rejections carry an *OperationError.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrUnrecognizedRequestType is returned when a request is not one of the
	// known variants.
	ErrUnrecognizedRequestType = errors.New("request type not implemented")

	// ErrMissingRequestID is returned when a request has no correlation id.
	ErrMissingRequestID = errors.New("request id is required")

	// ErrNotReady is returned when a request arrives before Initialize or
	// after Shutdown.
	ErrNotReady = errors.New("connector is not ready")

	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("connector already initialized")

	// ErrDestroyed is returned by Initialize or Shutdown after Shutdown.
	ErrDestroyed = errors.New("connector already destroyed")

	// ErrConfigurationMissing is logged when the properties file is absent.
	// Loading recovers with empty properties.
	ErrConfigurationMissing = errors.New("configuration file missing")

	// ErrSourceArchiveUnavailable is logged when the source archive cannot be
	// read. Retrieval recovers with an empty payload.
	ErrSourceArchiveUnavailable = errors.New("source archive unavailable")

	// ErrInvalidConfig is returned when construction parameters are invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidHealthResult is returned for health results without an
	// overall state.
	ErrInvalidHealthResult = errors.New("invalid health result")

	// ErrInvalidResponse is returned when a response cannot be assembled.
	ErrInvalidResponse = errors.New("invalid response")
)

// OperationError reports a request rejected because its operation is not
// supported by the connector.
type OperationError struct {
	Operation Operation
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s requests are not supported by this plugin", ErrUnsupportedOperation, e.Operation)
}

// Unwrap lets errors.Is match ErrUnsupportedOperation.
func (e *OperationError) Unwrap() error {
	return ErrUnsupportedOperation
}

// UnsupportedOperation returns the error reported for op.
func UnsupportedOperation(op Operation) error {
	return &OperationError{Operation: op}
}
