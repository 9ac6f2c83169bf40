package connectorrpc

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"

	connector "github.com/example/platform-connector-go"
)

// Error metadata keys. The reason names the connector sentinel behind a
// Connect error and the operation names a rejected operation kind, so the
// client can rebuild errors that work with errors.Is and errors.As.
const (
	reasonMetaKey    = "Connector-Error"
	operationMetaKey = "Connector-Operation"
)

var (
	// ErrMalformedRequest is returned when a request message names a known
	// operation but one of its fields cannot be decoded.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrHandlerFailed wraps an error returned by the connector's worker.
	// The worker may have run, so calls failing with it are not retried.
	ErrHandlerFailed = errors.New("connector handler failed")
)

const reasonHandlerFailed = "handler-failed"

var errorReasons = []struct {
	reason string
	err    error
	code   connect.Code
}{
	{"unrecognized-request-type", connector.ErrUnrecognizedRequestType, connect.CodeInvalidArgument},
	{"missing-request-id", connector.ErrMissingRequestID, connect.CodeInvalidArgument},
	{"invalid-health-result", connector.ErrInvalidHealthResult, connect.CodeInvalidArgument},
	{"not-ready", connector.ErrNotReady, connect.CodeFailedPrecondition},
	{"malformed-request", ErrMalformedRequest, connect.CodeInvalidArgument},
	{reasonHandlerFailed, ErrHandlerFailed, connect.CodeInternal},
}

// reasonOf names the connector error behind err.
func reasonOf(err error) (string, bool) {
	if errors.Is(err, connector.ErrUnsupportedOperation) {
		return "unsupported-operation", true
	}
	for _, r := range errorReasons {
		if errors.Is(err, r.err) {
			return r.reason, true
		}
	}
	return "", false
}

// handlerFailure tags an error from Plugin.Handle that is not a contract
// rejection as a worker failure.
func handlerFailure(err error) error {
	if _, ok := reasonOf(err); ok {
		return err
	}
	return fmt.Errorf("%w: %w", ErrHandlerFailed, err)
}

// remoteReason returns the reason a remote connector attached to err.
func remoteReason(err error) string {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return ""
	}
	return cerr.Meta().Get(reasonMetaKey)
}

// toConnectError maps a connector error onto a Connect error.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}

	var opErr *connector.OperationError
	if errors.As(err, &opErr) {
		cerr := connect.NewError(connect.CodeUnimplemented, err)
		cerr.Meta().Set(reasonMetaKey, "unsupported-operation")
		cerr.Meta().Set(operationMetaKey, opErr.Operation.String())
		return cerr
	}

	for _, r := range errorReasons {
		if errors.Is(err, r.err) {
			cerr := connect.NewError(r.code, err)
			cerr.Meta().Set(reasonMetaKey, r.reason)
			return cerr
		}
	}
	return connect.NewError(connect.CodeInternal, err)
}

// fromConnectError restores the connector error behind a Connect error
// returned by a remote connector.
func fromConnectError(err error) error {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return err
	}

	reason := remoteReason(cerr)
	if reason == "unsupported-operation" {
		if op, perr := connector.ParseOperation(cerr.Meta().Get(operationMetaKey)); perr == nil {
			return connector.UnsupportedOperation(op)
		}
	}
	for _, r := range errorReasons {
		if r.reason == reason {
			return errors.Join(r.err, err)
		}
	}
	return err
}
