package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Handler performs the work behind each operation kind. Implementations
// encode business outcomes such as a missing record in the response status
// and return an error only when the call itself cannot be completed.
//
// Handlers may block on an external record store for the duration of the call.
type Handler interface {
	Create(ctx context.Context, req CreateRequest) (CreateResponse, error)
	Read(ctx context.Context, req ReadRequest) (ReadResponse, error)
	Update(ctx context.Context, req UpdateRequest) (UpdateResponse, error)
	Delete(ctx context.Context, req DeleteRequest) (DeleteResponse, error)
}

// Dispatcher routes requests to a Handler, gated by an operation catalog.
// It holds no mutable state and is safe for concurrent use.
type Dispatcher struct {
	ops     OperationSet
	handler Handler
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher that only routes operations in ops.
func NewDispatcher(ops OperationSet, handler Handler, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		ops:     ops,
		handler: handler,
		logger:  logger,
	}
}

// Operations returns the catalog the dispatcher gates on.
func (d *Dispatcher) Operations() OperationSet {
	return d.ops
}

// Dispatch routes req to the matching handler method and returns its
// response unmodified.
//
// Requests whose operation is not in the catalog fail with an
// *OperationError and never reach the handler. Requests that are not one of
// the known variants fail with ErrUnrecognizedRequestType.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Response, error) {
	req = normalizeRequest(req)
	if req == nil {
		d.logger.Error("Request class type not implemented")
		return nil, fmt.Errorf("%w: nil request", ErrUnrecognizedRequestType)
	}

	log := d.logger.With(zap.String("request_id", req.ID()))
	log.Debug("Determining request type", zap.String("type", fmt.Sprintf("%T", req)))

	switch r := req.(type) {
	case CreateRequest:
		if err := d.admit(log, r); err != nil {
			return nil, err
		}
		return respond(d.handler.Create(ctx, r))

	case ReadRequest:
		if err := d.admit(log, r); err != nil {
			return nil, err
		}
		return respond(d.handler.Read(ctx, r))

	case UpdateRequest:
		if err := d.admit(log, r); err != nil {
			return nil, err
		}
		return respond(d.handler.Update(ctx, r))

	case DeleteRequest:
		if err := d.admit(log, r); err != nil {
			return nil, err
		}
		return respond(d.handler.Delete(ctx, r))

	default:
		log.Error("Request class type not implemented", zap.String("type", fmt.Sprintf("%T", req)))
		return nil, fmt.Errorf("%w: %T", ErrUnrecognizedRequestType, req)
	}
}

// respond drops the typed zero value a handler returns alongside an error
// and refuses responses that were not built by a constructor.
func respond[R Response](resp R, err error) (Response, error) {
	if err != nil {
		return nil, err
	}
	if !resp.Status().Valid() {
		return nil, fmt.Errorf("%w: handler returned a %s response with no status", ErrInvalidResponse, resp.Operation())
	}
	return resp, nil
}

// admit applies the catalog gate and the correlation id check.
func (d *Dispatcher) admit(log *zap.Logger, req Request) error {
	op := req.Operation()
	log.Debug("Routing request", zap.Stringer("operation", op))

	if !d.ops.Contains(op) {
		log.Error("Requests of this type are not supported by this plugin", zap.Stringer("operation", op))
		return UnsupportedOperation(op)
	}
	if req.ID() == "" {
		log.Error("Request has no request id", zap.Stringer("operation", op))
		return fmt.Errorf("%w: %s request", ErrMissingRequestID, op)
	}
	return nil
}

// normalizeRequest dereferences pointer variants so the dispatcher switch only
// deals with values. Nil pointers become a nil Request.
func normalizeRequest(req Request) Request {
	switch r := req.(type) {
	case *CreateRequest:
		if r == nil {
			return nil
		}
		return *r
	case *ReadRequest:
		if r == nil {
			return nil
		}
		return *r
	case *UpdateRequest:
		if r == nil {
			return nil
		}
		return *r
	case *DeleteRequest:
		if r == nil {
			return nil
		}
		return *r
	default:
		return req
	}
}
