package connector

import (
	"fmt"
	"strings"
)

// Status is the outcome carried by every Response.
type Status int

// The zero Status is invalid, so a response built without a constructor is
// caught rather than read as a success.
const (
	StatusSuccess Status = iota + 1
	StatusRecordNotFound
	StatusFailed
	StatusUnsupported
)

var statusNames = map[Status]string{
	StatusSuccess:        "SUCCESS",
	StatusRecordNotFound: "RECORD_NOT_FOUND",
	StatusFailed:         "FAILED",
	StatusUnsupported:    "UNSUPPORTED",
}

var statusMessages = map[Status]string{
	StatusRecordNotFound: "Record was not found",
	StatusFailed:         "Request failed",
	StatusUnsupported:    "Request is not supported",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseStatus parses a status name, ignoring case.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if strings.EqualFold(s, name) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

// Response is the typed result of a Request. Responses are immutable once
// constructed: build them with the New*Response and *Failure constructors.
type Response interface {
	// ID returns the correlation token copied from the request.
	ID() string

	// Operation returns the operation kind this response answers.
	Operation() Operation

	Status() Status

	// ErrorMessage returns the failure description. It is present exactly
	// when Status is not StatusSuccess.
	ErrorMessage() (string, bool)

	ObjectID() string

	isResponse()
}

// Detailer is implemented by responses that carry record fields.
type Detailer interface {
	// ObjectDetails returns a copy of the record fields, or nil when the
	// response carries none.
	ObjectDetails() Fields
}

type outcome struct {
	requestID string
	objectID  string
	status    Status
	message   string
}

func (o outcome) ID() string       { return o.requestID }
func (o outcome) Status() Status   { return o.status }
func (o outcome) ObjectID() string { return o.objectID }

func (o outcome) ErrorMessage() (string, bool) {
	return o.message, o.status != StatusSuccess
}

func newOutcome(requestID, objectID string, status Status, message string) outcome {
	if status == StatusSuccess {
		message = ""
	} else if message == "" {
		message = statusMessages[status]
	}
	return outcome{requestID: requestID, objectID: objectID, status: status, message: message}
}

// CreateResponse answers a CreateRequest.
type CreateResponse struct {
	outcome
	details Fields
}

// ReadResponse answers a ReadRequest.
type ReadResponse struct {
	outcome
	details Fields
}

// UpdateResponse answers an UpdateRequest.
type UpdateResponse struct {
	outcome
	details Fields
}

// DeleteResponse answers a DeleteRequest.
type DeleteResponse struct {
	outcome
}

func (CreateResponse) Operation() Operation { return OperationCreate }
func (ReadResponse) Operation() Operation   { return OperationRead }
func (UpdateResponse) Operation() Operation { return OperationUpdate }
func (DeleteResponse) Operation() Operation { return OperationDelete }

func (CreateResponse) isResponse() {}
func (ReadResponse) isResponse()   {}
func (UpdateResponse) isResponse() {}
func (DeleteResponse) isResponse() {}

func (r CreateResponse) ObjectDetails() Fields { return r.details.Clone() }
func (r ReadResponse) ObjectDetails() Fields   { return r.details.Clone() }
func (r UpdateResponse) ObjectDetails() Fields { return r.details.Clone() }

// successDetails keeps success responses populated even when the handler has
// no fields to return.
func successDetails(details Fields) Fields {
	if details == nil {
		return Fields{}
	}
	return details.Clone()
}

// NewCreateResponse builds a successful create response.
func NewCreateResponse(requestID, objectID string, details Fields) CreateResponse {
	return CreateResponse{
		outcome: newOutcome(requestID, objectID, StatusSuccess, ""),
		details: successDetails(details),
	}
}

// NewReadResponse builds a successful read response.
func NewReadResponse(requestID, objectID string, details Fields) ReadResponse {
	return ReadResponse{
		outcome: newOutcome(requestID, objectID, StatusSuccess, ""),
		details: successDetails(details),
	}
}

// NewUpdateResponse builds a successful update response.
func NewUpdateResponse(requestID, objectID string, details Fields) UpdateResponse {
	return UpdateResponse{
		outcome: newOutcome(requestID, objectID, StatusSuccess, ""),
		details: successDetails(details),
	}
}

// NewDeleteResponse builds a successful delete response.
func NewDeleteResponse(requestID, objectID string) DeleteResponse {
	return DeleteResponse{outcome: newOutcome(requestID, objectID, StatusSuccess, "")}
}

// failureStatus coerces status into a failure status.
func failureStatus(status Status) Status {
	if status == StatusSuccess || !status.Valid() {
		return StatusFailed
	}
	return status
}

// CreateFailure builds a failed create response. A StatusSuccess status is
// coerced to StatusFailed and an empty message gets the status default.
func CreateFailure(req CreateRequest, status Status, message string) CreateResponse {
	return CreateResponse{outcome: newOutcome(req.RequestID, "", failureStatus(status), message)}
}

// ReadFailure builds a failed read response without object details.
func ReadFailure(req ReadRequest, status Status, message string) ReadResponse {
	return ReadResponse{outcome: newOutcome(req.RequestID, req.ObjectID, failureStatus(status), message)}
}

// UpdateFailure builds a failed update response.
func UpdateFailure(req UpdateRequest, status Status, message string) UpdateResponse {
	return UpdateResponse{outcome: newOutcome(req.RequestID, req.ObjectID, failureStatus(status), message)}
}

// DeleteFailure builds a failed delete response.
func DeleteFailure(req DeleteRequest, status Status, message string) DeleteResponse {
	return DeleteResponse{outcome: newOutcome(req.RequestID, req.ObjectID, failureStatus(status), message)}
}

// FailureFor builds the failed response variant matching req.
func FailureFor(req Request, status Status, message string) (Response, error) {
	switch r := normalizeRequest(req).(type) {
	case CreateRequest:
		return CreateFailure(r, status, message), nil
	case ReadRequest:
		return ReadFailure(r, status, message), nil
	case UpdateRequest:
		return UpdateFailure(r, status, message), nil
	case DeleteRequest:
		return DeleteFailure(r, status, message), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnrecognizedRequestType, req)
	}
}

// ResponseFor reassembles a response from its parts, for example after
// decoding one from the wire. The status/message and details invariants are
// applied the same way the typed constructors apply them.
func ResponseFor(op Operation, requestID, objectID string, status Status, message string, details Fields) (Response, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, status)
	}
	o := newOutcome(requestID, objectID, status, message)
	if status != StatusSuccess {
		details = nil
	} else {
		details = successDetails(details)
	}

	switch op {
	case OperationCreate:
		return CreateResponse{outcome: o, details: details}, nil
	case OperationRead:
		return ReadResponse{outcome: o, details: details}, nil
	case OperationUpdate:
		return UpdateResponse{outcome: o, details: details}, nil
	case OperationDelete:
		return DeleteResponse{outcome: o}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedRequestType, op)
	}
}

// DetailsOf returns the object details carried by resp, or nil.
func DetailsOf(resp Response) Fields {
	if d, ok := resp.(Detailer); ok {
		return d.ObjectDetails()
	}
	return nil
}
