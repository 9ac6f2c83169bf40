package connector

// Request is a typed call from the host. The variant set is closed: only the
// types in this package implement it.
type Request interface {
	// ID returns the caller-supplied correlation token.
	ID() string

	// Operation returns the operation kind of this variant.
	Operation() Operation

	isRequest()
}

// CreateRequest asks the connector to create a new record.
type CreateRequest struct {
	RequestID     string
	ObjectDetails Fields
}

// ReadRequest reads a single record when ObjectID is set, or searches with
// SearchParameters when it is empty.
type ReadRequest struct {
	RequestID        string
	ObjectID         string
	SearchParameters Fields
}

// UpdateRequest replaces fields on an existing record.
type UpdateRequest struct {
	RequestID     string
	ObjectID      string
	ObjectDetails Fields
}

// DeleteRequest removes a record.
type DeleteRequest struct {
	RequestID string
	ObjectID  string
}

func (r CreateRequest) ID() string { return r.RequestID }
func (r ReadRequest) ID() string   { return r.RequestID }
func (r UpdateRequest) ID() string { return r.RequestID }
func (r DeleteRequest) ID() string { return r.RequestID }

func (CreateRequest) Operation() Operation { return OperationCreate }
func (ReadRequest) Operation() Operation   { return OperationRead }
func (UpdateRequest) Operation() Operation { return OperationUpdate }
func (DeleteRequest) Operation() Operation { return OperationDelete }

func (CreateRequest) isRequest() {}
func (ReadRequest) isRequest()   {}
func (UpdateRequest) isRequest() {}
func (DeleteRequest) isRequest() {}

// SearchMode reports whether the read runs against SearchParameters rather
// than a single object id.
func (r ReadRequest) SearchMode() bool {
	return r.ObjectID == ""
}
