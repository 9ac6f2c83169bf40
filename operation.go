package connector

import (
	"fmt"
	"sort"
	"strings"
)

// Operation is a CRUD-style operation kind a connector can declare support for.
type Operation int

const (
	OperationCreate Operation = iota + 1
	OperationRead
	OperationUpdate
	OperationDelete
)

// AllOperations lists every known operation kind in declaration order.
var AllOperations = []Operation{
	OperationCreate,
	OperationRead,
	OperationUpdate,
	OperationDelete,
}

// String returns the upper-case name used in logs and on the wire.
func (o Operation) String() string {
	switch o {
	case OperationCreate:
		return "CREATE"
	case OperationRead:
		return "READ"
	case OperationUpdate:
		return "UPDATE"
	case OperationDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// Valid reports whether o is one of the known operation kinds.
func (o Operation) Valid() bool {
	return o >= OperationCreate && o <= OperationDelete
}

// ParseOperation parses an operation name, ignoring case.
func ParseOperation(s string) (Operation, error) {
	for _, op := range AllOperations {
		if strings.EqualFold(s, op.String()) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown operation %q", ErrUnrecognizedRequestType, s)
}

// OperationSet is the immutable catalog of operations a connector supports.
// The zero value is an empty set.
type OperationSet struct {
	ops map[Operation]struct{}
}

// NewOperationSet builds a set from ops. Unknown kinds and duplicates are ignored.
func NewOperationSet(ops ...Operation) OperationSet {
	set := OperationSet{ops: make(map[Operation]struct{}, len(ops))}
	for _, op := range ops {
		if op.Valid() {
			set.ops[op] = struct{}{}
		}
	}
	return set
}

// Contains reports whether op is in the set.
func (s OperationSet) Contains(op Operation) bool {
	_, ok := s.ops[op]
	return ok
}

// Len returns the number of operations in the set.
func (s OperationSet) Len() int {
	return len(s.ops)
}

// Slice returns the operations in declaration order. The slice is a copy.
func (s OperationSet) Slice() []Operation {
	out := make([]Operation, 0, len(s.ops))
	for op := range s.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the operation names in declaration order.
func (s OperationSet) Strings() []string {
	ops := s.Slice()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return names
}

func (s OperationSet) String() string {
	return "[" + strings.Join(s.Strings(), " ") + "]"
}
