package connector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var allStatuses = []Status{StatusSuccess, StatusRecordNotFound, StatusFailed, StatusUnsupported}

func TestResponseFor_ErrorMessagePresentIffNotSuccess(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		op := rapid.SampledFrom(AllOperations).Draw(t, "op")
		status := rapid.SampledFrom(allStatuses).Draw(t, "status")
		requestID := rapid.StringN(1, 16, -1).Draw(t, "requestID")
		message := rapid.String().Draw(t, "message")

		resp, err := ResponseFor(op, requestID, "obj", status, message, nil)
		if err != nil {
			t.Fatalf("ResponseFor: %v", err)
		}

		msg, ok := resp.ErrorMessage()
		if ok != (status != StatusSuccess) {
			t.Fatalf("status %s: error message present = %v", status, ok)
		}
		if ok && msg == "" {
			t.Fatalf("status %s: empty error message", status)
		}
		if !ok && msg != "" {
			t.Fatalf("success carries message %q", msg)
		}
		if resp.ID() != requestID {
			t.Fatalf("request id %q, want %q", resp.ID(), requestID)
		}
		if resp.Operation() != op {
			t.Fatalf("operation %s, want %s", resp.Operation(), op)
		}
	})
}

func TestFailureFor_NeverSuccess(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		status := rapid.SampledFrom(allStatuses).Draw(t, "status")
		req := DeleteRequest{RequestID: "r", ObjectID: rapid.String().Draw(t, "objectID")}

		resp, err := FailureFor(req, status, "")
		if err != nil {
			t.Fatalf("FailureFor: %v", err)
		}
		if resp.Status() == StatusSuccess {
			t.Fatalf("failure built with status %s reported success", status)
		}
		if _, ok := resp.ErrorMessage(); !ok {
			t.Fatal("failure has no error message")
		}
		if resp.ObjectID() != req.ObjectID {
			t.Fatalf("object id %q, want %q", resp.ObjectID(), req.ObjectID)
		}
	})
}

func TestNewReadResponse_DetailsNeverNil(t *testing.T) {
	resp := NewReadResponse("r1", "o1", nil)
	require.NotNil(t, resp.ObjectDetails())
	assert.Empty(t, resp.ObjectDetails())
	assert.NotNil(t, DetailsOf(resp))
}

func TestResponse_DetailsAreCopied(t *testing.T) {
	details := Fields{"k": String("v")}
	resp := NewCreateResponse("r1", "o1", details)

	details["k"] = String("changed")
	got := resp.ObjectDetails()
	assert.True(t, got["k"].Equal(String("v")))

	got["k"] = String("mutated")
	assert.True(t, resp.ObjectDetails()["k"].Equal(String("v")))
}

func TestReadFailure_DefaultMessage(t *testing.T) {
	resp := ReadFailure(ReadRequest{RequestID: "r2", ObjectID: "x"}, StatusRecordNotFound, "")
	msg, ok := resp.ErrorMessage()
	assert.True(t, ok)
	assert.Equal(t, "Record was not found", msg)
	assert.Nil(t, resp.ObjectDetails())
}

func TestResponseFor_RejectsUnknown(t *testing.T) {
	_, err := ResponseFor(Operation(42), "r", "", StatusSuccess, "", nil)
	assert.True(t, errors.Is(err, ErrUnrecognizedRequestType))

	_, err = ResponseFor(OperationRead, "r", "", Status(42), "", nil)
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}

func TestZeroResponseIsNotSuccess(t *testing.T) {
	var resp CreateResponse
	assert.False(t, resp.Status().Valid())
	assert.NotEqual(t, StatusSuccess, resp.Status())

	_, err := ResponseFor(OperationCreate, "r", "", Status(0), "", nil)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestParseStatus(t *testing.T) {
	for _, st := range allStatuses {
		got, err := ParseStatus(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}
	_, err := ParseStatus("PENDING")
	assert.Error(t, err)
}
