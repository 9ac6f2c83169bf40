// Package demo is a reference connector worker. Its record handling is
// placeholder logic that honors the connector contract: server-side ids on
// create, echoed ids on update and delete, and a deterministic not-found path
// on read.
package demo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	connector "github.com/example/platform-connector-go"
)

const (
	// NotFoundObjectID makes Read report RECORD_NOT_FOUND, ignoring case.
	NotFoundObjectID = "notfound"

	// SetHealthObjectID makes Read push a WARNING health result, ignoring case.
	SetHealthObjectID = "sethealth"

	// SearchObjectID is the object id returned by search-mode reads.
	SearchObjectID = "DemoReadObjectId"
)

// Worker is the demo connector worker.
type Worker struct {
	// Operations limits the declared operations. Nil declares all four.
	Operations []connector.Operation

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// NewID generates object ids for created records. Defaults to a random UUID.
	NewID func() string

	// OnTeardown, if set, runs during Teardown.
	OnTeardown func(ctx context.Context) error

	logger *zap.Logger
	health connector.HealthPusher
}

var _ connector.Worker = (*Worker)(nil)

// New returns a demo worker declaring every operation.
func New() *Worker {
	return &Worker{}
}

// Setup declares the supported operations.
func (w *Worker) Setup(ctx context.Context, env connector.Environment) ([]connector.Operation, error) {
	w.logger = env.Logger
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	w.health = env.Health
	if w.Now == nil {
		w.Now = time.Now
	}
	if w.NewID == nil {
		w.NewID = func() string { return uuid.New().String() }
	}

	if w.Operations != nil {
		return append([]connector.Operation(nil), w.Operations...), nil
	}
	return append([]connector.Operation(nil), connector.AllOperations...), nil
}

// Teardown runs OnTeardown, if any.
func (w *Worker) Teardown(ctx context.Context) error {
	w.logger.Debug("Plugin teardown")
	if w.OnTeardown != nil {
		return w.OnTeardown(ctx)
	}
	return nil
}

// serverFields are the values the demo store computes for every record.
func (w *Worker) serverFields() connector.Fields {
	return connector.Fields{
		"Field1": connector.String("Value1"),
		"Field2": connector.Int(2),
		"Field3": connector.Timestamp(w.now()),
		"Field4": connector.String("Value4"),
		"Field5": connector.Bool(true),
	}
}

// Create assigns a new object id and returns the server fields overlaid with
// the caller's details.
func (w *Worker) Create(ctx context.Context, req connector.CreateRequest) (connector.CreateResponse, error) {
	objectID := w.NewID()
	w.logger.Info("Issuing create request for new record",
		zap.String("request_id", req.RequestID),
		zap.String("object_id", objectID))

	details := req.ObjectDetails.Overlay(w.serverFields())
	return connector.NewCreateResponse(req.RequestID, objectID, details), nil
}

// Read returns a record, or searches when no object id is given.
func (w *Worker) Read(ctx context.Context, req connector.ReadRequest) (connector.ReadResponse, error) {
	objectID := req.ObjectID
	if req.SearchMode() {
		w.logger.Info("Issuing read request with search parameters",
			zap.String("request_id", req.RequestID),
			zap.Int("parameters", len(req.SearchParameters)))
		objectID = SearchObjectID
	} else {
		w.logger.Info("Issuing read request for record",
			zap.String("request_id", req.RequestID),
			zap.String("object_id", objectID))

		if strings.EqualFold(objectID, NotFoundObjectID) {
			w.logger.Warn("Faking record not found error", zap.String("request_id", req.RequestID))
			return connector.ReadFailure(req, connector.StatusRecordNotFound, "Record was not found"), nil
		}
		if strings.EqualFold(objectID, SetHealthObjectID) {
			w.pushHealth(ctx)
		}
	}

	return connector.NewReadResponse(req.RequestID, objectID, w.serverFields()), nil
}

// Update echoes the object id and returns the server fields.
func (w *Worker) Update(ctx context.Context, req connector.UpdateRequest) (connector.UpdateResponse, error) {
	w.logger.Info("Issuing update request for record",
		zap.String("request_id", req.RequestID),
		zap.String("object_id", req.ObjectID))
	return connector.NewUpdateResponse(req.RequestID, req.ObjectID, w.serverFields()), nil
}

// Delete echoes the object id.
func (w *Worker) Delete(ctx context.Context, req connector.DeleteRequest) (connector.DeleteResponse, error) {
	w.logger.Info("Issuing delete request for record",
		zap.String("request_id", req.RequestID),
		zap.String("object_id", req.ObjectID))
	return connector.NewDeleteResponse(req.RequestID, req.ObjectID), nil
}

// Health returns the demo health picture: overall HEALTHY with one healthy,
// one failed and one degraded component.
func (w *Worker) Health(ctx context.Context) connector.HealthResult {
	return w.snapshot(connector.Healthy())
}

// pushHealth sends the complete picture with a WARNING overall state.
func (w *Worker) pushHealth(ctx context.Context) {
	if w.health == nil {
		return
	}
	w.health.PushHealth(ctx, w.snapshot(connector.Warning("")))
}

func (w *Worker) snapshot(overall connector.HealthStatus) connector.HealthResult {
	return connector.HealthResult{
		Overall: overall,
		Components: map[string]connector.HealthStatus{
			"Component1": connector.Healthy(),
			"Component2": connector.Failed("Database connection down"),
			"Component3": connector.Warning("Connected to backup API instance"),
		},
		Metrics: []connector.HealthMetric{
			{Name: "responseTime", Value: connector.Int(100)},
			{Name: "SomeStringMetric", Value: connector.String("string")},
			{Name: "dateTimeMetric", Value: connector.Timestamp(w.now())},
			{Name: "floatMetrics", Value: connector.Number(100.0 / 3.0)},
		},
	}
}

func (w *Worker) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}
