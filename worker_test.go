package connector

import (
	"context"
	"errors"
	"sync"
)

// recorder collects an ordered trace of worker calls and host pushes.
type recorder struct {
	mu     sync.Mutex
	events []string
	pushes []HealthResult
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Pushes() []HealthResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]HealthResult(nil), r.pushes...)
}

// ReportHealth implements HealthReporter.
func (r *recorder) ReportHealth(_ context.Context, pluginID string, result HealthResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "push:"+pluginID+":"+result.Overall.State.String())
	r.pushes = append(r.pushes, result)
	return nil
}

// fakeWorker answers every request successfully and records each call.
type fakeWorker struct {
	rec      *recorder
	ops      []Operation
	setupErr error
	health   HealthResult
	env      Environment
}

func newFakeWorker(rec *recorder, ops ...Operation) *fakeWorker {
	return &fakeWorker{
		rec:    rec,
		ops:    ops,
		health: HealthResult{Overall: Healthy()},
	}
}

func (w *fakeWorker) Setup(_ context.Context, env Environment) ([]Operation, error) {
	w.rec.add("setup")
	w.env = env
	if w.setupErr != nil {
		return nil, w.setupErr
	}
	return w.ops, nil
}

func (w *fakeWorker) Teardown(context.Context) error {
	w.rec.add("teardown")
	return nil
}

func (w *fakeWorker) Health(context.Context) HealthResult {
	w.rec.add("health")
	return w.health
}

func (w *fakeWorker) Create(_ context.Context, req CreateRequest) (CreateResponse, error) {
	w.rec.add("create")
	return NewCreateResponse(req.RequestID, "obj-1", req.ObjectDetails), nil
}

func (w *fakeWorker) Read(_ context.Context, req ReadRequest) (ReadResponse, error) {
	w.rec.add("read")
	return NewReadResponse(req.RequestID, req.ObjectID, nil), nil
}

func (w *fakeWorker) Update(_ context.Context, req UpdateRequest) (UpdateResponse, error) {
	w.rec.add("update")
	return NewUpdateResponse(req.RequestID, req.ObjectID, req.ObjectDetails), nil
}

func (w *fakeWorker) Delete(_ context.Context, req DeleteRequest) (DeleteResponse, error) {
	w.rec.add("delete")
	if req.ObjectID == "boom" {
		return DeleteResponse{}, errors.New("backend unavailable")
	}
	return NewDeleteResponse(req.RequestID, req.ObjectID), nil
}
