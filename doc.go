// Package connector defines the contract between a host application and a
// platform connector plugin: a component that performs CRUD-style operations
// against an external record store and reports its health to the host.
//
// # Overview
//
// A connector declares which operations it supports when it is initialized.
// The host then sends typed requests; each request is checked against that
// catalog and routed to the matching handler, or rejected:
//
//   - Requests form a closed set: CreateRequest, ReadRequest, UpdateRequest
//     and DeleteRequest. Responses mirror them.
//   - Every response echoes the request id. An error message is present
//     exactly when the status is not SUCCESS.
//   - A missing record is a response status, not an error. Unsupported or
//     unrecognized requests fail the call.
//
// Health is a complete picture (overall, per component, metrics). The host
// pulls it with Health, and the connector pushes it through the
// HealthReporter the host supplies.
//
// # Writing a connector
//
// Implement Worker and wrap it in an Instance:
//
//	props, _ := connector.LoadProperties(dir, "demo", logger)
//	inst, err := connector.New("demo", "Demo", props, demo.New(),
//	    connector.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := inst.Initialize(ctx); err != nil {
//	    return err
//	}
//	defer inst.Shutdown(ctx)
//
//	inst.SetHealthReporter(host)
//	resp, err := inst.Handle(ctx, connector.ReadRequest{
//	    RequestID: "r2",
//	    ObjectID:  "notfound",
//	})
//
// The connectorrpc package serves an Instance to a remote host over Connect,
// and connectorfx wires the lifecycle into an fx application.
package connector
