package connector

import (
	"context"

	"go.uber.org/zap"
)

// Plugin is the contract a host uses to drive a connector in-process.
// *Instance implements it.
type Plugin interface {
	// Info returns the connector's identity and capabilities.
	Info() Info

	// SupportedOperations returns the operation catalog. It is empty until
	// the connector is initialized and fixed afterwards.
	SupportedOperations() OperationSet

	// Handle dispatches a request. It may block for the duration of the
	// worker's call to its record store.
	Handle(ctx context.Context, req Request) (Response, error)

	// Health returns the current complete health picture.
	Health(ctx context.Context) HealthResult

	// SetHealthReporter supplies the host callback used for pushed health.
	SetHealthReporter(r HealthReporter)

	// SourceArchive returns the connector's source bundle.
	SourceArchive(ctx context.Context) SourceArchive
}

// Info describes a connector to its host.
type Info struct {
	ID              string
	Description     string
	Version         string
	Artifact        string
	Operations      OperationSet
	SourceAvailable bool
}

// Worker is the connector-specific part of a plugin: it declares the
// operations it supports, does the work behind them, and reports health.
// The Instance drives a Worker through its lifecycle.
type Worker interface {
	Handler

	// Setup runs once while the instance is initialized and returns the
	// operations the worker supports.
	Setup(ctx context.Context, env Environment) ([]Operation, error)

	// Health returns the worker's complete health picture.
	Health(ctx context.Context) HealthResult

	// Teardown runs once while the instance is shut down, after the terminal
	// health result has been pushed.
	Teardown(ctx context.Context) error
}

// Environment is what a Worker receives at setup.
type Environment struct {
	PluginID    string
	Description string
	Properties  Properties
	Logger      *zap.Logger

	// Health pushes results to the host through the instance.
	Health HealthPusher
}
