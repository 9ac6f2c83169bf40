package connector

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// State is the lifecycle state of an Instance.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Option configures an Instance.
type Option func(*Instance)

// WithLogger sets the instance logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Instance) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithSourceFS sets the filesystem the source archive is read from and
// whether the source is AGPL licensed.
func WithSourceFS(fsys fs.FS, usesAGPL bool) Option {
	return func(i *Instance) {
		i.sourceFS = fsys
		i.agpl = usesAGPL
	}
}

// WithHealthReporter supplies the host callback at construction time.
func WithHealthReporter(r HealthReporter) Option {
	return func(i *Instance) {
		if r != nil {
			i.reporter.Store(&reporterRef{r})
		}
	}
}

type reporterRef struct {
	HealthReporter
}

// Instance is one running connector. It owns the operation catalog, routes
// requests through a Dispatcher to its Worker, and delivers health to the
// host by pull and by push.
//
// Lifecycle: Uninitialized → Ready (Initialize) → Destroyed (Shutdown).
// The host must not race requests against Shutdown; Handle checks the state
// but does not wait for in-flight calls.
type Instance struct {
	id          string
	description string
	props       Properties
	worker      Worker
	logger      *zap.Logger

	sourceFS fs.FS
	agpl     bool

	version  string
	artifact string

	// lifecycle serializes Initialize and Shutdown. Request handling never
	// takes it.
	lifecycle sync.Mutex
	state     atomic.Int32

	// Written once by Initialize before state becomes Ready.
	ops        OperationSet
	dispatcher *Dispatcher

	reporter atomic.Pointer[reporterRef]
}

var (
	_ Plugin       = (*Instance)(nil)
	_ HealthPusher = (*Instance)(nil)
)

// New creates an uninitialized connector instance.
func New(id, description string, props Properties, worker Worker, opts ...Option) (*Instance, error) {
	if err := ValidatePluginID(id); err != nil {
		return nil, err
	}
	if err := ValidateDescription(description); err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, fmt.Errorf("%w: worker is required", ErrInvalidConfig)
	}

	i := &Instance{
		id:          id,
		description: description,
		props:       props,
		worker:      worker,
		logger:      zap.NewNop(),
		version:     props.GetOr(PropertyBuildVersion, unknownBuildValue),
		artifact:    props.GetOr(PropertyBuildArtifact, unknownBuildValue),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With(zap.String("plugin_id", id))
	return i, nil
}

// ID returns the host-assigned plugin id.
func (i *Instance) ID() string { return i.id }

// Description returns the human-readable description.
func (i *Instance) Description() string { return i.description }

// Properties returns the configuration the instance was built with.
func (i *Instance) Properties() Properties { return i.props }

// State returns the current lifecycle state.
func (i *Instance) State() State { return State(i.state.Load()) }

// Info returns the instance identity and capabilities.
func (i *Instance) Info() Info {
	return Info{
		ID:              i.id,
		Description:     i.description,
		Version:         i.version,
		Artifact:        i.artifact,
		Operations:      i.SupportedOperations(),
		SourceAvailable: i.SourceAvailable(),
	}
}

// Initialize runs the worker setup, fixes the operation catalog and pushes
// the worker's health to the host reporter, if one is set. It may only
// succeed once. If setup fails the instance stays uninitialized.
func (i *Instance) Initialize(ctx context.Context) error {
	i.lifecycle.Lock()
	defer i.lifecycle.Unlock()

	switch i.State() {
	case StateReady:
		return ErrAlreadyInitialized
	case StateDestroyed:
		return ErrDestroyed
	}

	log := i.logger.Named("setup")
	log.Info("Startup tasks for plugin running",
		zap.String("description", i.description),
		zap.String("version", i.version),
		zap.String("artifact", i.artifact))
	for _, key := range i.props.Keys() {
		v, _ := i.props.Get(key)
		log.Debug("Configuration", zap.String("key", key), zap.String("value", v))
	}

	ops, err := i.worker.Setup(ctx, Environment{
		PluginID:    i.id,
		Description: i.description,
		Properties:  i.props,
		Logger:      i.logger.Named("worker"),
		Health:      i,
	})
	if err != nil {
		log.Error("Plugin setup failed", zap.Error(err))
		return fmt.Errorf("setup plugin %q: %w", i.id, err)
	}

	i.ops = NewOperationSet(ops...)
	i.dispatcher = NewDispatcher(i.ops, i.worker, i.logger.Named("dispatcher"))
	i.state.Store(int32(StateReady))

	log.Info("Plugin ready", zap.Stringer("operations", i.ops))

	// A host that kept the FAILED result of an earlier shutdown routes again
	// once it sees the fresh picture.
	if i.reporter.Load() != nil {
		i.PushHealth(ctx, i.Health(ctx))
	}
	return nil
}

// Shutdown pushes a terminal FAILED health result to the host and then runs
// the worker teardown. It may only succeed once.
func (i *Instance) Shutdown(ctx context.Context) error {
	i.lifecycle.Lock()
	defer i.lifecycle.Unlock()

	switch i.State() {
	case StateUninitialized:
		return ErrNotReady
	case StateDestroyed:
		return ErrDestroyed
	}

	log := i.logger.Named("destroy")
	log.Info("Shutdown tasks for plugin running")
	i.state.Store(int32(StateDestroyed))

	i.PushHealth(ctx, ShutdownHealth())

	if err := i.worker.Teardown(ctx); err != nil {
		log.Error("Plugin teardown failed", zap.Error(err))
		return fmt.Errorf("teardown plugin %q: %w", i.id, err)
	}
	return nil
}

// SupportedOperations returns the operation catalog.
func (i *Instance) SupportedOperations() OperationSet {
	if i.State() == StateUninitialized {
		return OperationSet{}
	}
	return i.ops
}

// Handle dispatches req to the worker.
func (i *Instance) Handle(ctx context.Context, req Request) (Response, error) {
	if st := i.State(); st != StateReady {
		return nil, fmt.Errorf("%w: instance is %s", ErrNotReady, st)
	}
	return i.dispatcher.Dispatch(ctx, req)
}

// Health returns the current complete health picture. Before Initialize the
// overall state is WARNING; after Shutdown it is the terminal FAILED result.
func (i *Instance) Health(ctx context.Context) HealthResult {
	switch i.State() {
	case StateUninitialized:
		return HealthResult{Overall: Warning("Plugin not initialized")}
	case StateDestroyed:
		return ShutdownHealth()
	}

	i.logger.Debug("Getting plugin health")
	result := i.worker.Health(ctx).Clone()
	if err := result.Validate(); err != nil {
		i.logger.Error("Worker returned an invalid health result", zap.Error(err))
		result.Overall = Failed(err.Error())
	}
	return result
}

// SetHealthReporter supplies the host callback for pushed health. A nil
// reporter turns pushes back into no-ops.
func (i *Instance) SetHealthReporter(r HealthReporter) {
	i.logger.Info("Setting container interface")
	if r == nil {
		i.reporter.Store(nil)
		return
	}
	i.reporter.Store(&reporterRef{r})
}

// PushHealth delivers result to the host reporter, tagged with the plugin
// id. Without a reporter it does nothing. Reporter errors and panics are
// logged and never returned.
func (i *Instance) PushHealth(ctx context.Context, result HealthResult) {
	ref := i.reporter.Load()
	if ref == nil {
		i.logger.Warn("Container interface is not yet set. Not doing callback")
		return
	}
	if err := result.Validate(); err != nil {
		i.logger.Error("Refusing to push an incomplete health result", zap.Error(err))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("Health reporter panicked", zap.Any("panic", r))
		}
	}()

	i.logger.Info("About to send the plugin health to container application",
		zap.Stringer("overall", result.Overall.State))
	if err := ref.ReportHealth(ctx, i.id, result.Clone()); err != nil {
		i.logger.Error("Health push failed", zap.Error(err))
	}
}

// SourceAvailable reports whether a source filesystem was configured.
func (i *Instance) SourceAvailable() bool {
	return i.sourceFS != nil
}

// SourceArchive reads the connector's source bundle, named from the build
// info properties. Failures produce an archive with empty data.
func (i *Instance) SourceArchive(ctx context.Context) SourceArchive {
	i.logger.Info("Getting source code for plugin")
	name := SourceArchiveName(i.artifact, i.version)
	return readSourceArchive(ctx, i.sourceFS, name, i.agpl, i.logger)
}
