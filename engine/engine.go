package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gcpbox/gcpbox/capability"
	"github.com/gcpbox/gcpbox/selection"
)

// Invocation states, reported in structured logs.
const (
	stateValidating = "validating"
	stateCompiled   = "compiled"
	stateRunning    = "running"
	stateCompleted  = "completed"
	stateTimedOut   = "timed_out"
	stateFaulted    = "faulted"
)

// DefaultTimeout bounds an invocation when no explicit timeout is
// configured.
const DefaultTimeout = 30 * time.Second

// Resolver looks up capability factories by name. The capability registry
// implements it; tests substitute counting fakes.
type Resolver interface {
	Resolve(name string) (capability.Factory, error)
}

// Request describes one fragment execution. ProjectID and RegionID are
// optional; absent values fall back to the selection store.
type Request struct {
	Source    string
	ProjectID string
	RegionID  string
}

// Engine runs fragments. It holds no per-invocation state and is safe for
// concurrent use; every invocation gets its own runtime and context.
type Engine struct {
	logger   *zap.Logger
	resolver Resolver
	store    *selection.Store
	timeout  time.Duration
}

// New creates an engine with the given capability resolver, selection store
// and per-invocation wall-clock timeout.
func New(logger *zap.Logger, resolver Resolver, store *selection.Store, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{
		logger:   logger,
		resolver: resolver,
		store:    store,
		timeout:  timeout,
	}
}

// Execute validates, compiles and runs a fragment, returning a tagged
// Outcome. It never retries and never lets an error escape untyped.
func (e *Engine) Execute(ctx context.Context, req Request) Outcome {
	start := time.Now()
	e.logger.Info("sandbox invocation started",
		zap.Int("fragment_bytes", len(req.Source)))

	project := req.ProjectID
	if project == "" {
		if selected, ok := e.store.Project(); ok {
			project = selected
		}
	}
	if project == "" {
		return e.finish(stateFaulted, start, Outcome{Err: newError(KindPrecondition,
			"no project selected: pass projectId or call select-project first")})
	}

	region := req.RegionID
	if region == "" {
		region = e.store.Region()
	}

	e.logger.Debug("state transition", zap.String("state", stateValidating))
	compiled, verr := compileFragment(req.Source)
	if verr != nil {
		return e.finish(stateFaulted, start, Outcome{Err: verr})
	}
	e.logger.Debug("state transition", zap.String("state", stateCompiled))

	e.logger.Debug("state transition", zap.String("state", stateRunning),
		zap.String("project", project), zap.String("region", region))
	out := e.run(ctx, compiled, project, region)

	terminal := stateCompleted
	if out.Err != nil {
		terminal = stateFaulted
		if out.Err.Kind == KindTimeout {
			terminal = stateTimedOut
		}
	}
	return e.finish(terminal, start, out)
}

func (e *Engine) finish(state string, start time.Time, out Outcome) Outcome {
	fields := []zap.Field{
		zap.String("state", state),
		zap.Duration("elapsed", time.Since(start)),
	}
	if out.Err != nil {
		fields = append(fields,
			zap.String("kind", string(out.Err.Kind)),
			zap.String("message", out.Err.Message))
		e.logger.Warn("sandbox invocation ended", fields...)
		return out
	}
	e.logger.Info("sandbox invocation ended", fields...)
	return out
}
