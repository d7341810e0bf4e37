package engine

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dop251/goja"

	"github.com/gcpbox/gcpbox/capability"
)

// invocation is the isolated execution context for one compiled fragment.
// It owns the runtime, the per-invocation capability environment, and the
// deadline-scoped context passed to every capability call. It is never
// shared across invocations.
type invocation struct {
	rt       *goja.Runtime
	ctx      context.Context
	resolver Resolver
	env      capability.Env

	// notFound maps the error objects thrown for failed capability
	// resolutions back to their resolution failures. Classification compares
	// the uncaught thrown value by identity, so a fragment that catches a
	// miss and later throws an equal-looking string is not mistaken for it.
	notFound map[*goja.Object]*capability.NotFoundError
}

// run executes a compiled fragment under the engine's deadline. The runtime
// is populated with exactly the injected bindings; nothing else from the
// host process is reachable.
func (e *Engine) run(ctx context.Context, prog *goja.Program, project, region string) Outcome {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	console := capability.NewConsoleBuffer(e.logger)
	inv := &invocation{
		rt:       goja.New(),
		ctx:      runCtx,
		resolver: e.resolver,
		env: capability.Env{
			ProjectID: project,
			Region:    region,
			Console:   console,
		},
	}

	_ = inv.rt.Set("projectId", project)
	_ = inv.rt.Set("region", region)
	_ = inv.rt.Set("require", inv.require)
	if consoleObj, err := inv.materialize("console"); err == nil {
		_ = inv.rt.Set("console", consoleObj)
	}

	// The watchdog interrupts the runtime when the deadline expires, which
	// unwinds even a tight loop that never reaches a capability boundary.
	watchdogDone := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			inv.rt.Interrupt(runCtx.Err())
		case <-watchdogDone:
		}
	}()

	value, err := inv.rt.RunProgram(prog)
	close(watchdogDone)

	// Deadline expiry wins over whichever error surfaced first, so a late
	// capability completion can never be observed as a result.
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Outcome{
			Logs: console.Lines(),
			Err:  newError(KindTimeout, "execution exceeded the %s deadline", e.timeout),
		}
	}

	if err != nil {
		return Outcome{Logs: console.Lines(), Err: inv.classify(err)}
	}

	normalized, nerr := normalizeResult(value)
	if nerr != nil {
		return Outcome{Logs: console.Lines(), Err: nerr}
	}
	return Outcome{Value: normalized, Logs: console.Lines()}
}

// classify maps a runtime error to the failure taxonomy.
func (inv *invocation) classify(err error) *Error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return newError(KindFaulted, "execution interrupted: %v", interrupted.Value())
	}

	var exc *goja.Exception
	if errors.As(err, &exc) {
		if obj, ok := exc.Value().(*goja.Object); ok {
			if nf, found := inv.notFound[obj]; found {
				return newError(KindNotFound, "%s", nf.Error())
			}
		}
		return newError(KindFaulted, "%s", exc.Value().String())
	}

	return newError(KindFaulted, "%v", err)
}

// require is the capability-resolution entry point injected into the
// runtime. Resolution failures are thrown into the fragment; an uncaught
// throw terminates the invocation. A not-found failure is thrown as a
// dedicated error object so classification can recognize it by identity.
func (inv *invocation) require(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()

	instance, err := inv.construct(name)
	if err != nil {
		var nf *capability.NotFoundError
		if errors.As(err, &nf) {
			obj := inv.rt.NewObject()
			_ = obj.Set("name", "CapabilityNotFoundError")
			_ = obj.Set("message", nf.Error())
			if inv.notFound == nil {
				inv.notFound = make(map[*goja.Object]*capability.NotFoundError)
			}
			inv.notFound[obj] = nf
			panic(obj)
		}
		panic(inv.rt.ToValue(err.Error()))
	}
	return inv.bind(instance)
}

// materialize resolves and constructs a capability, returning it bound as a
// runtime object.
func (inv *invocation) materialize(name string) (*goja.Object, error) {
	instance, err := inv.construct(name)
	if err != nil {
		return nil, err
	}
	return inv.bind(instance), nil
}

func (inv *invocation) construct(name string) (capability.Instance, error) {
	factory, err := inv.resolver.Resolve(name)
	if err != nil {
		return nil, err
	}
	return factory.New(inv.ctx, inv.env)
}

// bind adapts a capability instance into a runtime object whose methods
// marshal arguments out of the sandbox, dispatch through the instance with
// the invocation context, and throw dispatch errors back in.
func (inv *invocation) bind(instance capability.Instance) *goja.Object {
	obj := inv.rt.NewObject()
	for _, method := range instance.Methods() {
		fn := func(call goja.FunctionCall) goja.Value {
			args := make([]any, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = arg.Export()
			}
			result, err := instance.Call(inv.ctx, method, args)
			if err != nil {
				panic(inv.rt.ToValue(err.Error()))
			}
			if result == nil {
				return goja.Undefined()
			}
			return inv.rt.ToValue(result)
		}
		_ = obj.Set(method, fn)
	}
	return obj
}

// normalizeResult round-trips the produced value through JSON so outcomes
// carry only JSON-compatible data. A fragment that completes without
// reaching a return statement produces null.
func normalizeResult(value goja.Value) (any, *Error) {
	var exported any
	if value != nil && !goja.IsUndefined(value) && !goja.IsNull(value) {
		exported = value.Export()
	}

	raw, err := json.Marshal(exported)
	if err != nil {
		return nil, newError(KindNonSerializableResult,
			"produced value is not representable as JSON: %v", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, newError(KindNonSerializableResult,
			"produced value is not representable as JSON: %v", err)
	}
	return normalized, nil
}
