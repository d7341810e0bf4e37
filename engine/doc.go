// Package engine executes untrusted JavaScript fragments in an in-process
// sandbox.
//
// An invocation moves through the states Validating, Compiled, Running and
// ends in exactly one of Completed, TimedOut or Faulted. Validation parses
// the fragment, rejects one whose top-level statements can never produce a
// result, and lowers the rest to bytecode; a fragment that fails validation
// never constructs an execution context, never resolves a capability, and
// never starts the deadline timer.
//
// The compiled fragment runs inside a fresh goja runtime that contains only
// the injected bindings: projectId, region, require and console. Nothing
// from the host process leaks in; the require binding is backed by the
// capability registry and is the fragment's only channel to the outside
// world. A wall-clock deadline interrupts the runtime unconditionally, and
// capability calls observe the same deadline through their context.
//
// Every terminal state is reported as a tagged Outcome; the engine never
// panics or returns a raw error across its boundary.
//
// Usage:
//
//	eng := engine.New(logger, registry, store, 30*time.Second)
//	out := eng.Execute(ctx, engine.Request{Source: "return 1 + 1;", ProjectID: "p1"})
//	if out.OK() {
//	    fmt.Println(out.Value) // 2
//	}
package engine
