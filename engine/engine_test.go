package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gcpbox/gcpbox/capability"
	"github.com/gcpbox/gcpbox/selection"
)

// fakeResolver implements Resolver with a fixed factory set
type fakeResolver struct {
	factories map[string]capability.Factory
}

func (r *fakeResolver) Resolve(name string) (capability.Factory, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, &capability.NotFoundError{Name: name}
	}
	return f, nil
}

// fakeFactory counts constructions so tests can assert resource discipline
type fakeFactory struct {
	name          string
	constructions int
	instance      capability.Instance
	err           error
}

func (f *fakeFactory) Name() string { return f.name }

func (f *fakeFactory) New(_ context.Context, _ capability.Env) (capability.Instance, error) {
	f.constructions++
	if f.err != nil {
		return nil, f.err
	}
	return f.instance, nil
}

// fakeInstance dispatches every method through a single callback
type fakeInstance struct {
	methods []string
	call    func(ctx context.Context, method string, args []any) (any, error)
}

func (i *fakeInstance) Methods() []string { return i.methods }

func (i *fakeInstance) Call(ctx context.Context, method string, args []any) (any, error) {
	return i.call(ctx, method, args)
}

func newTestEngine(t *testing.T, resolver Resolver, timeout time.Duration) (*Engine, *selection.Store) {
	t.Helper()
	log := zaptest.NewLogger(t)
	store := selection.NewStore(log, "r-default")
	return New(log, resolver, store, timeout), store
}

func emptyResolver() *fakeResolver {
	return &fakeResolver{factories: map[string]capability.Factory{}}
}

func TestExecuteSimpleReturn(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), time.Second)

	out := eng.Execute(context.Background(), Request{
		Source:    "return 1 + 1;",
		ProjectID: "p1",
		RegionID:  "r1",
	})

	require.True(t, out.OK(), "unexpected error: %v", out.Err)
	assert.Equal(t, float64(2), out.Value)
}

func TestExecuteInjectedBindings(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), time.Second)

	out := eng.Execute(context.Background(), Request{
		Source:    `return projectId + ":" + region;`,
		ProjectID: "p1",
		RegionID:  "r1",
	})

	require.True(t, out.OK())
	assert.Equal(t, "p1:r1", out.Value)
}

func TestExecuteSelectionFallback(t *testing.T) {
	eng, store := newTestEngine(t, emptyResolver(), time.Second)
	require.NoError(t, store.Select("selected-project", ""))

	out := eng.Execute(context.Background(), Request{
		Source: `return projectId + ":" + region;`,
	})

	require.True(t, out.OK())
	assert.Equal(t, "selected-project:r-default", out.Value)
}

func TestExecutePreconditionNoProject(t *testing.T) {
	counting := &fakeFactory{name: "echo"}
	eng, _ := newTestEngine(t, &fakeResolver{factories: map[string]capability.Factory{
		"echo": counting,
	}}, time.Second)

	out := eng.Execute(context.Background(), Request{
		Source: `return require("echo");`,
	})

	require.False(t, out.OK())
	assert.Equal(t, KindPrecondition, out.Err.Kind)
	assert.Zero(t, counting.constructions)
}

func TestExecuteMissingResult(t *testing.T) {
	counting := &fakeFactory{name: "echo"}
	eng, _ := newTestEngine(t, &fakeResolver{factories: map[string]capability.Factory{
		"echo": counting,
	}}, time.Second)

	out := eng.Execute(context.Background(), Request{
		Source:    "const x = 5;",
		ProjectID: "p1",
	})

	require.False(t, out.OK())
	assert.Equal(t, KindMissingResult, out.Err.Kind)
	// Validation failures never construct an execution context.
	assert.Zero(t, counting.constructions)
}

func TestExecuteMalformedSource(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), time.Second)

	out := eng.Execute(context.Background(), Request{
		Source:    "return 1 +;",
		ProjectID: "p1",
	})

	require.False(t, out.OK())
	assert.Equal(t, KindMalformedSource, out.Err.Kind)
	assert.NotEmpty(t, out.Err.Message)
}

func TestExecuteUnknownCapability(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), time.Second)

	out := eng.Execute(context.Background(), Request{
		Source:    `return require("unregistered-module");`,
		ProjectID: "p1",
	})

	require.False(t, out.OK())
	assert.Equal(t, KindNotFound, out.Err.Kind)
	assert.Equal(t, "capability unregistered-module not available in sandbox", out.Err.Message)
}

func TestExecuteCaughtCapabilityMissIsNotNotFound(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), time.Second)

	out := eng.Execute(context.Background(), Request{
		Source: `
			try { require("nope"); } catch (e) {}
			throw "different failure";
			return 1;`,
		ProjectID: "p1",
	})

	require.False(t, out.OK())
	assert.Equal(t, KindFaulted, out.Err.Kind)
	assert.Contains(t, out.Err.Message, "different failure")
}

func TestExecuteCapabilityCall(t *testing.T) {
	echo := &fakeFactory{
		name: "echo",
		instance: &fakeInstance{
			methods: []string{"ping"},
			call: func(_ context.Context, method string, args []any) (any, error) {
				require.Equal(t, "ping", method)
				return map[string]any{"args": args}, nil
			},
		},
	}
	eng, _ := newTestEngine(t, &fakeResolver{factories: map[string]capability.Factory{
		"echo": echo,
	}}, time.Second)

	out := eng.Execute(context.Background(), Request{
		Source:    `const echo = require("echo"); return echo.ping("a", 2);`,
		ProjectID: "p1",
	})

	require.True(t, out.OK(), "unexpected error: %v", out.Err)
	assert.Equal(t, 1, echo.constructions)
	assert.Equal(t, map[string]any{"args": []any{"a", float64(2)}}, out.Value)
}

func TestExecuteCapabilityFault(t *testing.T) {
	boom := &fakeFactory{
		name: "boom",
		instance: &fakeInstance{
			methods: []string{"explode"},
			call: func(_ context.Context, _ string, _ []any) (any, error) {
				return nil, errors.New("kaboom: rate limited")
			},
		},
	}
	eng, _ := newTestEngine(t, &fakeResolver{factories: map[string]capability.Factory{
		"boom": boom,
	}}, time.Second)

	out := eng.Execute(context.Background(), Request{
		Source:    `return require("boom").explode();`,
		ProjectID: "p1",
	})

	require.False(t, out.OK())
	assert.Equal(t, KindFaulted, out.Err.Kind)
	assert.Contains(t, out.Err.Message, "kaboom")
}

func TestExecuteTimeout(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), 100*time.Millisecond)

	start := time.Now()
	out := eng.Execute(context.Background(), Request{
		Source:    "while(true){}",
		ProjectID: "p1",
	})
	elapsed := time.Since(start)

	require.False(t, out.OK())
	assert.Equal(t, KindTimeout, out.Err.Kind)
	// Bounded overshoot: the interrupt lands well within scheduling slack.
	assert.Less(t, elapsed, 3*time.Second)

	// The process stays responsive to subsequent invocations.
	next := eng.Execute(context.Background(), Request{
		Source:    "return 1 + 1;",
		ProjectID: "p1",
	})
	require.True(t, next.OK())
	assert.Equal(t, float64(2), next.Value)
}

func TestExecuteTimeoutAbandonsCapabilityCall(t *testing.T) {
	recorded := false
	slow := &fakeFactory{
		name: "slow",
		instance: &fakeInstance{
			methods: []string{"wait", "record"},
			call: func(ctx context.Context, method string, _ []any) (any, error) {
				if method == "wait" {
					<-ctx.Done()
					return nil, ctx.Err()
				}
				recorded = true
				return nil, nil
			},
		},
	}
	eng, _ := newTestEngine(t, &fakeResolver{factories: map[string]capability.Factory{
		"slow": slow,
	}}, 100*time.Millisecond)

	out := eng.Execute(context.Background(), Request{
		Source:    `const s = require("slow"); s.wait(); s.record(); return "done";`,
		ProjectID: "p1",
	})

	// Deadline expiry wins; the fragment never reaches the call after the
	// abandoned one.
	require.False(t, out.OK())
	assert.Equal(t, KindTimeout, out.Err.Kind)
	assert.False(t, recorded)
}

func TestExecuteIdempotentForIdenticalRequests(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), time.Second)
	req := Request{
		Source:    `return { project: projectId, sum: 2 + 3 };`,
		ProjectID: "p1",
		RegionID:  "r1",
	}

	first := eng.Execute(context.Background(), req)
	second := eng.Execute(context.Background(), req)

	require.True(t, first.OK())
	require.True(t, second.OK())
	assert.Equal(t, first.Value, second.Value)
}

func TestExecuteNonSerializableResult(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), time.Second)

	out := eng.Execute(context.Background(), Request{
		Source:    "return function() {};",
		ProjectID: "p1",
	})

	require.False(t, out.OK())
	assert.Equal(t, KindNonSerializableResult, out.Err.Kind)
}

func TestExecuteCaughtMissRethrownAsEqualStringIsFaulted(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), time.Second)

	out := eng.Execute(context.Background(), Request{
		Source: `
			try { require("nope"); } catch (e) {}
			throw "capability nope not available in sandbox";
			return 1;`,
		ProjectID: "p1",
	})

	// An equal-looking string is not the resolution failure itself.
	require.False(t, out.OK())
	assert.Equal(t, KindFaulted, out.Err.Kind)
}

func TestExecuteRethrownCapabilityMissStaysNotFound(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), time.Second)

	out := eng.Execute(context.Background(), Request{
		Source: `
			let first;
			try { require("alpha"); } catch (e) { first = e; }
			try { require("beta"); } catch (e) {}
			throw first;
			return 1;`,
		ProjectID: "p1",
	})

	require.False(t, out.OK())
	assert.Equal(t, KindNotFound, out.Err.Kind)
	assert.Equal(t, "capability alpha not available in sandbox", out.Err.Message)
}

func TestExecuteNestedReturnMayProduceNothing(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), time.Second)

	out := eng.Execute(context.Background(), Request{
		Source:    "if (false) { return 1; }",
		ProjectID: "p1",
	})

	// Validation accepts the nested return; the run completes with null.
	require.True(t, out.OK(), "unexpected error: %v", out.Err)
	assert.Nil(t, out.Value)
}

func TestExecuteTerminatingLoopWithoutReturnCompletesNull(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), time.Second)

	out := eng.Execute(context.Background(), Request{
		Source:    "let i = 0; while (i < 3) { i++; }",
		ProjectID: "p1",
	})

	require.True(t, out.OK(), "unexpected error: %v", out.Err)
	assert.Nil(t, out.Value)
}

func TestExecuteConsoleCapture(t *testing.T) {
	log := zaptest.NewLogger(t)
	store := selection.NewStore(log, "r1")
	registry := capability.NewRegistry(log, capability.NewCredential(""))
	eng := New(log, registry, store, time.Second)

	out := eng.Execute(context.Background(), Request{
		Source:    `console.log("hello", 42); return true;`,
		ProjectID: "p1",
	})

	require.True(t, out.OK(), "unexpected error: %v", out.Err)
	assert.Equal(t, true, out.Value)
	assert.Equal(t, []string{"hello 42"}, out.Logs)
}

func TestExecuteConcurrentInvocationsAreIsolated(t *testing.T) {
	eng, _ := newTestEngine(t, emptyResolver(), time.Second)

	results := make(chan Outcome, 8)
	for i := 0; i < 8; i++ {
		go func(n int) {
			results <- eng.Execute(context.Background(), Request{
				Source:    "var x = region; return projectId;",
				ProjectID: string(rune('a' + n)),
				RegionID:  "r1",
			})
		}(i)
	}

	seen := map[any]bool{}
	for i := 0; i < 8; i++ {
		out := <-results
		require.True(t, out.OK(), "unexpected error: %v", out.Err)
		seen[out.Value] = true
	}
	assert.Len(t, seen, 8)
}
