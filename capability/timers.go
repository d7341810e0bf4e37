package capability

import (
	"context"
	"fmt"
	"time"
)

// timersFactory exposes timer primitives. Sleeping observes the invocation
// context, so a sleeping fragment unwinds as soon as the deadline expires.
type timersFactory struct{}

func (f *timersFactory) Name() string { return "timers" }

func (f *timersFactory) New(_ context.Context, _ Env) (Instance, error) {
	return &timersInstance{}, nil
}

type timersInstance struct{}

func (t *timersInstance) Methods() []string {
	return []string{"sleep", "now"}
}

func (t *timersInstance) Call(ctx context.Context, method string, args []any) (any, error) {
	switch method {
	case "sleep":
		ms, err := numberArg(args, 0, "milliseconds")
		if err != nil {
			return nil, err
		}
		if ms < 0 {
			return nil, fmt.Errorf("sleep duration must not be negative, got %v", ms)
		}
		timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		}
	case "now":
		return time.Now().UnixMilli(), nil
	default:
		return nil, errNoMethod("timers", method)
	}
}
