package capability

import (
	"context"
	"fmt"
)

// Env carries the per-invocation values a capability instance is bound to.
// One Env belongs to exactly one sandbox invocation.
type Env struct {
	ProjectID string
	Region    string

	// Console receives output produced by the fragment's console capability.
	// Nil when the caller does not capture console output.
	Console *ConsoleBuffer
}

// Instance is a constructed capability as exposed into the sandbox. Methods
// lists the callable method names; Call dispatches one of them with
// positional arguments exported from the sandbox. Arguments and results are
// restricted to JSON-compatible values.
type Instance interface {
	Methods() []string
	Call(ctx context.Context, method string, args []any) (any, error)
}

// Factory produces capability instances on demand. New must not perform
// network I/O; it only wires clients to the credential handle and the Env.
type Factory interface {
	Name() string
	New(ctx context.Context, env Env) (Instance, error)
}

// NotFoundError reports a capability name the registry does not expose.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("capability %s not available in sandbox", e.Name)
}

// errNoMethod is the shared shape for unknown-method dispatch failures.
func errNoMethod(capability, method string) error {
	return fmt.Errorf("capability %s has no method %q", capability, method)
}

// stringArg extracts a required non-empty string argument.
func stringArg(args []any, i int, name string) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %s", name)
	}
	s, ok := args[i].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %s must be a non-empty string", name)
	}
	return s, nil
}

// numberArg extracts a required numeric argument. The sandbox exports
// integers as int64 and everything else numeric as float64.
func numberArg(args []any, i int, name string) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %s", name)
	}
	switch n := args[i].(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("argument %s must be a number, got %T", name, args[i])
	}
}
