package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ConsoleBuffer collects console output produced by one sandbox invocation.
// Lines are also mirrored to the application logger at debug level. Safe for
// concurrent use.
type ConsoleBuffer struct {
	mu     sync.Mutex
	lines  []string
	logger *zap.Logger
}

// NewConsoleBuffer creates an empty buffer mirroring to logger.
func NewConsoleBuffer(logger *zap.Logger) *ConsoleBuffer {
	return &ConsoleBuffer{logger: logger}
}

func (b *ConsoleBuffer) append(level, line string) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Debug("sandbox console output",
			zap.String("level", level),
			zap.String("line", line))
	}
}

// Lines returns a copy of all collected output lines.
func (b *ConsoleBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// consoleFactory exposes the per-invocation output sink as a capability.
type consoleFactory struct{}

func (f *consoleFactory) Name() string { return "console" }

func (f *consoleFactory) New(_ context.Context, env Env) (Instance, error) {
	if env.Console == nil {
		return nil, errors.New("console sink not attached to this invocation")
	}
	return &consoleInstance{buf: env.Console}, nil
}

type consoleInstance struct {
	buf *ConsoleBuffer
}

func (c *consoleInstance) Methods() []string {
	return []string{"log", "warn", "error"}
}

func (c *consoleInstance) Call(_ context.Context, method string, args []any) (any, error) {
	switch method {
	case "log", "warn", "error":
		c.buf.append(method, formatLine(args))
		return nil, nil
	default:
		return nil, errNoMethod("console", method)
	}
}

func formatLine(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return strings.Join(parts, " ")
}
