package capability

import (
	"sort"

	"go.uber.org/zap"
)

// Registry is the fixed mapping from capability name to factory. It is
// populated once at construction and shared read-only by all invocations;
// there is no way to add, remove, or rebind entries afterwards.
type Registry struct {
	entries map[string]Factory
}

// NewRegistry builds the registry with the complete capability set: the
// Google Cloud client factories bound to the credential handle, the console
// output sink, and timer primitives.
func NewRegistry(logger *zap.Logger, cred *Credential) *Registry {
	factories := []Factory{
		&computeFactory{cred: cred},
		&storageFactory{cred: cred},
		&projectsFactory{cred: cred},
		&consoleFactory{},
		&timersFactory{},
	}

	entries := make(map[string]Factory, len(factories))
	for _, f := range factories {
		entries[f.Name()] = f
	}

	logger.Info("capability registry populated",
		zap.Strings("capabilities", names(entries)))

	return &Registry{entries: entries}
}

// Resolve returns the factory registered under name, or NotFoundError.
func (r *Registry) Resolve(name string) (Factory, error) {
	f, ok := r.entries[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return f, nil
}

// Names lists the registered capability names in sorted order.
func (r *Registry) Names() []string {
	return names(r.entries)
}

func names(entries map[string]Factory) []string {
	out := make([]string, 0, len(entries))
	for name := range entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
