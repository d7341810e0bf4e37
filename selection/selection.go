package selection

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// DefaultRegion is used when no default is configured.
const DefaultRegion = "us-central1"

// Store is the process-wide selection of target project and region. Reads
// and the infrequent select/clear mutations may race with in-flight
// invocations; that is acceptable because an invocation captures its
// project and region once, at start.
type Store struct {
	mu            sync.RWMutex
	project       string
	region        string
	defaultRegion string
	logger        *zap.Logger
}

// NewStore creates a store with no project selected and the given default
// region.
func NewStore(logger *zap.Logger, defaultRegion string) *Store {
	if defaultRegion == "" {
		defaultRegion = DefaultRegion
	}
	return &Store{
		region:        defaultRegion,
		defaultRegion: defaultRegion,
		logger:        logger,
	}
}

// Project returns the selected project, if any.
func (s *Store) Project() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project, s.project != ""
}

// Region returns the selected region; never empty.
func (s *Store) Region() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.region
}

// Select records the target project and, when non-empty, the region. The
// caller is responsible for confirming the project exists before selecting
// it.
func (s *Store) Select(project, region string) error {
	if project == "" {
		return errors.New("project must not be empty")
	}

	s.mu.Lock()
	s.project = project
	if region != "" {
		s.region = region
	}
	selectedRegion := s.region
	s.mu.Unlock()

	s.logger.Info("selection updated",
		zap.String("project", project),
		zap.String("region", selectedRegion))
	return nil
}

// Clear removes the project selection and restores the default region.
func (s *Store) Clear() {
	s.mu.Lock()
	s.project = ""
	s.region = s.defaultRegion
	s.mu.Unlock()

	s.logger.Info("selection cleared",
		zap.String("region", s.defaultRegion))
}
