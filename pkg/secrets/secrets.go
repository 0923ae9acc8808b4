package secrets

import (
	"os"
	"strings"
)

// Store resolves credential identifiers to secret values. Implementations
// must be read-only after construction; the engine shares one store across
// concurrent requests without locking.
type Store interface {
	// Get returns the secret value for name. Blank values count as absent.
	Get(name string) (string, bool)
}

type envStore struct {
	values map[string]string
}

// FromEnvironment snapshots the process environment at startup. Later
// environment mutations are not observed.
func FromEnvironment() Store {
	values := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			values[k] = v
		}
	}
	return &envStore{values: values}
}

func (s *envStore) Get(name string) (string, bool) {
	v, ok := s.values[name]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Static wraps a fixed map, for tests and embedding.
func Static(values map[string]string) Store {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &envStore{values: copied}
}
