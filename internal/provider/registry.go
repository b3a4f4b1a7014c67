package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/seenimoa/crossasset/pkg/models"
)

// Registry is a thread-safe mapping from series kind to the source serving it.
type Registry struct {
	mu      sync.RWMutex
	sources map[models.Kind]Source
}

// NewRegistry creates a registry holding the given sources.
func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{sources: make(map[models.Kind]Source)}
	for _, s := range sources {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a source. Registering a second source for the same kind replaces the first.
func (r *Registry) Register(s Source) error {
	info := s.Info()
	if info.Name == "" {
		return fmt.Errorf("source name cannot be empty")
	}
	if info.Kind == models.KindUnknown {
		return fmt.Errorf("source %q has no series kind", info.Name)
	}
	r.mu.Lock()
	r.sources[info.Kind] = s
	r.mu.Unlock()
	return nil
}

// For returns the source serving kind.
func (r *Registry) For(kind models.Kind) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[kind]
	if !ok {
		return nil, &ErrSourceNotFound{Kind: kind}
	}
	return s, nil
}

// List returns info about all registered sources, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.sources))
	for _, s := range r.sources {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
