// Package directory resolves desk ids to display names for presentation.
package directory

import (
	"sort"
	"sync"
)

// Directory maps desk ids to display names. Lookups never fail; an
// unknown desk has no name.
type Directory interface {
	DisplayName(desk string) (string, bool)
}

// Static is an in-memory Directory, usually built from config.
type Static struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewStatic copies entries into a new Static directory.
func NewStatic(entries map[string]string) *Static {
	names := make(map[string]string, len(entries))
	for desk, name := range entries {
		names[desk] = name
	}
	return &Static{names: names}
}

// DisplayName returns the name registered for desk.
func (s *Static) DisplayName(desk string) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.names[desk]
	return name, ok
}

// Set registers or replaces a display name.
func (s *Static) Set(desk, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[desk] = name
}

// Desks returns the registered desk ids in sorted order.
func (s *Static) Desks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.names))
	for desk := range s.names {
		out = append(out, desk)
	}
	sort.Strings(out)
	return out
}

// Label returns "name (desk)" when a name is known, otherwise the desk id.
func Label(d Directory, desk string) string {
	if d == nil {
		return desk
	}
	if name, ok := d.DisplayName(desk); ok && name != "" {
		return name + " (" + desk + ")"
	}
	return desk
}
