// Package state implements the process-wide SharedState: an immutable
// config snapshot plus a frozen, per-model readiness map with lock-free
// reads.
package state

import (
	"sync/atomic"

	"github.com/universal-ai-tools/predictord/internal/config"
)

// SharedState is reachable by all front-end handlers and workers via a
// shared pointer. The set of keys in ready is fixed at construction time
// and never changes; only the per-key atomic value is mutated.
type SharedState struct {
	config *config.Config
	ready  map[string]*atomic.Bool
}

// New builds a SharedState with every configured model initialized to
// not-ready. The readiness map is frozen from this point on.
func New(cfg *config.Config) *SharedState {
	ready := make(map[string]*atomic.Bool, len(cfg.Models))
	for _, m := range cfg.Models {
		ready[m.Name] = &atomic.Bool{}
	}
	return &SharedState{config: cfg, ready: ready}
}

// Config returns the immutable configuration snapshot.
func (s *SharedState) Config() *config.Config {
	return s.config
}

// SetReady publishes a readiness transition for a configured model. It is
// a no-op for unknown names, since the map is frozen and never grows.
func (s *SharedState) SetReady(name string, ready bool) {
	if flag, ok := s.ready[name]; ok {
		flag.Store(ready)
	}
}

// IsReady reports whether name's worker has completed loading. Unknown
// names report false rather than panicking.
func (s *SharedState) IsReady(name string) bool {
	flag, ok := s.ready[name]
	if !ok {
		return false
	}
	return flag.Load()
}

// KnownModel reports whether name is a configured model, independent of
// its readiness.
func (s *SharedState) KnownModel(name string) bool {
	_, ok := s.ready[name]
	return ok
}

// AllReady reports whether every configured model is ready. This is the
// value backing GET /ready.
func (s *SharedState) AllReady() bool {
	for _, flag := range s.ready {
		if !flag.Load() {
			return false
		}
	}
	return true
}
