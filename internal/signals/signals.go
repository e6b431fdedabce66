// Package signals is a namespace-scoped registry of persistence hooks.
// Stores send PreSave/PostSave/PreDelete/PostDelete for their namespace and
// the auditor asks which signals a namespace has wired.
package signals

import (
	"context"
	"sort"
	"sync"
)

// Signal names a persistence event.
type Signal string

const (
	PreSave    Signal = "pre_save"
	PostSave   Signal = "post_save"
	PreDelete  Signal = "pre_delete"
	PostDelete Signal = "post_delete"
)

// Handler reacts to a signal for one instance.
type Handler func(ctx context.Context, instance any)

// Registry holds handlers keyed by namespace and signal. The zero value is
// not usable; call NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]map[Signal][]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]map[Signal][]Handler)}
}

// Connect registers h for sig in namespace.
func (r *Registry) Connect(namespace string, sig Signal, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bySig, ok := r.handlers[namespace]
	if !ok {
		bySig = make(map[Signal][]Handler)
		r.handlers[namespace] = bySig
	}
	bySig[sig] = append(bySig[sig], h)
}

// Send calls every handler connected to sig in namespace, in connection order.
func (r *Registry) Send(ctx context.Context, namespace string, sig Signal, instance any) {
	r.mu.RLock()
	hs := append([]Handler(nil), r.handlers[namespace][sig]...)
	r.mu.RUnlock()
	for _, h := range hs {
		h(ctx, instance)
	}
}

// Signals returns the sorted names of the signals wired in namespace.
func (r *Registry) Signals(namespace string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for sig, hs := range r.handlers[namespace] {
		if len(hs) > 0 {
			out = append(out, string(sig))
		}
	}
	sort.Strings(out)
	return out
}
