package responder

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type Factory func(ctx context.Context) (Responder, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string) (Responder, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "canned"
	}
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown responder: %s", name)
	}
	return f(ctx)
}
