// Package handlerregistry binds type tags to domain.Handler
// implementations, mirroring the original ReviewHandlerRegistry: a
// fixed set of handlers known at construction time, selected per item
// by the dispatcher at dispatch time.
package handlerregistry

import (
	"fmt"

	"review-dispatch/internal/domain"
)

// Registry resolves a type tag to the domain.Handler bound to it via
// Lookup; it does not invoke the handler itself, so the caller calls
// Handle on the result. It is immutable after construction: there is no
// Register method, because the original's registry is built once from
// a fixed handler list and never mutated at runtime.
type Registry struct {
	handlers map[string]domain.Handler
}

// New builds a Registry from handlers. Two handlers sharing the same
// TypeTag is a construction-time configuration error, not a runtime
// one: it is returned as an error rather than silently letting the
// last one win.
func New(handlers ...domain.Handler) (*Registry, error) {
	m := make(map[string]domain.Handler, len(handlers))
	for _, h := range handlers {
		tag := h.TypeTag()
		if tag == "" {
			return nil, fmt.Errorf("handlerregistry: handler %T has an empty type tag", h)
		}
		if _, exists := m[tag]; exists {
			return nil, fmt.Errorf("handlerregistry: duplicate handler registered for type tag %q", tag)
		}
		m[tag] = h
	}
	return &Registry{handlers: m}, nil
}

// MustNew is New, panicking on error. Intended for use at process
// startup, where a duplicate type tag is a deploy-time defect that
// should fail fast rather than surface as a runtime dispatch error.
func MustNew(handlers ...domain.Handler) *Registry {
	r, err := New(handlers...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the handler bound to typeTag, or a *domain.UnknownTypeError
// if none is bound. An unknown type tag is never fatal to the caller's
// stream; it is the caller's responsibility to route this to its error
// observer and move on to the next item.
func (r *Registry) Lookup(typeTag string) (domain.Handler, error) {
	h, ok := r.handlers[typeTag]
	if !ok {
		return nil, &domain.UnknownTypeError{TypeTag: typeTag}
	}
	return h, nil
}

// Size returns the number of distinct type tags bound in this
// registry. Exposed for the /stats admin endpoint and tests.
func (r *Registry) Size() int {
	return len(r.handlers)
}
