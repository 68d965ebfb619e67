// Package scopes implements the process-wide scope registry (spec §4.2): a
// mutable map from scope name to human-readable description, populated at
// boot and safe for concurrent reads from every request goroutine.
package scopes

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// ErrInvalidScope is returned by Validate when a requested or default scope
// name is not registered, or is absent from a client's allow-list.
type ErrInvalidScope struct {
	Scope string
}

func (e *ErrInvalidScope) Error() string {
	return fmt.Sprintf("scopes: invalid_scope: %q", e.Scope)
}

// Definition pairs a scope name with its human-readable description.
type Definition struct {
	Name        string
	Description string
}

// Registry is a process-wide, mutex-guarded map from scope name to
// description. Per spec §9 ("if a global is used, guard with a mutex"),
// every access takes the RWMutex; reads (the common path, on every
// authorize/token request) use RLock.
type Registry struct {
	mu    sync.RWMutex
	scope map[string]string
}

// global is the single process-wide registry instance. The Grant Protocol
// Engine and administrative tooling both operate against it.
var global = New()

// Global returns the process-wide registry.
func Global() *Registry {
	return global
}

// New constructs an empty registry. Exported mainly for tests that want an
// isolated instance instead of mutating the global one.
func New() *Registry {
	return &Registry{scope: make(map[string]string)}
}

// Define registers or updates a batch of scope definitions.
func (r *Registry) Define(defs ...Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range defs {
		r.scope[d.Name] = d.Description
		log.WithFields(logrus.Fields{"scope": d.Name}).Debug("scope registered")
	}
}

// Reset clears the registry. Spec §4.2: "Resetting it is permitted only in
// tests."
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scope = make(map[string]string)
}

// IsRegistered reports whether name has a definition.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.scope[name]
	return ok
}

// Validate yields the effective scope list for a request (spec §4.2):
//   - if requested is empty, substitute defaults
//   - every name in the result must be registered, else ErrInvalidScope
//   - if clientAllowed is non-nil, every name must appear in it, else
//     ErrInvalidScope
//
// The result preserves input order so it can be echoed back verbatim in a
// token response.
func (r *Registry) Validate(requested []string, clientAllowed []string, defaults []string) ([]string, error) {
	effective := requested
	if len(effective) == 0 {
		effective = defaults
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var allowedSet map[string]struct{}
	if clientAllowed != nil {
		allowedSet = make(map[string]struct{}, len(clientAllowed))
		for _, a := range clientAllowed {
			allowedSet[a] = struct{}{}
		}
	}

	for _, name := range effective {
		if _, ok := r.scope[name]; !ok {
			return nil, &ErrInvalidScope{Scope: name}
		}
		if allowedSet != nil {
			if _, ok := allowedSet[name]; !ok {
				return nil, &ErrInvalidScope{Scope: name}
			}
		}
	}

	out := make([]string, len(effective))
	copy(out, effective)
	return out, nil
}

// Describe maps names to (name, description) pairs for display. Unknown
// names pass through with their description equal to the name itself; this
// call never fails, since it backs consent-screen rendering only.
func (r *Registry) Describe(names []string) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(names))
	for _, name := range names {
		desc, ok := r.scope[name]
		if !ok {
			desc = name
		}
		out = append(out, Definition{Name: name, Description: desc})
	}
	return out
}
