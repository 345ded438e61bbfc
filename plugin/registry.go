package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrRegistryClosed is returned by Register outside the registration window.
var ErrRegistryClosed = errors.New("action registry is closed for registration")

// ActionRegistry maps action names to handlers for one plugin instance.
//
// The registry only accepts registrations while the instance is
// initializing. Lookups are safe from any number of goroutines.
type ActionRegistry struct {
	mu         sync.RWMutex
	handlers   map[string]Handler
	open       bool
	onRegister func(name string, replaced bool)
}

// NewActionRegistry returns an empty registry that is open for registration.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{
		handlers: make(map[string]Handler),
		open:     true,
	}
}

func newSealedRegistry() *ActionRegistry {
	return &ActionRegistry{handlers: make(map[string]Handler)}
}

// Register binds name to h. Registering an existing name replaces the
// previous handler.
func (r *ActionRegistry) Register(name string, h Handler) error {
	if name == "" {
		return fmt.Errorf("action name cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("handler for action %q cannot be nil", name)
	}

	r.mu.Lock()
	if !r.open {
		r.mu.Unlock()
		return fmt.Errorf("register %q: %w", name, ErrRegistryClosed)
	}
	_, replaced := r.handlers[name]
	r.handlers[name] = h
	notify := r.onRegister
	r.mu.Unlock()

	if notify != nil {
		notify(name, replaced)
	}
	return nil
}

// RegisterFunc is Register for handlers that only return data.
func (r *ActionRegistry) RegisterFunc(name string, fn DataFunc) error {
	if fn == nil {
		return fmt.Errorf("handler for action %q cannot be nil", name)
	}
	return r.Register(name, fn.Handler())
}

// Lookup returns the handler bound to name.
func (r *ActionRegistry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Has reports whether name is registered.
func (r *ActionRegistry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered action names in sorted order.
func (r *ActionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered actions.
func (r *ActionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Clear removes every registration and closes the registry.
func (r *ActionRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string]Handler)
	r.open = false
}

func (r *ActionRegistry) setOpen(open bool) {
	r.mu.Lock()
	r.open = open
	r.mu.Unlock()
}

func (r *ActionRegistry) setNotify(fn func(name string, replaced bool)) {
	r.mu.Lock()
	r.onRegister = fn
	r.mu.Unlock()
}
