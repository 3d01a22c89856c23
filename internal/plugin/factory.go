package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/pilot-core/internal/controller"
)

// Constructor builds a new controller instance. It may fail, for example
// when the implementation cannot acquire what it needs to exist at all;
// failed construction leaves nothing registered.
type Constructor func() (controller.Controller, error)

// Factory is a registry of controller constructors keyed by type name.
// It implements controller.Factory.
type Factory struct {
	mu    sync.RWMutex
	types map[string]Constructor
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{
		types: make(map[string]Constructor),
	}
}

// Register adds a constructor under the given type name.
// Registering a duplicate type name or a nil constructor fails.
func (f *Factory) Register(typeName string, ctor Constructor) error {
	if typeName == "" {
		return fmt.Errorf("%w: empty type name", ErrInvalidType)
	}
	if ctor == nil {
		return fmt.Errorf("%w: nil constructor for %q", ErrInvalidType, typeName)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.types[typeName]; exists {
		return fmt.Errorf("%w: %q", ErrTypeExists, typeName)
	}
	f.types[typeName] = ctor
	return nil
}

// MustRegister is like Register but panics on error. Intended for wiring at
// startup where a duplicate registration is a programming mistake.
func (f *Factory) MustRegister(typeName string, ctor Constructor) {
	if err := f.Register(typeName, ctor); err != nil {
		panic(err)
	}
}

// Instantiate returns a new controller for the given type name.
//
// A panicking constructor is recovered and reported as a construction
// failure rather than taking the process down.
func (f *Factory) Instantiate(typeName string) (c controller.Controller, err error) {
	f.mu.RLock()
	ctor, ok := f.types[typeName]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}

	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = fmt.Errorf("%w: %q: panic: %v", ErrConstructionFailed, typeName, r)
		}
	}()

	c, err = ctor()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrConstructionFailed, typeName, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %q: constructor returned nil", ErrConstructionFailed, typeName)
	}
	return c, nil
}

// Types returns the registered type names in sorted order.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.types))
	for name := range f.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
