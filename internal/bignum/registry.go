package bignum

import (
	"fmt"
	"sort"
	"sync"
)

// Factory is an interface for obtaining Backend instances by name.
// It allows for flexible backend registration, enabling optional backends
// (such as the gmp build) to plug themselves in at init time.
type Factory interface {
	// Create creates a new Backend instance by name, bypassing the cache.
	// Returns an error if no such backend is registered.
	Create(name string) (Backend, error)

	// Get returns the Backend registered under name.
	// Returns an error if no such backend is registered.
	Get(name string) (Backend, error)

	// List returns a sorted list of registered backend names.
	List() []string

	// Register adds a new backend to the factory.
	Register(name string, creator func() Backend) error

	// Has checks whether a backend with the given name is registered.
	Has(name string) bool
}

// DefaultFactory is the default implementation of Factory.
// It maintains a thread-safe registry of backend creators and caches
// Backend instances for reuse: a process configures one working precision,
// so every caller asking for "big" must observe the same instance.
type DefaultFactory struct {
	mu       sync.RWMutex
	creators map[string]func() Backend
	backends map[string]Backend
}

// NewDefaultFactory creates a new DefaultFactory with the always-available
// backends pre-registered.
//
// Pre-registered backends:
//   - "big": math/big binary floating point
//   - "apd": cockroachdb/apd decimal floating point
//
// The "gmp" backend registers itself from an init function when the
// project is built with the gmp build tag.
func NewDefaultFactory() *DefaultFactory {
	f := &DefaultFactory{
		creators: make(map[string]func() Backend),
		backends: make(map[string]Backend),
	}

	_ = f.Register("big", func() Backend { return &bigBackend{} })
	_ = f.Register("apd", func() Backend { return &apdBackend{} })

	return f
}

// Register adds a new backend type to the factory.
// The creator function is called lazily when the backend is first requested.
// If a backend with the same name already exists, it is replaced.
func (f *DefaultFactory) Register(name string, creator func() Backend) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creators[name] = creator
	delete(f.backends, name)
	return nil
}

// Create creates a new Backend instance by name.
// Unlike Get, this always returns a fresh instance without caching, so the
// caller is free to configure its own working precision. Comparison runs
// and tests use this; a normal run shares the cached instance from Get.
func (f *DefaultFactory) Create(name string) (Backend, error) {
	f.mu.RLock()
	creator, ok := f.creators[name]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown arithmetic backend: %s", name)
	}
	return creator(), nil
}

// Get returns the Backend instance registered under name.
// Instances are cached and reused for subsequent calls with the same name.
//
// Returns an error if the backend is not registered, which for "gmp"
// also means the binary was built without the gmp build tag.
func (f *DefaultFactory) Get(name string) (Backend, error) {
	f.mu.RLock()
	if b, exists := f.backends[name]; exists {
		f.mu.RUnlock()
		return b, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring the write lock
	if b, exists := f.backends[name]; exists {
		return b, nil
	}

	creator, ok := f.creators[name]
	if !ok {
		return nil, fmt.Errorf("unknown arithmetic backend: %s", name)
	}

	b := creator()
	f.backends[name] = b
	return b, nil
}

// List returns a sorted list of all registered backend names.
func (f *DefaultFactory) List() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks if a backend with the given name is registered.
func (f *DefaultFactory) Has(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, exists := f.creators[name]
	return exists
}

// MustGet is like Get but panics if the backend is not found.
// Useful in initialization code where a missing backend is a
// programming error rather than a user input problem.
func (f *DefaultFactory) MustGet(name string) Backend {
	b, err := f.Get(name)
	if err != nil {
		panic(fmt.Sprintf("bignum: required backend not found: %s", name))
	}
	return b
}

// globalFactory is the default global factory instance.
var globalFactory = NewDefaultFactory()

// GlobalFactory returns the global factory instance.
// This is a convenience for applications that don't need multiple
// factory instances.
func GlobalFactory() *DefaultFactory {
	return globalFactory
}

// RegisterBackend registers a backend in the global factory.
// Optional backends call this from init functions.
func RegisterBackend(name string, creator func() Backend) error {
	return globalFactory.Register(name, creator)
}
