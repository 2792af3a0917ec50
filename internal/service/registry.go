package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/smartcity/intersection/internal/domain"
)

// ErrUnknownController is returned for a key no controller is registered under
var ErrUnknownController = errors.New("registry: unknown controller")

// Controller is the capability shared by every independently running
// controller: a status query and a frame-advancing worker loop.
type Controller interface {
	Key() string
	Status() domain.Status
	Run(ctx context.Context) error
}

// Registry holds controllers by stable key and the currently exposed mode.
// The selected mode is the only state the registry owns; controllers share nothing.
type Registry struct {
	mu          sync.RWMutex
	controllers map[string]Controller
	active      string

	wg sync.WaitGroup
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{controllers: make(map[string]Controller)}
}

// Register adds a controller. The first one registered becomes active.
func (r *Registry) Register(c Controller) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := c.Key()
	if _, exists := r.controllers[key]; exists {
		return fmt.Errorf("registry: duplicate controller %q", key)
	}
	r.controllers[key] = c
	if r.active == "" {
		r.active = key
	}
	return nil
}

// Get returns the controller registered under key
func (r *Registry) Get(key string) (Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.controllers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownController, key)
	}
	return c, nil
}

// Active returns the currently selected controller
func (r *Registry) Active() (Controller, error) {
	r.mu.RLock()
	key := r.active
	r.mu.RUnlock()
	return r.Get(key)
}

// ActiveKey returns the selected mode
func (r *Registry) ActiveKey() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// SetActive switches the exposed mode
func (r *Registry) SetActive(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.controllers[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownController, key)
	}
	r.active = key
	return nil
}

// Keys lists registered controller keys in order
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.controllers))
	for k := range r.controllers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Start launches one worker goroutine per controller
func (r *Registry) Start(ctx context.Context, onExit func(key string, err error)) {
	r.mu.RLock()
	controllers := make([]Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		controllers = append(controllers, c)
	}
	r.mu.RUnlock()

	for _, c := range controllers {
		r.wg.Add(1)
		go func(c Controller) {
			defer r.wg.Done()
			err := c.Run(ctx)
			if onExit != nil {
				onExit(c.Key(), err)
			}
		}(c)
	}
}

// Wait blocks until every worker started by Start has returned
func (r *Registry) Wait() {
	r.wg.Wait()
}
