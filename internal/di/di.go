// Package di provides a minimal service container for module wiring.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	// Get returns a registered service by token, or nil if absent.
	Get(token string) any
	// MustGet returns a registered service by token and panics if absent.
	MustGet(token string) any
}

// Container is the write side of the container, used during module registration.
type Container interface {
	ServiceRegistry
	// Register stores a service under the given token.
	Register(token string, service any)
}

type container struct {
	mu       sync.Mutex
	services map[string]any
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{services: make(map[string]any)}
}

func (c *container) Register(token string, service any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[token] = service
}

func (c *container) Get(token string) any {
	c.mu.Lock()
	entry := c.services[token]
	c.mu.Unlock()

	// Lazy factories are resolved on first access. The resolved instance
	// replaces the factory so every caller sees the same service.
	if lf, ok := entry.(*lazyFactory); ok {
		svc := lf.resolve(c)
		c.mu.Lock()
		c.services[token] = svc
		c.mu.Unlock()
		return svc
	}
	return entry
}

func (c *container) MustGet(token string) any {
	svc := c.Get(token)
	if svc == nil {
		panic(fmt.Sprintf("di: service %q not registered", token))
	}
	return svc
}

// lazyFactory defers service construction until first Get.
type lazyFactory struct {
	once sync.Once
	fn   func(ServiceRegistry) any
	svc  any
}

func (lf *lazyFactory) resolve(sr ServiceRegistry) any {
	lf.once.Do(func() {
		lf.svc = lf.fn(sr)
	})
	return lf.svc
}

// Token is a typed handle for a registered service.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token with a unique name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the token's registration key.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a lazily-constructed service under a typed token.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.Register(token.name, &lazyFactory{fn: func(sr ServiceRegistry) any {
		return factory(sr)
	}})
}

// GetToken fetches a service by its typed token.
func GetToken[T any](r ServiceRegistry, token Token[T]) T {
	svc, ok := r.MustGet(token.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", token.name))
	}
	return svc
}

// Resolve fetches a service by raw token name and asserts its concrete type.
func Resolve[T any](r ServiceRegistry, token string) T {
	svc, ok := r.MustGet(token).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", token))
	}
	return svc
}
