package verify

import (
	"sync"

	"github.com/usbhost/usbhost-go/pkg/registry"
)

// LocalBinder binds to checkers living in the same process.
type LocalBinder struct {
	mu       sync.Mutex
	services map[registry.Component]Checker
	bindings map[*localBinding]struct{}
}

// NewLocalBinder creates an empty binder.
func NewLocalBinder() *LocalBinder {
	return &LocalBinder{
		services: make(map[registry.Component]Checker),
		bindings: make(map[*localBinding]struct{}),
	}
}

// Register makes checker available under service, replacing any previous
// registration.
func (b *LocalBinder) Register(service registry.Component, checker Checker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.services[service] = checker
}

// Unregister removes service. Live bindings to it are told they were
// disconnected.
func (b *LocalBinder) Unregister(service registry.Component) {
	b.mu.Lock()
	delete(b.services, service)
	var gone []*localBinding
	for lb := range b.bindings {
		if lb.service == service {
			gone = append(gone, lb)
			delete(b.bindings, lb)
		}
	}
	b.mu.Unlock()

	for _, lb := range gone {
		go lb.deliver(func() { lb.cb.disconnected() })
	}
}

// Bind implements Binder. OnConnected is delivered on a new goroutine.
func (b *LocalBinder) Bind(service registry.Component, cb Callbacks) (Binding, error) {
	b.mu.Lock()
	checker, ok := b.services[service]
	if !ok {
		b.mu.Unlock()
		return nil, ErrUnknownService
	}
	lb := &localBinding{owner: b, service: service, cb: cb}
	b.bindings[lb] = struct{}{}
	b.mu.Unlock()

	go lb.deliver(func() { lb.cb.connected(checker) })
	return lb, nil
}

// Bound returns the number of live bindings.
func (b *LocalBinder) Bound() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bindings)
}

type localBinding struct {
	owner   *LocalBinder
	service registry.Component
	cb      Callbacks

	mu      sync.Mutex
	unbound bool
}

// deliver runs fn unless the binding was released. Holding mu while the
// callback runs makes Unbind wait for a callback in progress.
func (lb *localBinding) deliver(fn func()) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lb.unbound {
		return
	}
	fn()
}

func (lb *localBinding) Unbind() {
	lb.mu.Lock()
	lb.unbound = true
	lb.mu.Unlock()

	lb.owner.mu.Lock()
	delete(lb.owner.bindings, lb)
	lb.owner.mu.Unlock()
}

// Compile-time interface satisfaction check.
var _ Binder = (*LocalBinder)(nil)
