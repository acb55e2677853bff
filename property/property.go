package property

import (
	"slices"
	"sync"
)

// Source is a read-only observable value.
type Source[T any] interface {
	// Value returns the current value.
	Value() T
	// Subscribe registers fn and immediately delivers the current value to
	// it. The returned function removes the subscription.
	Subscribe(fn func(T)) (cancel func())
}

// Options configures a Property.
type Options[T any] struct {
	// Equal, when set, suppresses a Set whose value equals the current one.
	Equal func(a, b T) bool
}

// SkipRepeats drops consecutive equal values of a comparable type.
func SkipRepeats[T comparable](o *Options[T]) {
	o.Equal = func(a, b T) bool { return a == b }
}

// SkipNilRepeats drops a nil value that follows another nil value.
// Non-nil values always propagate.
func SkipNilRepeats[T any](o *Options[*T]) {
	o.Equal = func(a, b *T) bool { return a == nil && b == nil }
}

type delivery[T any] struct {
	value   T
	targets []uint64
}

// Property is a mutable observable value safe for concurrent use.
type Property[T any] struct {
	mu       sync.Mutex
	value    T
	equal    func(a, b T) bool
	subs     map[uint64]func(T)
	nextID   uint64
	queue    []delivery[T]
	draining bool
	onClose  func()
	closed   bool
}

// New creates a Property holding initial.
func New[T any](initial T, optFns ...func(o *Options[T])) *Property[T] {
	opts := Options[T]{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Property[T]{
		value: initial,
		equal: opts.Equal,
		subs:  make(map[uint64]func(T)),
	}
}

// Value returns the current value.
func (p *Property[T]) Value() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Set stores v and notifies every subscriber. Set on a closed property is a
// no-op.
func (p *Property[T]) Set(v T) {
	p.mu.Lock()
	if p.closed || (p.equal != nil && p.equal(p.value, v)) {
		p.mu.Unlock()
		return
	}
	p.value = v
	targets := make([]uint64, 0, len(p.subs))
	for id := range p.subs {
		targets = append(targets, id)
	}
	slices.Sort(targets)
	p.queue = append(p.queue, delivery[T]{value: v, targets: targets})
	p.drainLocked()
}

// Subscribe implements Source.
func (p *Property[T]) Subscribe(fn func(T)) func() {
	p.mu.Lock()
	if p.closed {
		v := p.value
		p.mu.Unlock()
		fn(v)
		return func() {}
	}
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.queue = append(p.queue, delivery[T]{value: p.value, targets: []uint64{id}})
	p.drainLocked()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Close drops all subscribers and releases any upstream subscriptions held
// by a derived property. The value is frozen afterwards: Set is ignored and
// Subscribe only delivers the last value. Close is idempotent.
func (p *Property[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.subs = make(map[uint64]func(T))
	onClose := p.onClose
	p.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}

// drainLocked must be called with p.mu held and returns with it released.
// Only one goroutine drains at a time; others just enqueue.
func (p *Property[T]) drainLocked() {
	if p.draining {
		p.mu.Unlock()
		return
	}
	p.draining = true
	locked := true
	defer func() {
		if !locked {
			p.mu.Lock()
		}
		p.draining = false
		p.mu.Unlock()
	}()

	for len(p.queue) > 0 {
		d := p.queue[0]
		p.queue[0] = delivery[T]{}
		p.queue = p.queue[1:]
		for _, id := range d.targets {
			fn, ok := p.subs[id]
			if !ok {
				continue
			}
			p.mu.Unlock()
			locked = false
			fn(d.value)
			p.mu.Lock()
			locked = true
		}
	}
}
