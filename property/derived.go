package property

import "sync"

type constant[T any] struct{ v T }

// Const returns a Source that never changes.
func Const[T any](v T) Source[T] { return constant[T]{v: v} }

func (c constant[T]) Value() T { return c.v }

func (c constant[T]) Subscribe(fn func(T)) func() {
	fn(c.v)
	return func() {}
}

type mapped[A, B any] struct {
	src Source[A]
	fn  func(A) B
}

// Map derives a Source by applying fn to every value of src. The mapping is
// evaluated lazily on Value and per delivered notification.
func Map[A, B any](src Source[A], fn func(A) B) Source[B] {
	return mapped[A, B]{src: src, fn: fn}
}

func (m mapped[A, B]) Value() B { return m.fn(m.src.Value()) }

func (m mapped[A, B]) Subscribe(fn func(B)) func() {
	return m.src.Subscribe(func(a A) { fn(m.fn(a)) })
}

type conjunction struct {
	sources []Source[bool]
}

// And is true while every source is true. An empty And is always true.
// Subscribers are only notified when the combined value changes.
func And(sources ...Source[bool]) Source[bool] {
	return conjunction{sources: sources}
}

func (c conjunction) Value() bool {
	for _, s := range c.sources {
		if !s.Value() {
			return false
		}
	}
	return true
}

func (c conjunction) Subscribe(fn func(bool)) func() {
	var (
		ser     Serial
		mu      sync.Mutex
		stopped bool
		emitted bool
		last    bool
	)
	deliver := func() {
		ser.Do(func() {
			mu.Lock()
			if stopped {
				mu.Unlock()
				return
			}
			mu.Unlock()
			v := c.Value()
			if emitted && v == last {
				return
			}
			emitted, last = true, v
			fn(v)
		})
	}

	cancels := make([]func(), 0, len(c.sources))
	ser.Do(func() {
		for _, s := range c.sources {
			cancels = append(cancels, s.Subscribe(func(bool) { deliver() }))
		}
	})
	deliver()

	return func() {
		mu.Lock()
		stopped = true
		mu.Unlock()
		ser.Do(func() {
			for _, cancel := range cancels {
				cancel()
			}
		})
	}
}

// Serial runs submitted functions one at a time in submission order. A
// function submitted while another is running is queued and executed by the
// goroutine that is already draining, so nested submissions never deadlock.
// The zero value is ready to use.
type Serial struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

// Do runs fn, or queues it if another function is running.
func (s *Serial) Do(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()
		next()
		s.mu.Lock()
	}
	s.running = false
	s.mu.Unlock()
}
