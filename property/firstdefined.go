package property

type firstDefinedNode[T any] struct {
	active bool
	seen   bool
	gen    uint64
	value  *T
	cancel func()
}

type firstDefined[T any] struct {
	sources []Source[*T]
	nodes   []firstDefinedNode[T]
	out     *Property[*T]
	ser     Serial
	closed  bool
}

// FirstDefined yields the value of the first source, in argument order,
// whose current value is non-nil, or nil when every source is nil.
//
// Sources are subscribed lazily: source i+1 is only observed while sources
// 0..i are all nil, and its subscription is dropped as soon as an earlier
// source becomes non-nil. A nil result following another nil result is not
// re-emitted. With no sources the result is a constant nil.
//
// Close the returned Property to release all upstream subscriptions.
func FirstDefined[T any](sources ...Source[*T]) *Property[*T] {
	fd := &firstDefined[T]{
		sources: sources,
		nodes:   make([]firstDefinedNode[T], len(sources)),
		out:     New[*T](nil, SkipNilRepeats[T]),
	}
	fd.out.onClose = func() { fd.ser.Do(fd.close) }
	fd.ser.Do(func() { fd.activate(0) })
	return fd.out
}

// activate subscribes to source i. It runs on fd.ser.
func (fd *firstDefined[T]) activate(i int) {
	if fd.closed {
		return
	}
	if i >= len(fd.sources) {
		fd.publish()
		return
	}
	n := &fd.nodes[i]
	if n.active {
		return
	}
	n.active = true
	n.seen = false
	n.gen++
	n.value = nil
	gen := n.gen
	n.cancel = fd.sources[i].Subscribe(func(v *T) {
		fd.ser.Do(func() { fd.update(i, gen, v) })
	})
}

func (fd *firstDefined[T]) deactivateFrom(i int) {
	for j := i; j < len(fd.nodes); j++ {
		n := &fd.nodes[j]
		if !n.active {
			continue
		}
		n.active = false
		n.seen = false
		n.gen++
		n.value = nil
		if n.cancel != nil {
			n.cancel()
			n.cancel = nil
		}
	}
}

func (fd *firstDefined[T]) update(i int, gen uint64, v *T) {
	n := &fd.nodes[i]
	if fd.closed || !n.active || n.gen != gen {
		return
	}
	n.value = v
	n.seen = true
	if v != nil {
		fd.deactivateFrom(i + 1)
		fd.publish()
		return
	}
	// Downstream reports its own value once subscribed.
	if i+1 < len(fd.nodes) && !fd.nodes[i+1].active {
		fd.activate(i + 1)
	}
	fd.publish()
}

func (fd *firstDefined[T]) publish() {
	var result *T
	for i := range fd.nodes {
		n := &fd.nodes[i]
		if !n.active {
			break
		}
		if !n.seen {
			// The pending initial delivery of n publishes.
			return
		}
		if n.value != nil {
			result = n.value
			break
		}
	}
	if fd.out.Value() == result {
		return
	}
	fd.out.Set(result)
}

func (fd *firstDefined[T]) close() {
	if fd.closed {
		return
	}
	fd.deactivateFrom(0)
	fd.closed = true
}
