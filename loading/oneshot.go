package loading

import (
	"context"
	"sync"

	"github.com/hupe1980/retryit/action"
	"github.com/hupe1980/retryit/logging"
	"github.com/hupe1980/retryit/property"
)

// DefaultBufferSize is the capacity of OneShot.States.
const DefaultBufferSize = 16

// Starter begins invocations. *action.Retryable implements it.
type Starter[In, Out any] interface {
	Start(ctx context.Context, in In) (*action.Invocation[Out], error)
}

// Options configures a OneShot.
type Options struct {
	Logger     logging.Logger
	BufferSize int
}

// OneShot folds a single invocation into a stream of States.
//
// Three slots hold the latest error, loading and content states. The
// published state is the first non-empty slot in that order, Loading when
// all are empty, and consecutive repeats are suppressed. The sequence always
// starts with Loading and ends with exactly one of Loaded or Ignored unless
// the OneShot is cancelled, in which case nothing more is published.
type OneShot[Out any] struct {
	inv    *action.Invocation[Out]
	logger logging.Logger

	errSlot     *property.Property[*State[Out]]
	loadSlot    *property.Property[*State[Out]]
	contentSlot *property.Property[*State[Out]]
	combined    *property.Property[*State[Out]]

	state  *property.Property[State[Out]]
	states chan State[Out]
	done   chan struct{}

	// owned by the fold goroutine
	last    State[Out]
	emitted bool

	mu         sync.Mutex
	cancelled  bool
	cancelCh   chan struct{}
	cancelOnce sync.Once
}

// Start begins exactly one invocation of s with input in and folds it. The
// caller must drain States or call Cancel.
func Start[In, Out any](ctx context.Context, s Starter[In, Out], in In, optFns ...func(o *Options)) (*OneShot[Out], error) {
	opts := Options{BufferSize: DefaultBufferSize}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.BufferSize < 0 {
		opts.BufferSize = 0
	}

	inv, err := s.Start(ctx, in)
	if err != nil {
		return nil, err
	}

	o := &OneShot[Out]{
		inv:         inv,
		logger:      opts.Logger,
		errSlot:     property.New[*State[Out]](nil),
		loadSlot:    property.New[*State[Out]](nil),
		contentSlot: property.New[*State[Out]](nil),
		state: property.New(Loading[Out](), func(po *property.Options[State[Out]]) {
			po.Equal = sameState[Out]
		}),
		states:   make(chan State[Out], opts.BufferSize),
		done:     make(chan struct{}),
		cancelCh: make(chan struct{}),
	}
	o.combined = property.FirstDefined[State[Out]](o.errSlot, o.loadSlot, o.contentSlot)

	go o.run()
	return o, nil
}

// ID returns the identifier of the underlying invocation.
func (o *OneShot[Out]) ID() string { return o.inv.ID() }

// Invocation returns the underlying invocation.
func (o *OneShot[Out]) Invocation() *action.Invocation[Out] { return o.inv }

// State publishes the latest folded state.
func (o *OneShot[Out]) State() property.Source[State[Out]] { return o.state }

// States delivers every folded state in order and is closed after the
// terminal state or after Cancel.
func (o *OneShot[Out]) States() <-chan State[Out] { return o.states }

// Done is closed once the fold has finished.
func (o *OneShot[Out]) Done() <-chan struct{} { return o.done }

// Cancel cancels the invocation. No state is published after Cancel
// returns: State keeps its last value, its subscribers are dropped and any
// pending decision becomes a no-op.
func (o *OneShot[Out]) Cancel() {
	o.cancelOnce.Do(func() { close(o.cancelCh) })
	o.mu.Lock()
	o.cancelled = true
	o.mu.Unlock()
	o.state.Close()
	o.inv.Cancel()
}

func (o *OneShot[Out]) isCancelled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

func (o *OneShot[Out]) run() {
	defer close(o.done)
	defer close(o.states)
	defer o.combined.Close()

	o.loadSlot.Set(ptr(Loading[Out]()))
	o.publish()

	loaded := false
	for n := range o.inv.Next() {
		switch n.Kind {
		case action.NextError:
			o.errSlot.Set(ptr(AwaitingDecision[Out](n.Decision)))
		case action.NextRetrying:
			o.errSlot.Set(nil)
		case action.NextValue:
			o.contentSlot.Set(ptr(Loaded(n.Value)))
			o.loadSlot.Set(nil)
			loaded = true
		}
		o.publish()
	}

	value, err := o.inv.Wait()
	switch o.inv.Outcome() {
	case action.OutcomeSucceeded:
		if loaded {
			return
		}
		o.contentSlot.Set(ptr(Loaded(value)))
		o.loadSlot.Set(nil)
	case action.OutcomeIgnored, action.OutcomeRejected:
		o.contentSlot.Set(ptr(Ignored[Out](action.Cause(err))))
		o.loadSlot.Set(nil)
		o.errSlot.Set(nil)
	default:
		o.logger.Debug("One-shot cancelled", "invocation_id", o.inv.ID())
		return
	}
	o.publish()
}

func (o *OneShot[Out]) publish() {
	s := Loading[Out]()
	if p := o.combined.Value(); p != nil {
		s = *p
	}
	if o.emitted && sameState(o.last, s) {
		return
	}
	if o.isCancelled() {
		return
	}
	o.emitted, o.last = true, s
	o.state.Set(s)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelled {
		return
	}
	select {
	case o.states <- s:
	case <-o.cancelCh:
	}
}

func ptr[T any](v T) *T { return &v }
