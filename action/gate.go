package action

import (
	"sync"

	"github.com/hupe1980/retryit/property"
)

// gate tracks the busy flag of an action and publishes the derived enabled
// and executing properties. Publications run on a serial queue and read the
// latest state when they run, so enabled is always lowered before executing
// rises and raised only after executing falls.
type gate struct {
	mu        sync.Mutex
	busy      bool
	enabledIf property.Source[bool]

	enabled   *property.Property[bool]
	executing *property.Property[bool]
	ser       property.Serial
}

func newGate(enabledIf property.Source[bool]) *gate {
	if enabledIf == nil {
		enabledIf = property.Const(true)
	}
	g := &gate{
		enabledIf: enabledIf,
		enabled:   property.New(enabledIf.Value(), property.SkipRepeats[bool]),
		executing: property.New(false, property.SkipRepeats[bool]),
	}
	enabledIf.Subscribe(func(bool) { g.publish() })
	return g
}

// acquire marks the gate busy if it is currently enabled.
func (g *gate) acquire() bool {
	g.mu.Lock()
	if g.busy || !g.enabledIf.Value() {
		g.mu.Unlock()
		return false
	}
	g.busy = true
	g.mu.Unlock()

	g.publish()
	return true
}

func (g *gate) release() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()

	g.publish()
}

func (g *gate) publish() {
	g.ser.Do(func() {
		g.mu.Lock()
		busy := g.busy
		g.mu.Unlock()

		if busy {
			g.enabled.Set(false)
			g.executing.Set(true)
			return
		}
		g.executing.Set(false)
		g.enabled.Set(g.enabledIf.Value())
	})
}
