// Package property implements observable values.
//
// The central type is Property, a mutable cell that notifies subscribers
// in FIFO order. Source is the read-only view handed out by actions for
// their enabled, executing and decision state. Derived sources are built
// with Const, Map, And and FirstDefined.
//
//	enabled := property.And(auth.IsEnabled(), fetch.IsEnabled())
//	cancel := enabled.Subscribe(func(v bool) { fmt.Println("enabled:", v) })
//	defer cancel()
package property
