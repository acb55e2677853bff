// Package loading folds a retryable invocation into a single observable
// LoadingState: Loading, AwaitingDecision, Loaded or Ignored.
//
// The fold keeps the error, loading and content slots separate and derives
// the published state with property.FirstDefined, so a pending decision
// always wins over a running attempt, which wins over a produced value.
//
//	shot, err := loading.Start[string, Profile](ctx, retryable, "user-42")
//	if err != nil {
//		return err
//	}
//	for s := range shot.States() {
//		switch s.Kind {
//		case loading.KindAwaitingDecision:
//			s.Decision.Retry()
//		case loading.KindLoaded:
//			render(s.Value)
//		}
//	}
package loading
