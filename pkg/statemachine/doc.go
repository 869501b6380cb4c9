// Package statemachine provides a stateless transition table for entities
// whose current state is persisted elsewhere (a database row, a cached
// record). The table holds no current state: callers pass the stored state
// to Fire and persist the returned one.
//
//	lifecycle, err := statemachine.NewBuilder[Status, Status]().
//	    Permit(Queued, Sent, Sent).
//	    Permit(Sent, Delivered, Delivered).
//	    Terminal(Delivered).
//	    Build()
//
//	next, err := lifecycle.Fire(ctx, msg.Status, incoming)
//	if statemachine.IsNoTransitionAvailableError(err) {
//	    // stale or duplicate input, keep the stored state
//	}
//
// A Table is immutable after Build and safe for concurrent use.
package statemachine
