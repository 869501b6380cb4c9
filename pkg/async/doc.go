// Package async runs functions in goroutines and hands back typed futures.
//
// A panic inside the function is recovered and surfaced as a *PanicError from
// Await, so one misbehaving task cannot take the process down. Settle waits
// for a batch of futures and reports every outcome in input order, which is
// what fan-out callers need when partial failure is expected.
package async
