// Package events is a small at-least-once domain event bus.
//
// Producers call Publisher.Publish with a value implementing Event. The
// event is serialized into an Envelope and appended to a Storage. A Worker
// claims envelopes, dispatches them by name to the Handler registered for
// that event type, acknowledges successes, retries failures with a backoff
// and moves envelopes that exhausted their attempts to a dead-letter list.
//
// Handlers are typed:
//
//	worker.RegisterHandlers(
//	    events.NewHandler(func(ctx context.Context, e NotificationCreated) error {
//	        return pipeline.Deliver(ctx, e)
//	    }),
//	)
//
// Two storages are provided: MemoryStorage for tests and single-process
// setups, and RedisStorage, which keeps pending and in-flight envelopes in
// sorted sets so several processes can share one stream.
//
// Delivery is at least once. Handlers must tolerate redelivery.
package events
