// Package broker defines the normalized contract between broker adapters and
// the read surface.
//
// # Overview
//
// A broker adapter turns one broker's native storage layout into the
// normalized model defined here: named queues with per-status counts, typed
// job records, rolling per-queue metrics, and a stream of semantic job
// lifecycle events. The Adapter interface is the whole consumer-facing
// surface; any broker whose data model reduces to "named queues, typed
// indexes per status, per-job record, mutation notifications" can be plugged
// in behind it.
//
// Failures are tagged: every operation returns a *Error whose Kind places the
// outcome in a closed set (invalid argument, not connected, not found, decode,
// already subscribed, cancelled, transport, internal). Consumers branch on
// KindOf/IsKind rather than string matching.
package broker
