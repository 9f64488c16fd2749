// Package bull implements the broker.Adapter contract for the BullMQ-on-Redis
// storage layout.
//
// # Overview
//
// BullMQ keeps a queue's state in five index structures plus one record per
// job, all under a shared prefix (default "bull"):
//   - bull:<q>:meta              queue metadata record
//   - bull:<q>:wait, :active     lists of job ids, head = next to run
//   - bull:<q>:completed, :failed, :delayed
//     ordered sets of job ids, score = timestamp in ms
//   - bull:<q>:<id>              job record (data, opts, returnvalue,
//     stacktrace, failedReason, timestamp, processedOn, finishedOn, delay,
//     attemptsMade)
//
// The adapter treats this layout as an external wire format: Discover scans
// for meta keys, job status is reconstructed by probing the five indexes,
// metrics are computed from a bounded sample of termination timestamps, and
// Redis keyspace notifications are translated into semantic job lifecycle
// events fanned out to registered listeners.
//
// # Connections
//
// The adapter owns exactly two connections: the command connection opened by
// Connect and a subscriber connection created lazily at first Subscribe.
// Both lifetimes are strictly contained in the Connect/Disconnect pair.
// Subscribing requires the broker to emit keyspace events (K plus the list,
// zset, and hash categories in notify-keyspace-events).
package bull
