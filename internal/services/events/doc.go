// Package eventsvc bridges adapter job events to transport sinks.
//
// One adapter subscription is shared by every attached client. Each client
// gets a buffered channel between the adapter's delivery loop and its
// transport writes, so a slow SSE or WebSocket consumer sheds its own events
// instead of stalling delivery to the others.
package eventsvc
