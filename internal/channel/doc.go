// Package channel is the serialized, asynchronous link between the host and
// a sandbox.
//
// Outbound messages are rendered into a script and injected into the
// sandbox through a Transport; Send never waits for a result. Inbound
// messages arrive as raw bytes through Receive, are decoded and dispatched
// by type to routes, then to every observer in registration order. A
// message that does not decode is logged and dropped. A message whose type
// nobody routes is ignored.
//
// Receive runs handlers synchronously on the caller's goroutine. Transports
// must call it from a single goroutine so each direction stays FIFO.
package channel
