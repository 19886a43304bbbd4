// Package protocol defines the wire format shared by the host and the
// sandboxed editing surface.
//
// Every message crossing the boundary, in either direction, is a JSON object
//
//	{"type": "<string>", "payload": <any JSON value, optional>}
//
// Host to sandbox messages are rendered as an injected instruction
// (see Script). Sandbox to host messages arrive as serialized strings and are
// parsed with Decode. Unknown types are not an error: receivers ignore them.
//
// Two inbound types are built in and always handled by the host:
//   - ready: the sandbox finished initializing
//   - state-update: a full or partial state snapshot keyed by state key
//
// The Bootstrap type describes the one-time globals installed in the sandbox
// before its document scripts run.
package protocol
