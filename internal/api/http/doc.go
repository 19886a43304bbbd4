// Package http provides the REST handlers of the editor host.
//
// Endpoints:
//   - GET    /                   service banner
//   - GET    /health             manager stats and metric snapshot
//   - GET    /extensions         available and enabled bridges
//   - GET    /editor             web view document wired to /ws
//   - GET    /editors            mounted editors
//   - POST   /editors            mount a sandbox-backed editor
//   - GET    /editors/:id/state  last known state
//   - GET    /editors/:id/content  document HTML and text
//   - POST   /editors/:id/call   invoke an instance method
//   - POST   /editors/:id/focus  focus the editor
//   - DELETE /editors/:id        unmount
//
// Commands are asynchronous: call and focus answer 202 once the command
// is sent or buffered, and the resulting state arrives later.
package http
