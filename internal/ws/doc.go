// Package ws connects editor web views over WebSocket.
//
// Each connection is the sandbox end of one editor's channel. The server
// writes injected instructions as text frames; the page evaluates them
// and sends back whatever the bridge posts through
// window.ReactNativeWebView.postMessage.
//
// Features:
//   - One editor per connection, unmounted when the socket closes
//   - Single writer goroutine, FIFO per connection
//   - Non-blocking injection into an unbounded queue; nothing is dropped
//     before Close
//   - Ping/pong keep-alive
//
// Frames (Server → Client):
//   - window.postMessage(<message>, "*"); the injected instruction
//
// Frames (Client → Server):
//   - {"type": "...", "payload": ...}: ready, state-update, custom events
//
// Example Usage:
//
//	handler := ws.NewHandler(manager, specFunc, logger, metrics)
//	router.GET("/ws", handler.HandleConnection)
package ws
