// Package bridge is the sandbox half of the editor bridge.
//
// A Runtime lives next to the engine inside the sandbox. Start reads the
// bootstrap, activates the whitelisted extensions, registers their engine
// plugins in chain order and keeps each returned handle for its owning
// extension. It then applies the initial content and reports ready
// followed by the first state snapshot.
//
// Commands from the host are dispatched to the extensions that declared
// them; focus is handled by the runtime itself. Every engine update
// produces a state-update built from the extensions' state contributors.
//
// Mount wires a Runtime into a goja realm: it reads the bootstrap globals,
// listens for window messages and posts back through
// window.ReactNativeWebView.postMessage.
package bridge
