// Package engine is the boundary to the rich-text editing engine that runs
// inside the sandbox.
//
// The engine itself is opaque: extensions hand it plugin definitions through
// Register and drive it with named commands. Register returns a Handle that
// the owning extension keeps; per-plugin state is only reachable through that
// handle, never through a process-wide key.
//
// Memory is a small in-memory engine that honours the same contract. It keeps
// a flat inline document (text runes with stored marks, plus atom nodes such
// as mentions), a selection, block attributes and undo history. It is used by
// tests, the headless CLI and the development host; production surfaces plug
// in a real engine behind the same interface.
package engine
