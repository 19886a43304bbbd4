// Package editor is the host-side proxy application code talks to.
//
// An Editor composes the installed extensions, exposes their instance
// methods through Call, and keeps the latest state reported by the sandbox.
// It owns the readiness barrier:
//
//	Constructing --Attach--> AwaitingReady --ready--> Ready
//	      \________________________\_______________\___Close--> Closed
//
// Commands issued before Ready are buffered and flushed in order when the
// ready signal arrives; afterwards they are sent immediately. State updates
// are ignored until Ready and are then shallow-merged into the snapshot.
//
// There is no result channel for commands and no ready timeout. Hosts that
// need a watchdog call WaitReady with a deadline.
package editor
