// Package surface mounts editor surfaces.
//
// A surface pairs a host-side editor with whatever runs the other end of
// its channel. Sandbox surfaces run the bridge runtime and an in-memory
// engine inside a script sandbox in this process; remote surfaces are
// attached to a transport such as a WebSocket to a real web view.
//
// Key Components:
//   - Surface: one editor and its sandbox
//   - Manager: surfaces keyed by editor ID (mount, attach, unmount)
//
// Example Usage:
//
//	manager := surface.NewManager(logger, metrics)
//	s, err := manager.Mount(ctx, surface.Spec{
//	    Descriptors: bridges.StarterKit,
//	    Editor:      editor.DefaultConfig(),
//	    Sandbox:     sandbox.DefaultConfig(),
//	})
//	if err != nil {
//	    return err
//	}
//	err = s.Editor().Call("toggleBold", nil)
package surface
