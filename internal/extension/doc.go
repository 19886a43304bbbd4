// Package extension composes independently authored editor capabilities.
//
// Each capability is a Descriptor: a name, an optional engine plugin, the
// state keys and instance methods it contributes, and the message types it
// handles. Compose merges an ordered list of descriptors into a single
// Composition holding the engine plugin chain, the instance API, the
// message routes and the state merge.
//
// Contributions are declared up front so collisions are detected when the
// composition is built, never when a method is called. A collision is a
// *ConfigError and composition fails as a whole.
//
// The same Composition type serves both ends of the bridge. The host
// composes with a send function and gets the instance API and event routes.
// The sandbox composes without one and gets the plugin chain, the command
// routes and the state merge.
package extension
