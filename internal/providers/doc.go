// Package providers holds the host-side services the session bridge depends
// on.
//
// Available Providers:
//   - terminal: pseudo-terminal allocation, attributes, size and foreground
//     process group
//   - process: shell spawning, signal delivery and exit tracking
//
// Both satisfy the interfaces declared in internal/bridge, so the bridge can
// be driven by fakes in tests and by the local host in the daemon.
package providers
