// Package bridge connects a remote terminal session to a local shell process.
//
// A Session owns one pseudo-terminal for its whole life. Starting a session
// runs, in order:
//   - Mode translation: the transport's negotiated mode table is applied onto
//     the terminal's default attributes (see package termmode)
//   - Provisioning: a terminal is allocated, its attributes and size are set
//   - Launch: the shell is spawned on the subordinate side and linked to the
//     terminal; the launcher's subordinate reference is closed
//   - Relay: two goroutines copy bytes channel→terminal and terminal→channel
//   - Resize: a window-change listener is registered with the transport
//
// Lifecycle:
//
//	Init → TerminalAllocated → ProcessLaunched → Running → Terminated
//	  └──────────┴───────────────→ Failed
//
// Termination is driven by the outbound relay observing end-of-stream on the
// controlling side, which happens once the shell exits. Destroy only delivers
// a hangup to the shell; teardown, the exit callback and the Terminated phase
// follow when the relay sees the shell go away. Teardown and hangup each run at
// most once no matter which trigger fires first.
//
// The Terminal Service and Process Manager are injected through Deps so every
// session works against its own handles and tests can substitute fakes.
package bridge
