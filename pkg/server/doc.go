// Package server hosts a fixed set of process variables on a protocol
// engine.
//
// A Server is built from its variables, optionally configured with
// string options while Idle, and then started either in the calling
// goroutine (Start blocks until Stop) or in the background
// (StartAsDaemon returns a Daemon whose Bound channel reports the bind
// result).
//
// # Lifecycle
//
//	Idle -> Starting -> Running -> Stopping -> Stopped
//	          |
//	          +-> Idle (bind failed)
//
// Stopped is terminal. Configure is only valid while Idle, Stop only while
// Running.
package server
