// Package engine is the protocol engine that serves process variables to
// network clients.
//
// An Engine holds the registered variables. Bind parses a string option
// map, starts the TCP listener and the beacons, attaches itself as the
// event sink of every variable and returns a Context. The Context
// dispatches Search, Read, Write, Subscribe and Unsubscribe requests from
// each connection's read loop and fans monitor events out to subscribers.
//
// # Outbound ordering
//
// Each connection owns one FIFO queue drained by a single writer
// goroutine. Responses and monitor events share that queue, so events for
// a subscription never precede its Subscribe response and never follow
// its Unsubscribe response. Posting an event only appends to the queue;
// when a connection has too many events pending, new events for it are
// dropped and counted.
//
// # Locking
//
// A variable posts events while holding its own lock, and PostEvent takes
// the Context's subscription lock and then a connection's queue lock. The
// request handlers therefore never call into a variable while holding
// either engine lock.
package engine
