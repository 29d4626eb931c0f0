// Package broadcast implements the server-side connection registry using the actor pattern.
//
// A single goroutine owns the set of registered connections and processes commands from a channel (no mutexes).
// Broadcast encodes an envelope once and hands the same bytes to every connection's writer goroutine.
// A failed write or a full send buffer drops only that connection; fan-out to the others continues.
package broadcast
