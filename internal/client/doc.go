// Package client implements the dashboard side of the live price stream.
//
// Controller owns one logical connection and drives it through an explicit state machine
// (Idle, Connecting, Open, Reconnecting, Exhausted, Closed). Every input - API calls, transport
// callbacks and retry timers - is an event handled by a single goroutine, so no two transitions
// of one controller ever run concurrently. Transports are pluggable; WebSocketTransport uses gorilla/websocket.
package client
