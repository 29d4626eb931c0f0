// Package app provides the application service layer.
//
// Turns ingress events into broadcasts and serves price history. Sits between the HTTP and
// Redis adapters and the domain; it depends on domain interfaces, not concrete implementations.
package app
