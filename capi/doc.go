// Package capi exposes the index through a flat, handle-based call surface
// suitable for cgo exports and other foreign-function bridges.
//
// Handles come from an explicit Registry; there is no process-wide index.
// No call panics or returns a Go error across the boundary: every call
// reports a Status, and the message of the last failure is available from
// LastError. Result buffers are always supplied by the caller.
package capi
