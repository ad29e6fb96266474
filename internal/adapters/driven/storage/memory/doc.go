// Package memory provides in-memory implementations of the driven
// storage ports. Used by tests and by ephemeral runs that do not need
// persistence across restarts.
package memory
