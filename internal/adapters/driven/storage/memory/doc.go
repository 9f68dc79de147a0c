// Package memory provides in-memory implementations of driven ports.
//
// The entry store backs ephemeral runs (--ephemeral) and tests. The config
// store backs tests. Nothing here survives the process.
package memory
