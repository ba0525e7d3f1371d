// Package driving provides interfaces for user-facing adapters
// (primary/inbound ports). The CLI drives the core through these.
package driving
