// Package driving defines interfaces that external actors (CLI, HTTP, MCP,
// queue consumers) use to interact with core services.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// Driving adapters call these interfaces; core services implement them.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package, driven ports
package driving
