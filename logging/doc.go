// Package logging provides a minimal logging interface and adapters for
// missionmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the scheduler, workflow engine and orchestrator use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - MeshLogger with space/mission context helpers and domain-specific
//     logging for worker calls, delegations and plan runs
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	orc := orchestrator.New(catalog, m, orchestrator.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
