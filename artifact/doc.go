// Package artifact provides implementations of core.ArtifactStore, the
// space-scoped binary store used for oversized worker outputs and artifacts
// saved by tools.
package artifact
