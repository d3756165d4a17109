// Package space provides implementations of core.SpaceStore and
// core.PlanStore, the persistence boundaries for mission workspaces and
// their plans. The orchestration core treats store failures as non-fatal, so
// any implementation here must be safe to call on a best-effort basis.
package space
