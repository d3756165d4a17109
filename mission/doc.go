// Package mission provides MissionStore implementations. A mission is a
// user's standing intent for a space; the store keeps the history of
// missions per space and tracks which one is currently active.
package mission
