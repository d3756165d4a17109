// Package budget keeps conversational state inside a model's input-size
// limit. It provides token estimation (a cheap chars/4 proxy by default, with
// an optional tiktoken-backed counter), per-model-family budget profiles, a
// two-stage compression policy (summarize old turns, then evict oldest), and
// a caller-facing validation guard.
//
// Estimates are for budgeting, not hard limits: the documented contract is
// ceil(characters/4), which is deliberately conservative and deterministic.
package budget
