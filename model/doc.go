// Package model defines the language-model boundary consumed by the
// orchestrator and by model-backed workers: a normalized Request/Response
// pair, a channel-based streaming Model interface, and a deterministic
// MockModel for tests.
//
// Provider adapters live in subpackages (model/anthropic, model/openai) and
// translate the normalized messages into each SDK's wire format. Everything
// above this boundary is provider agnostic.
package model
