// Package session provides transcript store implementations for the
// core.TranscriptStore interface.
//
// The in-memory store backs tests, examples and ephemeral demo hosts; the
// sqlite sub-package persists transcripts durably. Both preserve append
// order per session and return defensive copies, so a host can never mutate
// the engine's view of a transcript.
package session
