// Package core provides the foundational domain types and interfaces used by
// StoryMesh. It defines the core abstractions for:
//
//   - Agents (narrator and actor participants in a session)
//   - Events (immutable memory and communication records)
//   - Actions and Results (the narrative exchange vocabulary)
//   - WorldState (single-owner mutable state with read-only snapshots)
//   - Records (the ordered, host-observable transcript units)
//   - Pluggable transcript stores
//
// The package intentionally keeps implementation concerns (persistence, round
// orchestration, concrete agents, narration backends) out of scope, exposing
// small interfaces to enable custom backends and extensions. All exported
// identifiers include concise documentation to aid discoverability and
// external consumption.
package core
