// Package narration defines the provider-agnostic boundary to the
// text-generation backend used for scene descriptions, NPC dialog and actor
// flavor text.
//
// Core goals:
//   - Keep the Service interface minimal: one prompt in, one completion out
//   - Classify failures into the module's error taxonomy (timeout vs error)
//   - Make degradation explicit: GenerateOr always yields usable text plus
//     its provenance, so a dead backend can never stall a session
//   - Facilitate lightweight mocking for tests (MockService)
//
// Providers (e.g. OpenAI, Anthropic) implement the Service interface in
// sub-packages so higher layers (agents, engine) remain decoupled from
// vendor SDKs. LimitedService adds request pacing and call caps on top of
// any backend.
package narration
