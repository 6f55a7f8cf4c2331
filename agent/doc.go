// Package agent contains the concrete session participants built on the
// shared capability core. The package focuses on three concerns:
//
//  1. Shared agent plumbing — identity, append-only memory, default
//     acknowledgment (Core, embedded by every variant)
//  2. The world-owning Narrator — scene description, the action resolution
//     table, the between-rounds world tick
//  3. The character-role Actor — character sheet, compiled decision rules,
//     optional narration-backed flavor
//
// Design principles:
//   - Composition over hierarchy: variants embed Core, nothing extends anything
//   - Single-owner state: the Narrator alone mutates the world, an Actor alone
//     mutates its sheet and inventory
//   - Degradation over failure: narration calls are optional enrichment; the
//     deterministic path always produces a valid action or result
//
// Round sequencing lives in the engine package; this package only knows how
// to decide and resolve one turn at a time.
package agent
