package testutil

import (
	"github.com/hupe1980/storymesh/core"
)

// RecordBuilder provides a fluent helper for constructing transcript records
// in tests. Chain only the parts you need; sensible defaults are applied.
// Example:
//
//	rec := NewRecordBuilder(1, "Hero1").Action(core.KindLookAround).Success("You see a tavern.").Build()
type RecordBuilder struct {
	rec core.Record
}

// NewRecordBuilder creates a builder for the given round and actor.
func NewRecordBuilder(round int, actor string) *RecordBuilder {
	return &RecordBuilder{rec: core.Record{
		Round: round,
		Actor: actor,
		Result: core.Result{
			Outcome:    core.OutcomeNeutral,
			Provenance: core.ProvenanceDeterministic,
		},
	}}
}

// Action attaches an action of the given kind (chainable).
func (b *RecordBuilder) Action(kind core.ActionKind) *RecordBuilder {
	b.rec.Action = &core.Action{Kind: kind, Actor: b.rec.Actor}
	return b
}

// Param sets a parameter on the attached action (chainable).
func (b *RecordBuilder) Param(key, value string) *RecordBuilder {
	if b.rec.Action != nil {
		action := b.rec.Action.WithParam(key, value)
		b.rec.Action = &action
	}
	return b
}

// Success sets a successful result with the given description (chainable).
func (b *RecordBuilder) Success(description string) *RecordBuilder {
	b.rec.Result.Description = description
	b.rec.Result.Outcome = core.OutcomeSuccess
	return b
}

// Failure sets a failed result with the given description (chainable).
func (b *RecordBuilder) Failure(description string) *RecordBuilder {
	b.rec.Result.Description = description
	b.rec.Result.Outcome = core.OutcomeFailure
	return b
}

// Fallback marks the result text as fallback content (chainable).
func (b *RecordBuilder) Fallback() *RecordBuilder {
	b.rec.Result.Provenance = core.ProvenanceFallback
	return b
}

// Delta sets a state-delta entry on the result (chainable).
func (b *RecordBuilder) Delta(key string, value any) *RecordBuilder {
	if b.rec.Result.StateDelta == nil {
		b.rec.Result.StateDelta = map[string]any{}
	}
	b.rec.Result.StateDelta[key] = value
	return b
}

// Build returns the assembled record.
func (b *RecordBuilder) Build() core.Record { return b.rec }
