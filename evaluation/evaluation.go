// Package evaluation folds a session transcript into aggregate metrics a
// host can render or assert on: how many rounds ran, who acted how often,
// how resolutions went, and how often the narration service degraded.
package evaluation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/storymesh/core"
)

// Summary aggregates one session's record stream.
type Summary struct {
	// Scene is the opening scene description, if the transcript has one.
	Scene string
	// Rounds is the highest round number observed.
	Rounds int
	// Turns counts the non-scene records.
	Turns int
	// TurnsByActor counts turns per acting agent.
	TurnsByActor map[string]int
	// Outcomes counts results per outcome shading.
	Outcomes map[core.Outcome]int
	// Provenance counts results per text origin. Fallback entries measure
	// how often the narration service degraded.
	Provenance map[core.Provenance]int
}

// Fallbacks returns how many results carried fallback text.
func (s Summary) Fallbacks() int { return s.Provenance[core.ProvenanceFallback] }

// Generated returns how many results carried service-generated text.
func (s Summary) Generated() int { return s.Provenance[core.ProvenanceGenerated] }

// String renders the summary as a short human-readable block.
func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "rounds: %d, turns: %d\n", s.Rounds, s.Turns)

	actors := make([]string, 0, len(s.TurnsByActor))
	for name := range s.TurnsByActor {
		actors = append(actors, name)
	}
	sort.Strings(actors)
	for _, name := range actors {
		fmt.Fprintf(&sb, "  %s: %d turns\n", name, s.TurnsByActor[name])
	}

	fmt.Fprintf(&sb, "outcomes: %d success, %d neutral, %d failure\n",
		s.Outcomes[core.OutcomeSuccess], s.Outcomes[core.OutcomeNeutral], s.Outcomes[core.OutcomeFailure])
	fmt.Fprintf(&sb, "narration: %d generated, %d fallback, %d deterministic",
		s.Generated(), s.Fallbacks(), s.Provenance[core.ProvenanceDeterministic])
	return sb.String()
}

// Summarize folds records into a Summary. The input order does not matter,
// though transcripts arrive in emission order anyway.
func Summarize(records []core.Record) Summary {
	s := Summary{
		TurnsByActor: make(map[string]int),
		Outcomes:     make(map[core.Outcome]int),
		Provenance:   make(map[core.Provenance]int),
	}

	for _, rec := range records {
		s.Provenance[rec.Result.Provenance]++

		if rec.IsScene() {
			if s.Scene == "" {
				s.Scene = rec.Result.Description
			}
			continue
		}

		s.Turns++
		s.TurnsByActor[rec.Actor]++
		s.Outcomes[rec.Result.Outcome]++
		if rec.Round > s.Rounds {
			s.Rounds = rec.Round
		}
	}
	return s
}
