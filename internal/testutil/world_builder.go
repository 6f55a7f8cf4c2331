package testutil

import (
	"github.com/hupe1980/storymesh/core"
)

// WorldBuilder helps construct world configurations with fluent chaining.
// Example:
//
//	cfg := NewWorldBuilder("Tavern").
//	    Place("Tavern", "A dim tavern", "Town Square").
//	    Place("Town Square", "A cobbled square", "Tavern").
//	    NPC("barkeep", "tavern keeper", "Tavern", "The road is dangerous.").
//	    Build()
type WorldBuilder struct {
	start  string
	places []core.Place
	npcs   []core.NPC
	quests []core.Quest
}

// NewWorldBuilder creates a builder starting at the named place.
func NewWorldBuilder(start string) *WorldBuilder {
	return &WorldBuilder{start: start}
}

// Place appends a place with its description and connections (chainable).
func (b *WorldBuilder) Place(name, description string, connectedTo ...string) *WorldBuilder {
	b.places = append(b.places, core.Place{
		Name:        name,
		Description: description,
		ConnectedTo: connectedTo,
	})
	return b
}

// Items attaches items to the most recently added place (chainable).
func (b *WorldBuilder) Items(items ...string) *WorldBuilder {
	if len(b.places) > 0 {
		b.places[len(b.places)-1].Items = append(b.places[len(b.places)-1].Items, items...)
	}
	return b
}

// NPC appends a non-player character (chainable).
func (b *WorldBuilder) NPC(name, role, location, lore string) *WorldBuilder {
	b.npcs = append(b.npcs, core.NPC{Name: name, Role: role, Location: location, Lore: lore})
	return b
}

// Quest appends a quest with its completion condition (chainable).
func (b *WorldBuilder) Quest(name, condition string, terminal bool, clues ...string) *WorldBuilder {
	b.quests = append(b.quests, core.Quest{
		Name:      name,
		Condition: condition,
		Terminal:  terminal,
		Clues:     clues,
	})
	return b
}

// Build returns the assembled world configuration.
func (b *WorldBuilder) Build() core.WorldConfig {
	return core.WorldConfig{
		Start:  b.start,
		Places: b.places,
		NPCs:   b.npcs,
		Quests: b.quests,
	}
}
