package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Place describes a single location in the world.
type Place struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Atmosphere  string   `json:"atmosphere"`
	ConnectedTo []string `json:"connected_to"`
	Items       []string `json:"items"`
	Visited     bool     `json:"visited"`
}

// NPC describes a non-player character and where they currently stand.
type NPC struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Location string `json:"location"`
	Lore     string `json:"lore"`
}

// Quest tracks a narrative objective. Progress advances when a successful
// resolution's description mentions one of the Clues. Condition is an
// expression evaluated against the snapshot state map at the end of each
// round (see Snapshot.StateMap); when it yields true the quest is marked
// complete. A completed Terminal quest signals the session to stop.
type Quest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Clues       []string `json:"clues,omitempty"`
	Condition   string   `json:"condition,omitempty"`
	Terminal    bool     `json:"terminal"`
	Progress    int      `json:"progress"`
	Complete    bool     `json:"complete"`
}

// TimesOfDay is the day cycle advanced once per completed round.
var TimesOfDay = []string{"morning", "afternoon", "evening", "night"}

// WorldConfig seeds a WorldState.
type WorldConfig struct {
	Start     string
	TimeOfDay string
	Weather   string
	Places    []Place
	NPCs      []NPC
	Quests    []Quest
}

// DefaultWorldConfig returns a small ready-to-play world: a tavern opening
// onto a town square and a forest edge, three NPCs and one terminal quest.
// Examples, the CLI and tests use it as a starting point.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Start:     "Tavern",
		TimeOfDay: "morning",
		Weather:   "clear",
		Places: []Place{
			{
				Name:        "Tavern",
				Description: "A dimly lit tavern with a warm hearth and the smell of stew",
				Atmosphere:  "cozy",
				ConnectedTo: []string{"Town Square", "Cellar"},
				Items:       []string{"notice board", "mug of ale"},
			},
			{
				Name:        "Town Square",
				Description: "A cobbled square around a dry fountain, stalls packing up",
				Atmosphere:  "busy",
				ConnectedTo: []string{"Tavern", "Forest Edge"},
				Items:       []string{"fountain"},
			},
			{
				Name:        "Cellar",
				Description: "A low stone cellar stacked with barrels, one recently moved",
				Atmosphere:  "musty",
				ConnectedTo: []string{"Tavern"},
				Items:       []string{"empty crate"},
			},
			{
				Name:        "Forest Edge",
				Description: "The road thins out where the old forest begins",
				Atmosphere:  "quiet",
				ConnectedTo: []string{"Town Square"},
				Items:       []string{"wagon tracks"},
			},
		},
		NPCs: []NPC{
			{Name: "barkeep", Role: "tavern keeper", Location: "Tavern", Lore: "The shipment never arrived; the wagon was last seen near the forest edge."},
			{Name: "merchant", Role: "traveling trader", Location: "Town Square", Lore: "Prices doubled since the road got dangerous."},
			{Name: "stranger", Role: "hooded stranger", Location: "Tavern", Lore: "Keeps to the corner table and says nothing."},
		},
		Quests: []Quest{
			{
				Name:        "missing-shipment",
				Description: "Find out what happened to the tavern's missing shipment",
				Clues:       []string{"shipment", "wagon"},
				Condition:   `quests["missing-shipment"].progress >= 2`,
				Terminal:    true,
			},
		},
	}
}

// WorldState is the shared narrative world. It has exactly one mutating owner
// (the narrator); everything else reads immutable Snapshot copies. All
// mutation funnels through Apply so state changes stay auditable.
type WorldState struct {
	mu        sync.RWMutex
	location  string
	timeOfDay string
	weather   string
	places    map[string]Place
	npcs      map[string]NPC
	quests    []Quest
	progress  map[string]int
}

// NewWorldState builds a world from cfg. The starting location must exist and
// every connection must reference a known place.
func NewWorldState(cfg WorldConfig) (*WorldState, error) {
	if len(cfg.Places) == 0 {
		return nil, fmt.Errorf("%w: world needs at least one place", ErrConfiguration)
	}

	w := &WorldState{
		timeOfDay: cfg.TimeOfDay,
		weather:   cfg.Weather,
		places:    make(map[string]Place, len(cfg.Places)),
		npcs:      make(map[string]NPC, len(cfg.NPCs)),
		quests:    make([]Quest, len(cfg.Quests)),
		progress:  map[string]int{},
	}
	if w.timeOfDay == "" {
		w.timeOfDay = TimesOfDay[0]
	}
	if w.weather == "" {
		w.weather = "clear"
	}

	for _, p := range cfg.Places {
		w.places[p.Name] = p
	}
	for _, p := range cfg.Places {
		for _, conn := range p.ConnectedTo {
			if _, ok := w.places[conn]; !ok {
				return nil, fmt.Errorf("%w: place %q connects to unknown place %q", ErrConfiguration, p.Name, conn)
			}
		}
	}
	for _, n := range cfg.NPCs {
		if _, ok := w.places[n.Location]; !ok {
			return nil, fmt.Errorf("%w: npc %q placed in unknown place %q", ErrConfiguration, n.Name, n.Location)
		}
		w.npcs[n.Name] = n
	}
	for i, q := range cfg.Quests {
		q.Clues = append([]string{}, q.Clues...)
		w.quests[i] = q
	}

	start := cfg.Start
	if start == "" {
		start = cfg.Places[0].Name
	}
	if _, ok := w.places[start]; !ok {
		return nil, fmt.Errorf("%w: unknown starting place %q", ErrConfiguration, start)
	}
	w.location = start
	p := w.places[start]
	p.Visited = true
	w.places[start] = p

	return w, nil
}

// Delta keys understood by Apply. Suffixed keys carry the subject after the
// colon, e.g. "npc.location:barkeep".
const (
	DeltaLocation      = "location"        // string: set current place (marks it visited)
	DeltaTimeOfDay     = "time_of_day"     // string: set the time of day
	DeltaWeather       = "weather"         // string: set the weather
	DeltaNPCLocation   = "npc.location:"   // string: move the named NPC
	DeltaItemAdd       = "place.item.add:" // string: add an item to the named place
	DeltaItemRemove    = "place.item.del:" // string: remove an item from the named place
	DeltaQuestProgress = "quest.progress:" // int: increment the named quest's progress
	DeltaQuestComplete = "quest.complete:" // bool: mark the named quest complete
	DeltaProgress      = "progress:"       // int: increment a named global counter
)

// Apply mutates the world according to delta, processing entries in sorted
// key order for determinism. It returns an error on the first malformed
// entry; prior entries stay applied. Only the world's owner may call Apply.
func (w *WorldState) Apply(delta map[string]any) error {
	if len(delta) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	keys := make([]string, 0, len(delta))
	for k := range delta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := w.applyOne(k, delta[k]); err != nil {
			return err
		}
	}
	return nil
}

func (w *WorldState) applyOne(key string, val any) error {
	switch {
	case key == DeltaLocation:
		name, ok := val.(string)
		if !ok {
			return fmt.Errorf("%w: delta %q wants a string", ErrInvalidArgument, key)
		}
		p, ok := w.places[name]
		if !ok {
			return fmt.Errorf("%w: delta %q names unknown place %q", ErrInvalidArgument, key, name)
		}
		w.location = name
		p.Visited = true
		w.places[name] = p

	case key == DeltaTimeOfDay:
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("%w: delta %q wants a string", ErrInvalidArgument, key)
		}
		w.timeOfDay = s

	case key == DeltaWeather:
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("%w: delta %q wants a string", ErrInvalidArgument, key)
		}
		w.weather = s

	case strings.HasPrefix(key, DeltaNPCLocation):
		name := strings.TrimPrefix(key, DeltaNPCLocation)
		dest, ok := val.(string)
		if !ok {
			return fmt.Errorf("%w: delta %q wants a string", ErrInvalidArgument, key)
		}
		npc, ok := w.npcs[name]
		if !ok {
			return fmt.Errorf("%w: delta %q names unknown npc", ErrInvalidArgument, key)
		}
		if _, ok := w.places[dest]; !ok {
			return fmt.Errorf("%w: delta %q names unknown place %q", ErrInvalidArgument, key, dest)
		}
		npc.Location = dest
		w.npcs[name] = npc

	case strings.HasPrefix(key, DeltaItemAdd):
		place := strings.TrimPrefix(key, DeltaItemAdd)
		item, ok := val.(string)
		if !ok {
			return fmt.Errorf("%w: delta %q wants a string", ErrInvalidArgument, key)
		}
		p, ok := w.places[place]
		if !ok {
			return fmt.Errorf("%w: delta %q names unknown place", ErrInvalidArgument, key)
		}
		p.Items = append(append([]string{}, p.Items...), item)
		w.places[place] = p

	case strings.HasPrefix(key, DeltaItemRemove):
		place := strings.TrimPrefix(key, DeltaItemRemove)
		item, ok := val.(string)
		if !ok {
			return fmt.Errorf("%w: delta %q wants a string", ErrInvalidArgument, key)
		}
		p, ok := w.places[place]
		if !ok {
			return fmt.Errorf("%w: delta %q names unknown place", ErrInvalidArgument, key)
		}
		items := make([]string, 0, len(p.Items))
		for _, it := range p.Items {
			if it != item {
				items = append(items, it)
			}
		}
		p.Items = items
		w.places[place] = p

	case strings.HasPrefix(key, DeltaQuestProgress):
		name := strings.TrimPrefix(key, DeltaQuestProgress)
		n, ok := toInt(val)
		if !ok {
			return fmt.Errorf("%w: delta %q wants an int", ErrInvalidArgument, key)
		}
		for i := range w.quests {
			if w.quests[i].Name == name {
				w.quests[i].Progress += n
				return nil
			}
		}
		return fmt.Errorf("%w: delta %q names unknown quest", ErrInvalidArgument, key)

	case strings.HasPrefix(key, DeltaQuestComplete):
		name := strings.TrimPrefix(key, DeltaQuestComplete)
		b, ok := val.(bool)
		if !ok {
			return fmt.Errorf("%w: delta %q wants a bool", ErrInvalidArgument, key)
		}
		for i := range w.quests {
			if w.quests[i].Name == name {
				w.quests[i].Complete = b
				return nil
			}
		}
		return fmt.Errorf("%w: delta %q names unknown quest", ErrInvalidArgument, key)

	case strings.HasPrefix(key, DeltaProgress):
		name := strings.TrimPrefix(key, DeltaProgress)
		n, ok := toInt(val)
		if !ok {
			return fmt.Errorf("%w: delta %q wants an int", ErrInvalidArgument, key)
		}
		w.progress[name] += n

	default:
		return fmt.Errorf("%w: unknown delta key %q", ErrInvalidArgument, key)
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Snapshot returns an immutable deep copy of the current world. Safe to hand
// to any goroutine; later Apply calls never show through.
func (w *WorldState) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := Snapshot{
		Location:  w.location,
		TimeOfDay: w.timeOfDay,
		Weather:   w.weather,
		Places:    make(map[string]Place, len(w.places)),
		NPCs:      make(map[string]NPC, len(w.npcs)),
		Quests:    make([]Quest, len(w.quests)),
		Progress:  make(map[string]int, len(w.progress)),
	}
	for name, p := range w.places {
		p.ConnectedTo = append([]string{}, p.ConnectedTo...)
		p.Items = append([]string{}, p.Items...)
		s.Places[name] = p
	}
	for name, n := range w.npcs {
		s.NPCs[name] = n
	}
	for i, q := range w.quests {
		q.Clues = append([]string{}, q.Clues...)
		s.Quests[i] = q
	}
	for k, v := range w.progress {
		s.Progress[k] = v
	}
	return s
}

// Snapshot is a point-in-time, read-only copy of the world.
type Snapshot struct {
	Location  string           `json:"location"`
	TimeOfDay string           `json:"time_of_day"`
	Weather   string           `json:"weather"`
	Places    map[string]Place `json:"places"`
	NPCs      map[string]NPC   `json:"npcs"`
	Quests    []Quest          `json:"quests"`
	Progress  map[string]int   `json:"progress"`
}

// Here returns the place the party currently occupies.
func (s Snapshot) Here() Place {
	return s.Places[s.Location]
}

// Place looks up a place by name.
func (s Snapshot) Place(name string) (Place, bool) {
	p, ok := s.Places[name]
	return p, ok
}

// NPCsAt returns the NPCs standing at the named place, sorted by name.
func (s Snapshot) NPCsAt(location string) []NPC {
	var out []NPC
	for _, n := range s.NPCs {
		if n.Location == location {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Quest looks up a quest by name.
func (s Snapshot) Quest(name string) (Quest, bool) {
	for _, q := range s.Quests {
		if q.Name == name {
			return q, true
		}
	}
	return Quest{}, false
}

// TerminalQuestComplete reports whether a completed quest flags the session
// to stop.
func (s Snapshot) TerminalQuestComplete() bool {
	for _, q := range s.Quests {
		if q.Terminal && q.Complete {
			return true
		}
	}
	return false
}

// StateMap flattens the snapshot into the environment quest conditions and
// decision rules evaluate against.
func (s Snapshot) StateMap() map[string]any {
	visited := []string{}
	for name, p := range s.Places {
		if p.Visited {
			visited = append(visited, name)
		}
	}
	sort.Strings(visited)

	quests := map[string]map[string]any{}
	for _, q := range s.Quests {
		quests[q.Name] = map[string]any{
			"progress": q.Progress,
			"complete": q.Complete,
		}
	}

	progress := map[string]any{}
	for k, v := range s.Progress {
		progress[k] = v
	}

	return map[string]any{
		"location":    s.Location,
		"time_of_day": s.TimeOfDay,
		"weather":     s.Weather,
		"visited":     visited,
		"quests":      quests,
		"progress":    progress,
	}
}
