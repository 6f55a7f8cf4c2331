// Package dice implements the seeded ability checks used during action
// resolution.
package dice

import (
	"errors"
	"math/rand"
	"sync"
)

// Outcome classifies how an ability check went.
type Outcome int

const (
	OutcomeUnspecified Outcome = iota
	OutcomeCriticalFailure
	OutcomeFailure
	OutcomeSuccess
	OutcomeCriticalSuccess
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnspecified:
		return "Unspecified"
	case OutcomeCriticalFailure:
		return "Critical failure"
	case OutcomeFailure:
		return "Failure"
	case OutcomeSuccess:
		return "Success"
	case OutcomeCriticalSuccess:
		return "Critical success"
	default:
		return "Unknown"
	}
}

// ErrInvalidSides indicates a die with a non-positive side count.
var ErrInvalidSides = errors.New("dice must have positive sides")

// ErrInvalidDifficulty indicates a check against a non-positive difficulty.
var ErrInvalidDifficulty = errors.New("difficulty must be positive")

// Check captures a single d20 ability check.
type Check struct {
	Roll       int // natural die value
	Modifier   int
	Total      int
	Difficulty int
	Outcome    Outcome
}

// Critical reports whether the natural roll was a 1 or a 20.
func (c Check) Critical() bool {
	return c.Outcome == OutcomeCriticalFailure || c.Outcome == OutcomeCriticalSuccess
}

// Success reports whether the check met its difficulty.
func (c Check) Success() bool {
	return c.Outcome == OutcomeSuccess || c.Outcome == OutcomeCriticalSuccess
}

// Roller produces rolls from a single seeded source, so an entire session
// replays identically from one seed. Safe for concurrent use.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller creates a roller seeded with seed.
//
// Determinism: two rollers built from the same seed produce identical roll
// sequences. Callers that need reproducible sessions must route every roll
// through the same roller.
func NewRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// Roll rolls a single die with the given number of sides.
func (r *Roller) Roll(sides int) (int, error) {
	if sides <= 0 {
		return 0, ErrInvalidSides
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(sides) + 1, nil
}

// AbilityCheck rolls d20 + modifier against difficulty and classifies the
// outcome. A natural 20 is always a critical success and a natural 1 always
// a critical failure, regardless of the modifier.
func (r *Roller) AbilityCheck(modifier, difficulty int) (Check, error) {
	if difficulty <= 0 {
		return Check{}, ErrInvalidDifficulty
	}

	roll, err := r.Roll(20)
	if err != nil {
		return Check{}, err
	}

	c := Check{
		Roll:       roll,
		Modifier:   modifier,
		Total:      roll + modifier,
		Difficulty: difficulty,
	}
	c.Outcome = Classify(roll, c.Total, difficulty)
	return c, nil
}

// Classify maps a natural roll and its modified total to an outcome.
func Classify(roll, total, difficulty int) Outcome {
	switch {
	case roll == 20:
		return OutcomeCriticalSuccess
	case roll == 1:
		return OutcomeCriticalFailure
	case total >= difficulty:
		return OutcomeSuccess
	default:
		return OutcomeFailure
	}
}
