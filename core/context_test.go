package core

import (
	"errors"
	"testing"
)

func TestTurnContext_Validate(t *testing.T) {
	world := testWorld(t).Snapshot()

	good := TurnContext{Round: 1, Scene: "A dim tavern", World: world}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid context rejected: %v", err)
	}

	cases := []TurnContext{
		{Round: 0, Scene: "A dim tavern", World: world},
		{Round: 1, Scene: "", World: world},
		{Round: 1, Scene: "A dim tavern"},
	}
	for i, tc := range cases {
		if err := tc.Validate(); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d error = %v, want ErrInvalidArgument", i, err)
		}
	}
}
