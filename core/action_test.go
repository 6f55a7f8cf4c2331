package core

import "testing"

func TestActionKind_Recognized(t *testing.T) {
	for _, k := range []ActionKind{KindLookAround, KindMove, KindAskNPC, KindInteract, KindUseItem} {
		if !k.Recognized() {
			t.Errorf("%q should be recognized", k)
		}
	}
	for _, k := range []ActionKind{"", "dance", "attack"} {
		if k.Recognized() {
			t.Errorf("%q should not be recognized", k)
		}
	}
}

func TestAction_Params(t *testing.T) {
	a := Action{Kind: KindMove, Actor: "hero"}
	if a.Param("destination") != "" {
		t.Fatal("missing param should be empty")
	}

	b := a.WithParam("destination", "Cellar")
	if b.Param("destination") != "Cellar" {
		t.Fatalf("param not set: %+v", b)
	}
	if a.Parameters != nil {
		t.Fatalf("WithParam must not mutate the receiver: %+v", a)
	}
}
