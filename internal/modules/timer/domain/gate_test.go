package domain

import "testing"

func TestAdmitFiltersByMode(t *testing.T) {
	t.Parallel()
	counting := Gate{Counting: true}
	halted := Gate{Counting: false}

	if _, ok := Admit(halted, Pause{}); ok {
		t.Fatalf("pause while halted must be dropped")
	}
	if _, ok := Admit(counting, Resume{}); ok {
		t.Fatalf("resume while counting must be dropped")
	}
	if got, ok := Admit(counting, Toggle{}); !ok || got.Command.Kind() != KindPause {
		t.Fatalf("toggle while counting must become pause, got %+v ok=%t", got, ok)
	}
	if got, ok := Admit(halted, Toggle{}); !ok || got.Command.Kind() != KindResume {
		t.Fatalf("toggle while halted must become resume, got %+v ok=%t", got, ok)
	}
}

func TestAdmitRespectsEdges(t *testing.T) {
	t.Parallel()
	edge := Gate{First: true, Last: true}
	if _, ok := Admit(edge, Next{}); ok {
		t.Fatalf("next on last session must be dropped")
	}
	if _, ok := Admit(edge, Prev{}); ok {
		t.Fatalf("prev on first session must be dropped")
	}
	for _, cmd := range []Command{Finish{}, Reload{}, Fetch{Format: "{time}"}, Listen{}} {
		if _, ok := Admit(edge, cmd); !ok {
			t.Fatalf("%s must always pass", cmd.Kind())
		}
	}
}

func TestAdmitResolvesJump(t *testing.T) {
	t.Parallel()
	g := Gate{Lookup: func(id string) (int, bool) {
		if id == "break" {
			return 2, true
		}
		return 0, false
	}}
	got, ok := Admit(g, Jump{ID: "break"})
	if !ok || got.Index != 2 {
		t.Fatalf("expected jump to index 2, got %+v ok=%t", got, ok)
	}
	if _, ok := Admit(g, Jump{ID: "nope"}); ok {
		t.Fatalf("unknown jump target must be dropped")
	}
}
