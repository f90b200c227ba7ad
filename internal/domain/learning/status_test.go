package learning

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to GenerationStatus
		want     bool
	}{
		{StatusPending, StatusGenerating, true},
		{StatusGenerating, StatusCompleted, true},
		{StatusGenerating, StatusFailed, true},
		{StatusFailed, StatusGenerating, true},
		{StatusCompleted, StatusGenerating, true},
		{StatusCompleted, StatusCompleted, true},
		{StatusCompleted, StatusPending, false},
		{StatusFailed, StatusPending, false},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{GenerationStatus("bogus"), StatusGenerating, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s)=%v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestAllowedPredecessorsIsCopy(t *testing.T) {
	p := AllowedPredecessors(StatusGenerating)
	if len(p) != 3 {
		t.Fatalf("expected 3 predecessors of generating, got %v", p)
	}
	p[0] = StatusCompleted
	if AllowedPredecessors(StatusGenerating)[0] != StatusPending {
		t.Fatal("predecessor table was mutated through returned slice")
	}
	if len(AllowedPredecessors(StatusPending)) != 0 {
		t.Fatal("nothing should transition into pending")
	}
}

func TestAggregateStatus(t *testing.T) {
	cases := []struct {
		name string
		in   []GenerationStatus
		want GenerationStatus
	}{
		{"empty", nil, StatusPending},
		{"all completed", []GenerationStatus{StatusCompleted, StatusCompleted}, StatusCompleted},
		{"one failed", []GenerationStatus{StatusCompleted, StatusFailed, StatusGenerating}, StatusFailed},
		{"in flight", []GenerationStatus{StatusCompleted, StatusGenerating}, StatusGenerating},
		{"partial", []GenerationStatus{StatusCompleted, StatusPending}, StatusPending},
	}
	for _, tc := range cases {
		if got := AggregateStatus(tc.in); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestParseGenerationStatus(t *testing.T) {
	if s, ok := ParseGenerationStatus(" Completed "); !ok || s != StatusCompleted {
		t.Fatalf("unexpected parse: %q %v", s, ok)
	}
	if _, ok := ParseGenerationStatus("done"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestTerminal(t *testing.T) {
	for s, want := range map[GenerationStatus]bool{
		StatusPending:    false,
		StatusGenerating: false,
		StatusCompleted:  true,
		StatusFailed:     true,
	} {
		if s.Terminal() != want {
			t.Fatalf("%s.Terminal()=%v want %v", s, !want, want)
		}
	}
}

func TestCategoryForArtifact(t *testing.T) {
	for _, k := range ArtifactKinds {
		c := CategoryForArtifact(k)
		if !c.Valid() {
			t.Fatalf("kind %s maps to invalid category %q", k, c)
		}
	}
	if CategoryForArtifact(ArtifactSimulation) != CategorySimulation {
		t.Fatal("simulation artifacts must share the simulation cache partition")
	}
}
