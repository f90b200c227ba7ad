package envutil

import (
	"testing"
	"time"
)

func TestInt(t *testing.T) {
	t.Setenv("LINGUA_TEST_INT", "12")
	if got := Int("LINGUA_TEST_INT", 3); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	t.Setenv("LINGUA_TEST_INT", "nope")
	if got := Int("LINGUA_TEST_INT", 3); got != 3 {
		t.Fatalf("expected default, got %d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("LINGUA_TEST_BOOL", "on")
	if !Bool("LINGUA_TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	t.Setenv("LINGUA_TEST_BOOL", "maybe")
	if Bool("LINGUA_TEST_BOOL", false) {
		t.Fatal("expected default false")
	}
}

func TestSeconds(t *testing.T) {
	t.Setenv("LINGUA_TEST_SECONDS", "30")
	if got := Seconds("LINGUA_TEST_SECONDS", time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s, got %s", got)
	}
	t.Setenv("LINGUA_TEST_SECONDS", "0")
	if got := Seconds("LINGUA_TEST_SECONDS", time.Minute); got != time.Minute {
		t.Fatalf("expected default, got %s", got)
	}
}

func TestCSV(t *testing.T) {
	t.Setenv("LINGUA_TEST_CSV", " a, ,b ,")
	got := CSV("LINGUA_TEST_CSV", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected csv: %v", got)
	}
}
