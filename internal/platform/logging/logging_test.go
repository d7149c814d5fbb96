package logging

import "testing"

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New("loud", "catalog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.Core().Enabled(-1) {
		t.Fatal("debug must be disabled at info level")
	}
	if !log.Core().Enabled(0) {
		t.Fatal("info must be enabled")
	}
}

func TestNew_DebugLevel(t *testing.T) {
	log, err := New(" DEBUG ", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !log.Core().Enabled(-1) {
		t.Fatal("expected debug enabled")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected a logger")
	}
}
