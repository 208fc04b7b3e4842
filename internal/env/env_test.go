package env

import (
	"context"
	"testing"
)

func TestSnapshot_AppIs(t *testing.T) {
	tests := []struct {
		foreground string
		name       string
		want       bool
	}{
		{"Safari", "safari", true},
		{"Safari.app", "Safari", true},
		{" TextEdit ", "textedit", true},
		{"Terminal", "Safari", false},
		{"", "Safari", false},
	}

	for _, tt := range tests {
		s := Snapshot{ForegroundApp: tt.foreground}
		if got := s.AppIs(tt.name); got != tt.want {
			t.Errorf("AppIs(%q) with foreground %q = %v, want %v", tt.name, tt.foreground, got, tt.want)
		}
	}
}

func TestStatic(t *testing.T) {
	want := Snapshot{ForegroundApp: "Notes", Focused: true}
	got, err := Static(want).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}
