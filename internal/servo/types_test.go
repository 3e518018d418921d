package servo

import (
	"errors"
	"testing"
)

func TestParseControlMode(t *testing.T) {
	tests := []struct {
		name string
		mode ControlMode
	}{
		{"2xz", ModeXZ},
		{"2zy", ModeZY},
		{"4xyzy", ModeXYZY},
	}

	for _, tt := range tests {
		m, err := ParseControlMode(tt.name)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if m != tt.mode {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.mode, m)
		}
		if m.String() != tt.name {
			t.Errorf("%v: expected name %q, got %q", tt.mode, tt.name, m.String())
		}
	}

	if _, err := ParseControlMode("3rpy"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unknown mode, got %v", err)
	}
}

func TestParseInteractionMode(t *testing.T) {
	tests := []struct {
		name string
		mode InteractionMode
	}{
		{"curr", InteractionCurrent},
		{"desired", InteractionDesired},
		{"mean", InteractionMean},
	}

	for _, tt := range tests {
		m, err := ParseInteractionMode(tt.name)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if m != tt.mode {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.mode, m)
		}
		if m.String() != tt.name {
			t.Errorf("%v: expected name %q, got %q", tt.mode, tt.name, m.String())
		}
	}

	if _, err := ParseInteractionMode("median"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unknown mode, got %v", err)
	}
}
