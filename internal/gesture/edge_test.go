package gesture

import "testing"

func TestEdgeTrigger(t *testing.T) {
	tests := []struct {
		name  string
		input []Gesture
		fires int
	}{
		{"single rising edge", []Gesture{None, Gun, Gun, Gun}, 1},
		{"held from the start", []Gesture{Gun, Gun}, 1},
		{"release and re-raise", []Gesture{Gun, None, Gun}, 2},
		{"other gestures break the hold", []Gesture{Gun, Open, Gun, Fist, Gun}, 3},
		{"never raised", []Gesture{None, Open, Fist}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEdgeTrigger(Gun)
			fires := 0
			for _, g := range tt.input {
				if e.Fire(g) {
					fires++
				}
			}
			if fires != tt.fires {
				t.Errorf("fired %d times, want %d", fires, tt.fires)
			}
		})
	}

	t.Run("reset re-arms", func(t *testing.T) {
		e := NewEdgeTrigger(Gun)
		e.Fire(Gun)
		e.Reset()
		if !e.Fire(Gun) {
			t.Error("expected fire after Reset")
		}
	})
}
