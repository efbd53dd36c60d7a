package gesture

import (
	"math"
	"testing"

	"github.com/ayusman/evergreen/internal/detector"
	"github.com/ayusman/evergreen/testdata"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	tests := []struct {
		name string
		hand detector.HandLandmarks
		want Gesture
	}{
		{"open palm", detector.OpenPalmLandmarks(), Open},
		{"fist", detector.FistLandmarks(), Fist},
		{"finger gun", detector.GunLandmarks(), Gun},
		{"thumbs up counts as fist", detector.ThumbsUpLandmarks(), Fist},
		{"thumb index middle", detector.ThreeFingerLandmarks(), None},
		{"peace sign", detector.PeaceLandmarks(), None},
		{"shifted gun", detector.GunLandmarks().Shifted(-0.3, 0.1), Gun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(&tt.hand); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("nil hand", func(t *testing.T) {
		if got := c.Classify(nil); got != None {
			t.Errorf("Classify(nil) = %v, want NONE", got)
		}
	})
}

func TestClassifier_Thresholds(t *testing.T) {
	t.Run("zero values fall back to defaults", func(t *testing.T) {
		c := NewClassifier(Thresholds{})
		if c.Thresholds() != DefaultThresholds() {
			t.Errorf("Thresholds() = %+v, want %+v", c.Thresholds(), DefaultThresholds())
		}
	})

	t.Run("stricter thumb spread demotes gun", func(t *testing.T) {
		c := NewClassifier(Thresholds{FingerReach: 1.0, ThumbSpread: 0.3})
		hand := detector.GunLandmarks()
		if got := c.Classify(&hand); got != None {
			t.Errorf("Classify() = %v, want NONE", got)
		}
	})

	t.Run("degenerate palm never extends the thumb", func(t *testing.T) {
		var hand detector.HandLandmarks
		p := NewClassifier(DefaultThresholds()).Analyze(&hand)
		if p.Thumb {
			t.Error("thumb should not be extended on a zero-width palm")
		}
	})
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		pose Pose
		want Gesture
	}{
		{"all curled", Pose{}, Fist},
		{"all curled thumb out", Pose{Thumb: true}, Fist},
		{"all four", Pose{Extended: [4]bool{true, true, true, true}}, Open},
		{"all five", Pose{Thumb: true, Extended: [4]bool{true, true, true, true}}, Open},
		{"thumb and index", Pose{Thumb: true, Extended: [4]bool{true, false, false, false}}, Gun},
		{"index alone", Pose{Extended: [4]bool{true, false, false, false}}, None},
		{"pinky alone", Pose{Extended: [4]bool{false, false, false, true}}, None},
		{"three fingers", Pose{Extended: [4]bool{true, true, true, false}}, None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.pose); got != tt.want {
				t.Errorf("Decide(%+v) = %v, want %v", tt.pose, got, tt.want)
			}
		})
	}
}

func TestClassifier_Observe(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	t.Run("no hands", func(t *testing.T) {
		r := c.Observe(nil)
		if r.Present || r.Gesture != None {
			t.Errorf("Observe(nil) = %+v, want absent NONE", r)
		}
	})

	t.Run("uses first hand only", func(t *testing.T) {
		r := c.Observe([]detector.HandLandmarks{detector.FistLandmarks(), detector.OpenPalmLandmarks()})
		if !r.Present || r.Gesture != Fist {
			t.Errorf("Observe() = %+v, want present FIST", r)
		}
	})

	t.Run("position is mirrored", func(t *testing.T) {
		r := c.Observe([]detector.HandLandmarks{detector.OpenPalmLandmarks().Shifted(0.25, 0)})
		if math.Abs(float64(r.Position.X())+0.5) > 1e-5 {
			t.Errorf("Position.X = %f, want -0.5", r.Position.X())
		}
		if math.Abs(float64(r.Position.Y())+0.2) > 1e-5 {
			t.Errorf("Position.Y = %f, want -0.2", r.Position.Y())
		}
	})

	t.Run("position is clamped", func(t *testing.T) {
		r := c.Observe([]detector.HandLandmarks{detector.OpenPalmLandmarks().Shifted(-0.6, 0.5)})
		if r.Position.X() != 1 || r.Position.Y() != -1 {
			t.Errorf("Position = %v, want (1, -1)", r.Position)
		}
	})
}

func TestClassifier_Recordings(t *testing.T) {
	recs, err := testdata.LoadRecordings()
	if err != nil {
		t.Fatalf("LoadRecordings() error = %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("no recordings embedded")
	}

	c := NewClassifier(DefaultThresholds())
	for _, rec := range recs {
		t.Run(rec.Name, func(t *testing.T) {
			want, err := Parse(rec.Label)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", rec.Label, err)
			}
			if got := c.Classify(&rec.Hand); got != want {
				t.Errorf("Classify() = %v, want %v", got, want)
			}
		})
	}
}

func TestGesture_Text(t *testing.T) {
	for _, g := range All {
		text, err := g.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() error = %v", err)
		}

		var back Gesture
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s) error = %v", text, err)
		}
		if back != g {
			t.Errorf("round trip = %v, want %v", back, g)
		}
	}

	if g, err := Parse("gun"); err != nil || g != Gun {
		t.Errorf("Parse(gun) = %v, %v", g, err)
	}
	if _, err := Parse("wave"); err == nil {
		t.Error("expected error for unknown gesture")
	}
	if s := Gesture(9).String(); s != "Gesture(9)" {
		t.Errorf("String() = %q", s)
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	recs, err := testdata.LoadRecordings()
	if err != nil {
		t.Fatalf("LoadRecordings() error = %v", err)
	}

	hands := []detector.HandLandmarks{
		detector.OpenPalmLandmarks(),
		detector.FistLandmarks(),
		detector.GunLandmarks(),
		detector.ThumbsUpLandmarks(),
		detector.ThreeFingerLandmarks(),
		detector.PeaceLandmarks(),
	}
	for _, rec := range recs {
		hands = append(hands, rec.Hand)
	}

	c := NewClassifier(DefaultThresholds())

	first := make([]Gesture, len(hands))
	firstReading := make([]Reading, len(hands))
	originals := make([]detector.HandLandmarks, len(hands))
	for i := range hands {
		originals[i] = hands[i]
		first[i] = c.Classify(&hands[i])
		firstReading[i] = c.Observe(hands[i : i+1])
	}

	// Each pass rotates the order, and even passes walk it backwards, so a
	// hand is classified right after a different neighbour every time.
	for pass := 1; pass <= 5; pass++ {
		for k := range hands {
			i := (k + pass) % len(hands)
			if pass%2 == 0 {
				i = len(hands) - 1 - i
			}
			if got := c.Classify(&hands[i]); got != first[i] {
				t.Errorf("pass %d: Classify(hand %d) = %v, first call gave %v", pass, i, got, first[i])
			}
			if got := c.Observe(hands[i : i+1]); got != firstReading[i] {
				t.Errorf("pass %d: Observe(hand %d) = %+v, first call gave %+v", pass, i, got, firstReading[i])
			}
		}
	}

	for i := range hands {
		if hands[i] != originals[i] {
			t.Errorf("hand %d was modified by classification", i)
		}
	}

	// A second classifier with the same thresholds agrees.
	other := NewClassifier(DefaultThresholds())
	for i := range hands {
		if got := other.Classify(&hands[i]); got != first[i] {
			t.Errorf("fresh classifier: hand %d = %v, want %v", i, got, first[i])
		}
	}
}
