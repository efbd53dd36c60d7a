package tray

import (
	"testing"

	"github.com/ayusman/evergreen/internal/frame"
	"github.com/ayusman/evergreen/internal/gesture"
)

func TestLabels(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{statusLabel("active"), "Tracking: Active"},
		{statusLabel("unavailable"), "Tracking: Unavailable"},
		{statusLabel(""), "Tracking: Starting"},
		{gestureLabel(gesture.Gun, true), "Gesture: GUN"},
		{gestureLabel(gesture.Fist, false), "Gesture: no hand"},
		{toggleLabel(true), "● Tracking on"},
		{toggleLabel(false), "○ Tracking paused"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("label = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTray_StateWithoutMenu(t *testing.T) {
	tr := New()

	if tr.Status() != "starting" || !tr.IsEnabled() {
		t.Fatalf("new tray = (%s, %v), want (starting, true)", tr.Status(), tr.IsEnabled())
	}

	tr.SetStatus("paused")
	if tr.IsEnabled() {
		t.Error("paused status should clear the enabled flag")
	}
	tr.SetStatus("active")
	if !tr.IsEnabled() {
		t.Error("active status should set the enabled flag")
	}

	tr.Publish(&frame.Frame{Gesture: gesture.Open, HandPresent: true})
	if g, present := tr.Gesture(); g != gesture.Open || !present {
		t.Errorf("Gesture() = (%v, %v), want (OPEN, true)", g, present)
	}
}

func TestTray_Toggle(t *testing.T) {
	tr := New()

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
}

func TestTray_ImplementsSink(t *testing.T) {
	var _ frame.Sink = New()
}
