// Package tray provides a system tray indicator showing the hand tracking
// state and the current gesture, with a pause toggle.
package tray

import (
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/evergreen/internal/frame"
	"github.com/ayusman/evergreen/internal/gesture"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()
	enabled  bool
	status   string
	gesture  gesture.Gesture
	present  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuStatus  *systray.MenuItem
	menuToggle  *systray.MenuItem
	menuGesture *systray.MenuItem
}

// New creates a new Tray with tracking enabled and status "starting".
func New() *Tray {
	return &Tray{
		enabled: true,
		status:  "starting",
	}
}

// OnToggle sets the callback function to be called when tracking is paused
// or resumed from the menu.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback function to be called when the open menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Evergreen")
	systray.SetTooltip("Evergreen hand-gesture display")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(statusLabel(t.status), "Hand tracking state")
	t.menuStatus.Disable()
	t.menuGesture = systray.AddMenuItem(gestureLabel(t.gesture, t.present), "Current gesture")
	t.menuGesture.Disable()
	systray.AddSeparator()
	t.menuToggle = systray.AddMenuItem(toggleLabel(t.enabled), "Pause or resume hand tracking")
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem("Open Display...", "Open the display in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Evergreen")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleLabel(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStatus shows the tracking state, e.g. "active" or "unavailable".
func (t *Tray) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = status
	if status == "paused" {
		t.enabled = false
	} else if status == "active" {
		t.enabled = true
	}
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusLabel(status))
	}
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleLabel(t.enabled))
	}
}

// Publish implements frame.Sink. The menu only changes when the gesture or
// hand presence does.
func (t *Tray) Publish(f *frame.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f.Gesture == t.gesture && f.HandPresent == t.present {
		return
	}
	t.gesture, t.present = f.Gesture, f.HandPresent
	if t.menuGesture != nil {
		t.menuGesture.SetTitle(gestureLabel(t.gesture, t.present))
	}
}

// Status returns the tracking state last shown.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Gesture returns the gesture last shown and whether a hand was in view.
func (t *Tray) Gesture() (gesture.Gesture, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gesture, t.present
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func statusLabel(status string) string {
	if status == "" {
		status = "starting"
	}
	return "Tracking: " + strings.ToUpper(status[:1]) + status[1:]
}

func gestureLabel(g gesture.Gesture, present bool) string {
	if !present {
		return "Gesture: no hand"
	}
	return "Gesture: " + g.String()
}

func toggleLabel(enabled bool) string {
	if enabled {
		return "● Tracking on"
	}
	return "○ Tracking paused"
}
