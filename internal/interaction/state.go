// Package interaction carries the classifier's latest verdict from the
// landmark producer to the render loop.
package interaction

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/ayusman/evergreen/internal/gesture"
)

// State is the interaction snapshot the render loop consumes each tick.
type State struct {
	Gesture      gesture.Gesture
	HandPosition mgl32.Vec2
	Present      bool
}

// Apply folds a classifier reading into s. A reading without a hand clears
// presence and the gesture but keeps the last hand position.
func (s State) Apply(r gesture.Reading) State {
	if !r.Present {
		s.Present = false
		s.Gesture = gesture.None
		return s
	}
	return State{
		Gesture:      r.Gesture,
		HandPosition: r.Position,
		Present:      true,
	}
}

// Slot is a latest-value-wins queue of depth one. Publish never blocks and
// replaces any value the reader has not yet taken. Intended for a single
// writer and a single reader.
type Slot struct {
	ch      chan State
	current State
}

// NewSlot returns a slot whose first Latest reports NONE with no hand.
func NewSlot() *Slot {
	return &Slot{ch: make(chan State, 1)}
}

// Publish offers s to the reader, discarding any stale value still queued.
func (s *Slot) Publish(st State) {
	for {
		select {
		case s.ch <- st:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Latest takes the pending value if there is one and returns the most recent
// state seen. It never blocks. Only the reader may call it.
func (s *Slot) Latest() State {
	select {
	case st := <-s.ch:
		s.current = st
	default:
	}
	return s.current
}

// Writer is the producer side: it remembers the last written state so that a
// "no hand" reading can keep the previous hand position.
type Writer struct {
	slot *Slot
	last State
}

// NewWriter returns a writer publishing to slot.
func NewWriter(slot *Slot) *Writer {
	return &Writer{slot: slot}
}

// Write applies r and publishes the resulting state.
func (w *Writer) Write(r gesture.Reading) State {
	w.last = w.last.Apply(r)
	w.slot.Publish(w.last)
	return w.last
}
