package gesture

// EdgeTrigger fires once when a watched gesture begins and stays quiet while
// it is held.
type EdgeTrigger struct {
	watch Gesture
	prev  Gesture
}

// NewEdgeTrigger watches for rising edges into g.
func NewEdgeTrigger(g Gesture) *EdgeTrigger {
	return &EdgeTrigger{watch: g, prev: None}
}

// Fire records g and reports whether it is a transition into the watched
// gesture from any other gesture.
func (e *EdgeTrigger) Fire(g Gesture) bool {
	fired := g == e.watch && e.prev != e.watch
	e.prev = g
	return fired
}

// Reset forgets the previous gesture.
func (e *EdgeTrigger) Reset() {
	e.prev = None
}
