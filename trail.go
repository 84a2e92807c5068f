package ascent

// Trail is a fixed capacity ring buffer of recent positions.
type Trail struct {
	points [][]float64
	next   int
	full   bool
}

// NewTrail returns a trail of the provided capacity (at least one point).
func NewTrail(capacity int) *Trail {
	if capacity < 1 {
		capacity = 1
	}
	return &Trail{points: make([][]float64, capacity)}
}

// Add records a copy of the position, overwriting the oldest one when full.
func (t *Trail) Add(R []float64) {
	t.points[t.next] = []float64{R[0], R[1]}
	t.next++
	if t.next == len(t.points) {
		t.next = 0
		t.full = true
	}
}

// Len returns the number of recorded positions.
func (t *Trail) Len() int {
	if t.full {
		return len(t.points)
	}
	return t.next
}

// Points returns a copy of the recorded positions, oldest first.
func (t *Trail) Points() [][]float64 {
	out := make([][]float64, 0, t.Len())
	if t.full {
		for _, p := range t.points[t.next:] {
			out = append(out, []float64{p[0], p[1]})
		}
	}
	for _, p := range t.points[:t.next] {
		out = append(out, []float64{p[0], p[1]})
	}
	return out
}

// Reset clears the trail.
func (t *Trail) Reset() {
	for i := range t.points {
		t.points[i] = nil
	}
	t.next = 0
	t.full = false
}
