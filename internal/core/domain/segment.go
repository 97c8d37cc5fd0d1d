package domain

import "fmt"

// Segment is the half-open span [From, To) of stop orders on a route.
type Segment struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// NewSegment validates that boarding comes strictly before alighting.
func NewSegment(from, to int) (Segment, error) {
	if from >= to {
		return Segment{}, fmt.Errorf("%w: boarding order %d must be before alighting order %d", ErrInvalidSegment, from, to)
	}
	return Segment{From: from, To: to}, nil
}

// Overlaps reports whether two segments share any stretch of the route.
// Touching endpoints do not overlap, so a seat released at a stop can be resold from it.
func (s Segment) Overlaps(o Segment) bool {
	return !(s.To <= o.From || s.From >= o.To)
}

func (s Segment) String() string {
	return fmt.Sprintf("[%d,%d)", s.From, s.To)
}
