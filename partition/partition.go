// Package partition implements the die-partitioning geometry shared by
// the SA detail placer and the negotiated-congestion router: a 2x2
// quadrant grid, then vertical and horizontal half-splits, then one
// global partition, executed as successive parallel phases joined by a
// barrier before the next phase starts.
package partition

import "os"

// Box is an inclusive tile-coordinate rectangle.
type Box struct {
	X0, Y0, X1, Y1 int
}

// Contains reports whether (x,y) falls inside b.
func (b Box) Contains(x, y int) bool {
	return x >= b.X0 && x <= b.X1 && y >= b.Y0 && y <= b.Y1
}

// Phase is one synchronised round of partitions: every Box in a Phase is
// processed by its own worker concurrently; the caller joins all workers
// before moving to the next Phase.
type Phase struct {
	Name   string
	Boxes  []Box
	Global bool // true for the final single-threaded catch-all pass
}

// PlanAt builds the ordered list of phases for a device of the given
// size, split at an explicit (midX, midY): quadrants, then vertical
// halves, then horizontal halves, then one global (single-threaded)
// partition that also catches anything spanning a boundary. Callers
// pass the median of their nets' or cells' positions as the split
// point, so each side of a split carries a balanced work share rather
// than a balanced tile share. Degenerate (empty) boxes from very small
// devices or extreme medians are dropped.
func PlanAt(midX, midY, width, height int) []Phase {
	if midX < 1 {
		midX = 1
	}
	if midX > width-1 && width > 1 {
		midX = width - 1
	}
	if midY < 1 {
		midY = 1
	}
	if midY > height-1 && height > 1 {
		midY = height - 1
	}
	maxX, maxY := width-1, height-1

	quadrants := []Box{
		{0, 0, midX - 1, midY - 1},
		{midX, 0, maxX, midY - 1},
		{0, midY, midX - 1, maxY},
		{midX, midY, maxX, maxY},
	}
	vertical := []Box{
		{0, 0, midX - 1, maxY},
		{midX, 0, maxX, maxY},
	}
	horizontal := []Box{
		{0, 0, maxX, midY - 1},
		{0, midY, maxX, maxY},
	}
	global := []Box{{0, 0, maxX, maxY}}

	return []Phase{
		{Name: "quadrants", Boxes: nonEmpty(quadrants)},
		{Name: "vertical", Boxes: nonEmpty(vertical)},
		{Name: "horizontal", Boxes: nonEmpty(horizontal)},
		{Name: "global", Boxes: global, Global: true},
	}
}

// Plan is PlanAt split at the geometric centre, for callers with no
// position distribution to balance against.
func Plan(width, height int) []Phase {
	return PlanAt(width/2, height/2, width, height)
}

func nonEmpty(boxes []Box) []Box {
	out := boxes[:0]
	for _, b := range boxes {
		if b.X1 >= b.X0 && b.Y1 >= b.Y0 {
			out = append(out, b)
		}
	}
	return out
}

// MinNetsForThreading disables threading for designs too small to
// amortise it; the placer and router share the gate.
const MinNetsForThreading = 200

// UseThreads applies both threading gates: the design-size floor and
// the NPNR_DISABLE_THREADS environment override used for reproducible
// single-threaded runs.
func UseThreads(netCount int) bool {
	if netCount < MinNetsForThreading {
		return false
	}
	return os.Getenv("NPNR_DISABLE_THREADS") == ""
}
