package nn

import "math"

// Layout assigns positions to neurons.
type Layout interface {
	Apply(neurons []*Neuron)
}

type LineLayout struct {
	Spacing float64
	OriginX float64
	OriginY float64
}

func (l LineLayout) Apply(neurons []*Neuron) {
	for i, n := range neurons {
		n.X = l.OriginX + float64(i)*l.Spacing
		n.Y = l.OriginY
	}
}

// GridLayout fills rows left to right. Columns <= 0 picks the smallest
// square grid that fits.
type GridLayout struct {
	Columns  int
	HSpacing float64
	VSpacing float64
	OriginX  float64
	OriginY  float64
}

func (l GridLayout) Apply(neurons []*Neuron) {
	cols := l.Columns
	if cols <= 0 {
		cols = int(math.Ceil(math.Sqrt(float64(len(neurons)))))
	}
	if cols == 0 {
		return
	}
	for i, n := range neurons {
		n.X = l.OriginX + float64(i%cols)*l.HSpacing
		n.Y = l.OriginY + float64(i/cols)*l.VSpacing
	}
}

// Distance is the Euclidean distance between two neuron positions.
func Distance(a, b *Neuron) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
