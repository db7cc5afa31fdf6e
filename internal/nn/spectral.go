package nn

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	powerIterations = 1000
	powerTolerance  = 1e-10
)

// SpectralRadius returns the largest eigenvalue magnitude of the square
// matrix m.
func SpectralRadius(m mat.Matrix) (float64, error) {
	r, c := m.Dims()
	if r != c {
		return 0, fmt.Errorf("%w: spectral radius needs a square matrix, got %dx%d", ErrInvalidParameter, r, c)
	}
	if r == 0 {
		return 0, nil
	}

	var eig mat.Eigen
	if eig.Factorize(m, mat.EigenNone) {
		radius := 0.0
		for _, v := range eig.Values(nil) {
			radius = math.Max(radius, cmplx.Abs(v))
		}
		return radius, nil
	}
	return powerIteration(m, r), nil
}

// powerIteration estimates the dominant magnitude. It is only used when the
// eigen decomposition fails to converge.
func powerIteration(m mat.Matrix, n int) float64 {
	x := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x.SetVec(i, 1/math.Sqrt(float64(n)))
	}
	next := mat.NewVecDense(n, nil)
	estimate := 0.0
	for i := 0; i < powerIterations; i++ {
		next.MulVec(m, x)
		norm := floats.Norm(next.RawVector().Data, 2)
		if norm == 0 {
			return 0
		}
		next.ScaleVec(1/norm, next)
		x, next = next, x
		if math.Abs(norm-estimate) < powerTolerance {
			return norm
		}
		estimate = norm
	}
	return estimate
}

// ScaleSpectralRadius rescales the synapses among group so the spectral
// radius of their weight matrix equals target. It returns the radius before
// scaling; an all-zero matrix is left untouched.
func ScaleSpectralRadius(group []*Neuron, target float64) (float64, error) {
	if target < 0 {
		return 0, fmt.Errorf("%w: target spectral radius must be >= 0", ErrInvalidParameter)
	}
	actual, err := SpectralRadius(WeightMatrix(group, group))
	if err != nil {
		return 0, err
	}
	if actual == 0 {
		return 0, nil
	}
	factor := target / actual
	members := make(map[*Neuron]struct{}, len(group))
	for _, n := range group {
		members[n] = struct{}{}
	}
	for _, n := range group {
		for _, s := range n.fanOut {
			if _, ok := members[s.target]; !ok {
				continue
			}
			scaled := s.strength * factor
			if math.Abs(scaled) > s.upperBound || -math.Abs(scaled) < s.lowerBound {
				bound := math.Max(math.Abs(s.upperBound), math.Abs(s.lowerBound))
				bound = math.Max(bound, math.Abs(scaled))
				s.lowerBound, s.upperBound = -bound, bound
			}
			s.strength = scaled
		}
	}
	return actual, nil
}
