package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DistanceMetric represents different distance measures between feature points
type DistanceMetric int

const (
	EuclideanDistance DistanceMetric = iota
	ManhattanDistance
	ChebyshevDistance
	CosineDistance
)

// DistanceFunction is a function type for computing distance between two vectors
type DistanceFunction func(a, b []float64) float64

// GetDistanceFunction returns the appropriate distance function for the given metric
func GetDistanceFunction(metric DistanceMetric) DistanceFunction {
	switch metric {
	case EuclideanDistance:
		return EuclideanDistanceFunc
	case ManhattanDistance:
		return ManhattanDistanceFunc
	case ChebyshevDistance:
		return ChebyshevDistanceFunc
	case CosineDistance:
		return CosineDistanceFunc
	default:
		return EuclideanDistanceFunc
	}
}

// ParseDistanceMetric maps a configuration name onto a metric
func ParseDistanceMetric(name string) (DistanceMetric, bool) {
	switch name {
	case "", "euclidean":
		return EuclideanDistance, true
	case "manhattan":
		return ManhattanDistance, true
	case "chebyshev":
		return ChebyshevDistance, true
	case "cosine":
		return CosineDistance, true
	default:
		return EuclideanDistance, false
	}
}

// EuclideanDistanceFunc calculates Euclidean (L2) distance between two points
func EuclideanDistanceFunc(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// ManhattanDistanceFunc calculates Manhattan (L1) distance between two points
func ManhattanDistanceFunc(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}

// ChebyshevDistanceFunc calculates the largest per-dimension difference
func ChebyshevDistanceFunc(a, b []float64) float64 {
	return floats.Distance(a, b, math.Inf(1))
}

// CosineDistanceFunc calculates cosine distance (1 - cosine similarity)
func CosineDistanceFunc(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - floats.Dot(a, b)/(normA*normB)
}
