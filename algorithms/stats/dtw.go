package stats

import (
	"fmt"
	"math"
)

// StepPattern selects which predecessor cells a DTW cell may extend
type StepPattern string

const (
	// Symmetric2 allows (i-1,j), (i,j-1) and (i-1,j-1)
	Symmetric2 StepPattern = "symmetric2"
	// Asymmetric allows only (i-1,j) and (i,j-1)
	Asymmetric StepPattern = "asymmetric"
)

// DTWAlignment represents Dynamic Time Warping alignment
type DTWAlignment struct {
	constraintBand int // Sakoe-Chiba band radius, <= 0 disables
	stepPattern    StepPattern
	distance       DistanceFunction
}

// DTWResult contains DTW alignment results
type DTWResult struct {
	Distance    float64      `json:"distance"`     // Total cost divided by path length
	Path        []AlignPoint `json:"path"`         // Optimal alignment path
	QueryLength int          `json:"query_length"` // Length of query sequence
	RefLength   int          `json:"ref_length"`   // Length of reference sequence
}

// AlignPoint represents a point in the alignment path
type AlignPoint struct {
	QueryIndex int     `json:"query_index"` // Index in query sequence
	RefIndex   int     `json:"ref_index"`   // Index in reference sequence
	Cost       float64 `json:"cost"`        // Local cost at this point
}

// NewDTWAlignment creates a new DTW alignment instance
func NewDTWAlignment() *DTWAlignment {
	return NewDTWAlignmentWithParams(-1, Symmetric2, EuclideanDistance)
}

// NewDTWAlignmentWithParams creates DTW with custom parameters
func NewDTWAlignmentWithParams(constraintBand int, stepPattern StepPattern, metric DistanceMetric) *DTWAlignment {
	return &DTWAlignment{
		constraintBand: constraintBand,
		stepPattern:    stepPattern,
		distance:       GetDistanceFunction(metric),
	}
}

// band returns the effective Sakoe-Chiba radius. It is widened to the length
// difference so that the end cell stays reachable.
func (dtw *DTWAlignment) band(queryLen, refLen int) int {
	if dtw.constraintBand <= 0 {
		return max(queryLen, refLen)
	}
	diff := queryLen - refLen
	if diff < 0 {
		diff = -diff
	}
	return max(dtw.constraintBand, diff)
}

func (dtw *DTWAlignment) predecessor(diag, up, left float64) (float64, error) {
	switch dtw.stepPattern {
	case Symmetric2, "":
		return math.Min(math.Min(up, left), diag), nil
	case Asymmetric:
		return math.Min(up, left), nil
	default:
		return 0, fmt.Errorf("unknown step pattern: %s", dtw.stepPattern)
	}
}

// Distance returns the accumulated DTW cost divided by queryLen+refLen.
// It keeps only two rows of the cost matrix and never builds a path.
func (dtw *DTWAlignment) Distance(query, reference [][]float64) (float64, error) {
	if len(query) == 0 || len(reference) == 0 {
		return 0, fmt.Errorf("empty sequences provided")
	}

	queryLen, refLen := len(query), len(reference)
	radius := dtw.band(queryLen, refLen)

	prev := make([]float64, refLen+1)
	curr := make([]float64, refLen+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= queryLen; i++ {
		for j := range curr {
			curr[j] = math.Inf(1)
		}
		lo := max(1, i-radius)
		hi := min(refLen, i+radius)
		for j := lo; j <= hi; j++ {
			step, err := dtw.predecessor(prev[j-1], prev[j], curr[j-1])
			if err != nil {
				return 0, err
			}
			curr[j] = dtw.distance(query[i-1], reference[j-1]) + step
		}
		prev, curr = curr, prev
	}

	total := prev[refLen]
	if math.IsInf(total, 1) {
		return 0, fmt.Errorf("no alignment path within band %d", radius)
	}
	return total / float64(queryLen+refLen), nil
}

// Align performs DTW alignment between two sequences and recovers the path
func (dtw *DTWAlignment) Align(query, reference [][]float64) (*DTWResult, error) {
	if len(query) == 0 || len(reference) == 0 {
		return nil, fmt.Errorf("empty sequences provided")
	}

	queryLen, refLen := len(query), len(reference)
	radius := dtw.band(queryLen, refLen)

	costMatrix := make([][]float64, queryLen+1)
	for i := range costMatrix {
		costMatrix[i] = make([]float64, refLen+1)
		for j := range costMatrix[i] {
			costMatrix[i][j] = math.Inf(1)
		}
	}
	costMatrix[0][0] = 0

	for i := 1; i <= queryLen; i++ {
		lo := max(1, i-radius)
		hi := min(refLen, i+radius)
		for j := lo; j <= hi; j++ {
			step, err := dtw.predecessor(costMatrix[i-1][j-1], costMatrix[i-1][j], costMatrix[i][j-1])
			if err != nil {
				return nil, fmt.Errorf("failed to fill cost matrix: %w", err)
			}
			costMatrix[i][j] = dtw.distance(query[i-1], reference[j-1]) + step
		}
	}

	if math.IsInf(costMatrix[queryLen][refLen], 1) {
		return nil, fmt.Errorf("no alignment path within band %d", radius)
	}

	path := dtw.backtrack(costMatrix, queryLen, refLen)

	return &DTWResult{
		Distance:    costMatrix[queryLen][refLen] / float64(len(path)),
		Path:        path,
		QueryLength: queryLen,
		RefLength:   refLen,
	}, nil
}

// backtrack walks from the end cell to the origin along the cheapest predecessors
func (dtw *DTWAlignment) backtrack(costMatrix [][]float64, i, j int) []AlignPoint {
	var path []AlignPoint

	for i > 0 && j > 0 {
		path = append(path, AlignPoint{
			QueryIndex: i - 1,
			RefIndex:   j - 1,
			Cost:       costMatrix[i][j],
		})

		diag, up, left := costMatrix[i-1][j-1], costMatrix[i-1][j], costMatrix[i][j-1]
		switch {
		case dtw.stepPattern != Asymmetric && diag <= up && diag <= left:
			i, j = i-1, j-1
		case up <= left:
			i--
		default:
			j--
		}
	}

	// collected end to start
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// scalarSequence lifts a 1D series into single-dimension points
func scalarSequence(values []float64) [][]float64 {
	points := make([][]float64, len(values))
	for i := range values {
		points[i] = values[i : i+1 : i+1]
	}
	return points
}

// AlignVectors aligns two 1D feature vectors
func (dtw *DTWAlignment) AlignVectors(query, reference []float64) (*DTWResult, error) {
	return dtw.Align(scalarSequence(query), scalarSequence(reference))
}

// VectorDistance is Distance for two 1D series
func (dtw *DTWAlignment) VectorDistance(query, reference []float64) (float64, error) {
	return dtw.Distance(scalarSequence(query), scalarSequence(reference))
}
