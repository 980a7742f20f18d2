package yolov5

import (
	"cmp"
	"slices"
)

// DetectionBoxes stores decoded candidates as parallel slices, one entry
// per candidate. Keeping coordinates in separate slices lets the
// suppression loop walk each of them linearly.
type DetectionBoxes struct {
	X1      []float32
	Y1      []float32
	X2      []float32
	Y2      []float32
	Scores  []float32
	Classes []int
}

// Len returns the number of candidates.
func (b *DetectionBoxes) Len() int {
	return len(b.X1)
}

// Append adds one candidate.
func (b *DetectionBoxes) Append(x1, y1, x2, y2, score float32, class int) {
	b.X1 = append(b.X1, x1)
	b.Y1 = append(b.Y1, y1)
	b.X2 = append(b.X2, x2)
	b.Y2 = append(b.Y2, y2)
	b.Scores = append(b.Scores, score)
	b.Classes = append(b.Classes, class)
}

// AppendCentered converts center/size boxes to LTRB and appends them
// with their scores and classes. All slices must have equal length.
func (b *DetectionBoxes) AppendCentered(cx, cy, w, h, scores []float32, classes []int) {
	x1, y1, x2, y2 := CenteredToLTRB(cx, cy, w, h)
	b.X1 = append(b.X1, x1...)
	b.Y1 = append(b.Y1, y1...)
	b.X2 = append(b.X2, x2...)
	b.Y2 = append(b.Y2, y2...)
	b.Scores = append(b.Scores, scores...)
	b.Classes = append(b.Classes, classes...)
}

// SortByScoreAndTrim keeps the n highest-scoring candidates. The kept
// candidates are stored in ascending score order.
func (b *DetectionBoxes) SortByScoreAndTrim(n int) {
	indices := make([]int, b.Len())
	for i := range indices {
		indices[i] = i
	}
	slices.SortFunc(indices, func(i, j int) int {
		return cmp.Compare(b.Scores[j], b.Scores[i])
	})
	if n < len(indices) {
		indices = indices[:n]
	}
	slices.Reverse(indices)

	b.X1 = gather(b.X1, indices)
	b.Y1 = gather(b.Y1, indices)
	b.X2 = gather(b.X2, indices)
	b.Y2 = gather(b.Y2, indices)
	b.Scores = gather(b.Scores, indices)
	b.Classes = gather(b.Classes, indices)
}

func gather[T any](src []T, indices []int) []T {
	out := make([]T, len(indices))
	for i, idx := range indices {
		out[i] = src[idx]
	}
	return out
}

// CenteredToLTRB converts boxes given as center and size into
// left/top/right/bottom coordinates.
func CenteredToLTRB(cx, cy, w, h []float32) (x1, y1, x2, y2 []float32) {
	n := len(cx)
	x1 = make([]float32, n)
	y1 = make([]float32, n)
	x2 = make([]float32, n)
	y2 = make([]float32, n)
	for i := 0; i < n; i++ {
		hw, hh := w[i]*0.5, h[i]*0.5
		x1[i] = cx[i] - hw
		y1[i] = cy[i] - hh
		x2[i] = cx[i] + hw
		y2[i] = cy[i] + hh
	}
	return x1, y1, x2, y2
}
