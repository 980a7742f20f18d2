package yolov5

import (
	"cmp"
	"slices"
)

const (
	// MaxDetections bounds how many boxes NMS keeps per image.
	MaxDetections = 300

	// maxWH is the per-class coordinate offset used for class-aware NMS.
	// Shifting every class into its own 7680px band makes boxes of
	// different classes never overlap.
	maxWH = 7680

	// DefaultEpsilon is added to the IoU denominator.
	DefaultEpsilon float32 = 1e-5
)

// NMSOptions tunes suppression. The zero value means class-aware NMS with
// DefaultEpsilon.
type NMSOptions struct {
	// Epsilon keeps the IoU denominator away from zero. Zero selects
	// DefaultEpsilon.
	Epsilon float32

	// Agnostic suppresses across classes when true.
	Agnostic bool
}

func (o NMSOptions) epsilon() float32 {
	if o.Epsilon == 0 {
		return DefaultEpsilon
	}
	return o.Epsilon
}

// NMS runs greedy Non-Maximum Suppression (the Malisiewicz et al.
// formulation) and returns the indices of the kept candidates in the
// order they were selected, highest score first.
//
// A candidate is discarded when its IoU with an already selected box is
// strictly greater than iouThreshold.
func NMS(boxes *DetectionBoxes, iouThreshold float32, opts NMSOptions) []int {
	n := boxes.Len()
	if n == 0 {
		return nil
	}
	eps := opts.epsilon()

	x1 := make([]float32, n)
	y1 := make([]float32, n)
	x2 := make([]float32, n)
	y2 := make([]float32, n)
	areas := make([]float32, n)
	for i := 0; i < n; i++ {
		var off float32
		if !opts.Agnostic {
			off = float32(boxes.Classes[i]) * maxWH
		}
		x1[i] = boxes.X1[i] + off
		y1[i] = boxes.Y1[i] + off
		x2[i] = boxes.X2[i] + off
		y2[i] = boxes.Y2[i] + off
		areas[i] = max(0, x2[i]-x1[i]) * max(0, y2[i]-y1[i])
	}

	// Ascending by score so the best candidate is always at the tail.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(i, j int) int {
		return cmp.Compare(boxes.Scores[i], boxes.Scores[j])
	})

	keep := make([]int, 0, min(n, MaxDetections))
	for len(order) > 0 && len(keep) < MaxDetections {
		cur := order[len(order)-1]
		order = order[:len(order)-1]
		keep = append(keep, cur)

		remaining := order[:0]
		for _, i := range order {
			w := max(0, min(x2[cur], x2[i])-max(x1[cur], x1[i]))
			h := max(0, min(y2[cur], y2[i])-max(y1[cur], y1[i]))
			inter := w * h
			iou := inter / (areas[cur] + areas[i] - inter + eps)
			if iou <= iouThreshold {
				remaining = append(remaining, i)
			}
		}
		order = remaining
	}

	return keep
}
