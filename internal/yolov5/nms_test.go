package yolov5

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNMS(t *testing.T) {
	tests := []struct {
		name  string
		boxes *DetectionBoxes
		iou   float32
		opts  NMSOptions
		want  []int
	}{
		{
			name:  "empty input",
			boxes: &DetectionBoxes{},
			iou:   0.5,
			want:  nil,
		},
		{
			name: "overlapping boxes of the same class keep the best",
			boxes: boxesOf(
				[6]float32{1, 1, 11, 11, 0.8, 0},
				[6]float32{0, 0, 10, 10, 0.9, 0},
			),
			iou:  0.5,
			want: []int{1},
		},
		{
			name: "overlapping boxes of different classes both survive",
			boxes: boxesOf(
				[6]float32{1, 1, 11, 11, 0.8, 1},
				[6]float32{0, 0, 10, 10, 0.9, 0},
			),
			iou:  0.5,
			want: []int{1, 0},
		},
		{
			name: "agnostic suppression ignores classes",
			boxes: boxesOf(
				[6]float32{1, 1, 11, 11, 0.8, 1},
				[6]float32{0, 0, 10, 10, 0.9, 0},
			),
			iou:  0.5,
			opts: NMSOptions{Agnostic: true},
			want: []int{1},
		},
		{
			name: "overlap below threshold is kept",
			boxes: boxesOf(
				[6]float32{0, 0, 10, 10, 0.9, 0},
				[6]float32{1, 1, 11, 11, 0.8, 0},
			),
			iou:  0.7,
			want: []int{0, 1},
		},
		{
			name: "disjoint boxes come back in descending score order",
			boxes: boxesOf(
				[6]float32{0, 0, 1, 1, 0.2, 0},
				[6]float32{5, 5, 6, 6, 0.6, 0},
				[6]float32{10, 10, 11, 11, 0.4, 0},
			),
			iou:  0.5,
			want: []int{1, 2, 0},
		},
		{
			name: "degenerate boxes never suppress each other",
			boxes: boxesOf(
				[6]float32{3, 3, 3, 3, 0.9, 0},
				[6]float32{3, 3, 3, 3, 0.8, 0},
			),
			iou:  0.5,
			want: []int{0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NMS(tt.boxes, tt.iou, tt.opts))
		})
	}
}

// TestNMS_ThresholdBoundary pins the comparison: a pair whose IoU equals
// the threshold survives, one just above it is suppressed.
func TestNMS_ThresholdBoundary(t *testing.T) {
	pair := func() *DetectionBoxes {
		return boxesOf(
			[6]float32{0, 0, 10, 10, 0.9, 0},
			[6]float32{1, 1, 11, 11, 0.8, 0},
		)
	}

	// Same float32 expression NMS evaluates for this pair.
	var inter, areaA, areaB float32 = 81, 100, 100
	iou := inter / (areaA + areaB - inter + DefaultEpsilon)

	assert.Equal(t, []int{0, 1}, NMS(pair(), iou, NMSOptions{}), "IoU == threshold is kept")

	below := math.Nextafter32(iou, 0)
	assert.Equal(t, []int{0}, NMS(pair(), below, NMSOptions{}), "IoU above threshold is suppressed")
}

// TestNMS_MaxDetections checks the per-image output cap.
func TestNMS_MaxDetections(t *testing.T) {
	b := &DetectionBoxes{}
	for i := 0; i < MaxDetections+100; i++ {
		x := float32(i * 20)
		b.Append(x, 0, x+10, 10, float32(i)/1000, 0)
	}

	keep := NMS(b, 0.5, NMSOptions{})

	assert.Len(t, keep, MaxDetections)
	// Highest score was appended last.
	assert.Equal(t, MaxDetections+99, keep[0])
}

func TestNMSOptions_Epsilon(t *testing.T) {
	assert.Equal(t, DefaultEpsilon, NMSOptions{}.epsilon())
	assert.Equal(t, float32(0.1), NMSOptions{Epsilon: 0.1}.epsilon())
}
