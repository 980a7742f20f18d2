package model

import "fmt"

// BoundingBox is an axis-aligned box in input-image pixel coordinates,
// stored as left/top/right/bottom (LTRB).
type BoundingBox struct {
	Left   float32 `json:"left"`
	Top    float32 `json:"top"`
	Right  float32 `json:"right"`
	Bottom float32 `json:"bottom"`
}

// Width returns the box width, clamped at zero for degenerate boxes.
func (b BoundingBox) Width() float32 {
	if w := b.Right - b.Left; w > 0 {
		return w
	}
	return 0
}

// Height returns the box height, clamped at zero for degenerate boxes.
func (b BoundingBox) Height() float32 {
	if h := b.Bottom - b.Top; h > 0 {
		return h
	}
	return 0
}

// String renders the box as "[left, top, right, bottom]".
func (b BoundingBox) String() string {
	return fmt.Sprintf("[%.2f, %.2f, %.2f, %.2f]", b.Left, b.Top, b.Right, b.Bottom)
}

// DetectionResult is a single object detected in one image.
type DetectionResult struct {
	// Index is the position of the detection among the decoded candidates
	// of its image, before suppression.
	Index int `json:"index"`

	Box   BoundingBox `json:"box"`
	Score float32     `json:"score"`
	Class int         `json:"class"`

	// Label is the human-readable class name, filled only when a label
	// file was supplied.
	Label string `json:"label,omitempty"`
}

// DetectionResults holds every detection kept for one image, in the order
// they survived suppression (descending score).
type DetectionResults []DetectionResult

// Classes returns the distinct class IDs present, in first-seen order.
func (r DetectionResults) Classes() []int {
	seen := make(map[int]struct{}, len(r))
	classes := make([]int, 0, len(r))
	for _, d := range r {
		if _, ok := seen[d.Class]; ok {
			continue
		}
		seen[d.Class] = struct{}{}
		classes = append(classes, d.Class)
	}
	return classes
}

// WithLabels returns a copy of r with Label set from labels, using
// "unknown" for class IDs outside the label list.
func (r DetectionResults) WithLabels(labels []string) DetectionResults {
	out := make(DetectionResults, len(r))
	for i, d := range r {
		d.Label = LabelFor(labels, d.Class)
		out[i] = d
	}
	return out
}

// LabelFor returns labels[class] or "unknown" when class is out of range.
func LabelFor(labels []string, class int) string {
	if class >= 0 && class < len(labels) {
		return labels[class]
	}
	return "unknown"
}
