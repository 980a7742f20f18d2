package yolov5

import (
	"fmt"
	"sync"

	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
	"github.com/furiosa-ai/mlperf-postprocess/internal/tensor"
)

const (
	// MaxDecodedBoxes caps the number of candidates a single BoxDecode
	// call produces across all layers and images.
	MaxDecodedBoxes = 10_000

	// MaxNMSInput caps the candidates per image handed to NMS; lower
	// scoring candidates beyond it are dropped first.
	MaxNMSInput = 30_000

	// numBoxFields is the (bx, by, bw, bh, objectness) prefix of every
	// innermost output vector.
	numBoxFields = 5
)

// Postprocessor decodes and suppresses YOLOv5 detection head outputs.
// A Postprocessor is immutable after New and safe for concurrent use.
type Postprocessor struct {
	// anchors[layer][anchor] = (w, h) in stride units.
	anchors [][][2]float32
	strides []float32
}

// New validates anchors against strides and builds a Postprocessor.
// anchors is indexed [layer][anchor] and every layer must declare the
// same number of anchors.
func New(anchors [][][2]float32, strides []float32) (*Postprocessor, error) {
	if len(anchors) == 0 {
		return nil, fmt.Errorf("yolov5: at least one detection layer is required")
	}
	if len(anchors) != len(strides) {
		return nil, fmt.Errorf("yolov5: %d anchor layers but %d strides", len(anchors), len(strides))
	}
	numAnchors := len(anchors[0])
	for l, layer := range anchors {
		if len(layer) == 0 {
			return nil, fmt.Errorf("yolov5: layer %d has no anchors", l)
		}
		if len(layer) != numAnchors {
			return nil, fmt.Errorf("yolov5: layer %d has %d anchors, layer 0 has %d", l, len(layer), numAnchors)
		}
	}
	for l, s := range strides {
		if s <= 0 {
			return nil, fmt.Errorf("yolov5: stride %d must be positive, got %v", l, s)
		}
	}

	p := &Postprocessor{
		anchors: make([][][2]float32, len(anchors)),
		strides: append([]float32(nil), strides...),
	}
	for l, layer := range anchors {
		p.anchors[l] = append([][2]float32(nil), layer...)
	}
	return p, nil
}

// AnchorsFromNested converts a [layer][anchor][w, h] nested slice, as read
// from configuration files, into the fixed-size form New expects.
func AnchorsFromNested(nested [][][]float32) ([][][2]float32, error) {
	out := make([][][2]float32, len(nested))
	for l, layer := range nested {
		out[l] = make([][2]float32, len(layer))
		for a, wh := range layer {
			if len(wh) != 2 {
				return nil, fmt.Errorf("yolov5: anchors' last dimension must be 2, layer %d anchor %d has %d", l, a, len(wh))
			}
			out[l][a] = [2]float32{wh[0], wh[1]}
		}
	}
	return out, nil
}

// NumLayers returns the number of detection layers.
func (p *Postprocessor) NumLayers() int {
	return len(p.anchors)
}

// NumAnchors returns the anchors per layer.
func (p *Postprocessor) NumAnchors() int {
	return len(p.anchors[0])
}

// String summarizes the layer layout.
func (p *Postprocessor) String() string {
	return fmt.Sprintf("Postprocessor{num_detection_layers: %d, num_anchor: %d, strides: %v}",
		p.NumLayers(), p.NumAnchors(), p.strides)
}

// Validate checks that inputs match the layer layout and returns the batch
// size shared by all of them.
func (p *Postprocessor) Validate(inputs []*tensor.Tensor) (int, error) {
	if len(inputs) != p.NumLayers() {
		return 0, model.NewCLIError(model.ExitInvalidInput,
			fmt.Sprintf("expected %d input tensors (one per detection layer), got %d", p.NumLayers(), len(inputs)))
	}
	batch := -1
	for l, in := range inputs {
		if in == nil {
			return 0, model.NewCLIError(model.ExitInvalidInput, fmt.Sprintf("input %d is nil", l))
		}
		if in.NumDims() != 5 {
			return 0, model.NewCLIError(model.ExitInvalidInput,
				fmt.Sprintf("input %d: expected 5 dimensions [batch, anchors, y, x, 5+classes], got shape %v", l, in.Shape()))
		}
		if in.Dim(1) != p.NumAnchors() {
			return 0, model.NewCLIError(model.ExitInvalidInput,
				fmt.Sprintf("input %d: anchor dimension is %d, postprocessor has %d anchors", l, in.Dim(1), p.NumAnchors()))
		}
		if in.Dim(4) < numBoxFields {
			return 0, model.NewCLIError(model.ExitInvalidInput,
				fmt.Sprintf("input %d: innermost dimension %d is shorter than %d", l, in.Dim(4), numBoxFields))
		}
		if batch == -1 {
			batch = in.Dim(0)
		} else if in.Dim(0) != batch {
			return 0, model.NewCLIError(model.ExitInvalidInput,
				fmt.Sprintf("input %d: batch size %d differs from %d", l, in.Dim(0), batch))
		}
	}
	return batch, nil
}

// BoxDecode turns raw head outputs into LTRB candidates, one
// DetectionBoxes per image in the batch.
//
// Cells whose objectness is not above confThreshold are skipped. Decoding
// stops once MaxDecodedBoxes candidates have been produced; candidates
// collected up to that point are kept.
func (p *Postprocessor) BoxDecode(inputs []*tensor.Tensor, confThreshold float32) ([]DetectionBoxes, error) {
	batch, err := p.Validate(inputs)
	if err != nil {
		return nil, err
	}

	boxes := make([]DetectionBoxes, batch)
	total := 0

	for l, in := range inputs {
		stride := p.strides[l]
		ny, nx := in.Dim(2), in.Dim(3)

		for b := 0; b < batch; b++ {
			var cx, cy, w, h, scores []float32
			var classes []int
			full := false

		anchors:
			for a, anchor := range p.anchors[l] {
				aw, ah := anchor[0]*stride, anchor[1]*stride
				for y := 0; y < ny; y++ {
					for x := 0; x < nx; x++ {
						row := in.Row(b, a, y, x)
						obj := row[4]
						if obj <= confThreshold {
							continue
						}

						bcx := (row[0]*2 - 0.5 + float32(x)) * stride
						bcy := (row[1]*2 - 0.5 + float32(y)) * stride
						bw := 4 * row[2] * row[2] * aw
						bh := 4 * row[3] * row[3] * ah

						for c, conf := range row[numBoxFields:] {
							score := conf * obj
							if score <= confThreshold {
								continue
							}
							cx = append(cx, bcx)
							cy = append(cy, bcy)
							w = append(w, bw)
							h = append(h, bh)
							scores = append(scores, score)
							classes = append(classes, c)

							total++
							if total >= MaxDecodedBoxes {
								full = true
								break anchors
							}
						}
					}
				}
			}

			boxes[b].AppendCentered(cx, cy, w, h, scores, classes)
			if full {
				return boxes, nil
			}
		}
	}

	return boxes, nil
}

// Postprocess decodes the inputs and runs NMS per image. The returned
// slice has one entry per image in the batch. Images are suppressed
// concurrently.
func (p *Postprocessor) Postprocess(inputs []*tensor.Tensor, confThreshold, iouThreshold float32, opts NMSOptions) ([]model.DetectionResults, error) {
	boxes, err := p.BoxDecode(inputs, confThreshold)
	if err != nil {
		return nil, err
	}

	results := make([]model.DetectionResults, len(boxes))
	var wg sync.WaitGroup
	for i := range boxes {
		wg.Go(func() {
			dbox := &boxes[i]
			if dbox.Len() > MaxNMSInput {
				dbox.SortByScoreAndTrim(MaxNMSInput)
			}
			results[i] = toResults(dbox, NMS(dbox, iouThreshold, opts))
		})
	}
	wg.Wait()

	return results, nil
}

func toResults(b *DetectionBoxes, keep []int) model.DetectionResults {
	out := make(model.DetectionResults, 0, len(keep))
	for _, i := range keep {
		out = append(out, model.DetectionResult{
			Index: i,
			Box: model.BoundingBox{
				Left:   b.X1[i],
				Top:    b.Y1[i],
				Right:  b.X2[i],
				Bottom: b.Y2[i],
			},
			Score: b.Scores[i],
			Class: b.Classes[i],
		})
	}
	return out
}
