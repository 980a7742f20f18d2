// Package yolov5 implements detection postprocessing for YOLOv5 heads:
// decoding raw per-layer output tensors into scored boxes and reducing
// them with class-aware Non-Maximum Suppression.
//
// Each detection layer produces a tensor shaped
// [batch, anchors, gridY, gridX, 5+classes] where the innermost vector is
// (bx, by, bw, bh, objectness, classConf...), all already passed through a
// sigmoid. Decoding follows the YOLOv5 export head:
//
//	xy = (b.xy*2 - 0.5 + grid) * stride
//	wh = (b.wh*2)^2 * anchor * stride
//
// A candidate is emitted for every class whose classConf*objectness
// exceeds the confidence threshold, so one cell can yield several boxes.
package yolov5
