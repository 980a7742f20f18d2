package yolov5

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/furiosa-ai/mlperf-postprocess/internal/tensor"
)

// newHead allocates a zeroed [batch, anchors, ny, nx, 5+classes] output.
func newHead(t *testing.T, batch, anchors, ny, nx, classes int) *tensor.Tensor {
	t.Helper()
	out, err := tensor.Zeros(batch, anchors, ny, nx, numBoxFields+classes)
	require.NoError(t, err)
	return out
}

// setCell writes one innermost vector: box, objectness, then class confs.
func setCell(head *tensor.Tensor, b, a, y, x int, bx, by, bw, bh, obj float32, classConfs ...float32) {
	row := head.Row(b, a, y, x)
	row[0], row[1], row[2], row[3], row[4] = bx, by, bw, bh, obj
	copy(row[numBoxFields:], classConfs)
}

// boxesOf builds DetectionBoxes from LTRB rows.
func boxesOf(rows ...[6]float32) *DetectionBoxes {
	b := &DetectionBoxes{}
	for _, r := range rows {
		b.Append(r[0], r[1], r[2], r[3], r[4], int(r[5]))
	}
	return b
}
