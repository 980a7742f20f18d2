package cli

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furiosa-ai/mlperf-postprocess/internal/config"
	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
)

// writeNPY writes a little-endian float32 .npy (format 1.0) with shape.
func writeNPY(t *testing.T, path string, shape []int, data []float32) {
	t.Helper()

	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprint(d)
	}
	shapeStr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeStr += ","
	}
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%s), }", shapeStr)
	// magic(6) + version(2) + length(2) + header + '\n' is padded to 64 bytes.
	pad := 64 - (10+len(header)+1)%64
	header += strings.Repeat(" ", pad%64) + "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY\x01\x00")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(header))))
	buf.WriteString(header)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, data))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// writeHeads writes three single-class [1,3,2,2,6] heads; only layer 0,
// anchor 0, cell (1,1) carries a detection.
func writeHeads(t *testing.T, dir string) []string {
	t.Helper()
	shape := []int{1, 3, 2, 2, 6}
	paths := make([]string, 3)
	for l := range paths {
		data := make([]float32, 3*2*2*6)
		if l == 0 {
			// offset of [0, 0, 1, 1, :]
			off := (1*2 + 1) * 6
			copy(data[off:], []float32{0.5, 0.5, 0.5, 0.5, 0.95, 0.9})
		}
		paths[l] = filepath.Join(dir, fmt.Sprintf("p%d.npy", l+3))
		writeNPY(t, paths[l], shape, data)
	}
	return paths
}

func resetGlobals(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		jsonOutput = false
		verbose = false
		configPath = ""
		dryRun = false
	})
}

func TestFormatClass(t *testing.T) {
	assert.Equal(t, "person", FormatClass(model.DetectionResult{Class: 0, Label: "person"}))
	assert.Equal(t, "7", FormatClass(model.DetectionResult{Class: 7}))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "8.00x12.00", FormatSize(model.BoundingBox{Left: 8, Top: 8, Right: 16, Bottom: 20}))
	assert.Equal(t, "0.00x0.00", FormatSize(model.BoundingBox{Left: 5, Top: 5, Right: 1, Bottom: 1}))
}

func TestPrintEvalResultText(t *testing.T) {
	results := []model.DetectionResults{
		{
			{Index: 3, Box: model.BoundingBox{Left: 8, Top: 8, Right: 16, Bottom: 16}, Score: 0.855, Class: 0, Label: "person"},
		},
		nil,
	}

	var buf bytes.Buffer
	printEvalResultText(&buf, results)

	want := "image 0: 1 detections, 1 classes\n" +
		"INDEX  CLASS                SCORE    SIZE           BOX\n" +
		"3      person               0.8550   8.00x8.00      [8.00, 8.00, 16.00, 16.00]\n" +
		"\n" +
		"image 1: 0 detections, 0 classes\n"
	assert.Equal(t, want, buf.String())
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coco.names")
	require.NoError(t, os.WriteFile(path, []byte("person\n\nbicycle\n  car  \n\n\n"), 0o644))

	labels, err := loadLabels(path)
	require.NoError(t, err)
	// The blank second line still occupies class 1.
	assert.Equal(t, []string{"person", "", "bicycle", "car"}, labels)
	assert.Equal(t, "bicycle", model.LabelFor(labels, 2))

	_, err = loadLabels(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRunEval_Text(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	paths := writeHeads(t, dir)

	labelPath := filepath.Join(dir, "labels.txt")
	require.NoError(t, os.WriteFile(labelPath, []byte("person\n"), 0o644))

	pp := config.Default().Postprocess
	pp.Labels = labelPath

	var buf bytes.Buffer
	require.NoError(t, runEval(&buf, pp, paths))

	out := buf.String()
	assert.Contains(t, out, "image 0: 1 detections, 1 classes")
	assert.Contains(t, out, "10.00x13.00")
	assert.Contains(t, out, "person")
	assert.Contains(t, out, "0.8550")
	// cx = (0.5*2 - 0.5 + 1) * 8 = 12, w = 4 * 0.25 * (10/8) * 8 = 10
	assert.Contains(t, out, "[7.00, 5.50, 17.00, 18.50]")
}

func TestRunEval_JSON(t *testing.T) {
	resetGlobals(t)
	jsonOutput = true
	paths := writeHeads(t, t.TempDir())

	var buf bytes.Buffer
	require.NoError(t, runEval(&buf, config.Default().Postprocess, paths))

	var got struct {
		Images []struct {
			Image      int                    `json:"image"`
			Detections model.DetectionResults `json:"detections"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Images, 1)
	require.Len(t, got.Images[0].Detections, 1)
	d := got.Images[0].Detections[0]
	assert.Equal(t, 0, d.Class)
	assert.InDelta(t, 0.855, d.Score, 1e-5)
	assert.InDelta(t, 7.0, d.Box.Left, 1e-4)
	assert.Empty(t, d.Label)
}

func TestRunEval_Errors(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	paths := writeHeads(t, dir)

	t.Run("threshold out of range", func(t *testing.T) {
		pp := config.Default().Postprocess
		pp.IOUThreshold = 1.5
		err := runEval(&bytes.Buffer{}, pp, paths)
		assert.Equal(t, model.ExitInvalidInput, model.ExitCodeOf(err))
	})

	t.Run("missing input file", func(t *testing.T) {
		err := runEval(&bytes.Buffer{}, config.Default().Postprocess, []string{filepath.Join(dir, "nope.npy")})
		assert.Equal(t, model.ExitInvalidInput, model.ExitCodeOf(err))
	})

	t.Run("wrong layer count", func(t *testing.T) {
		err := runEval(&bytes.Buffer{}, config.Default().Postprocess, paths[:2])
		assert.Equal(t, model.ExitInvalidInput, model.ExitCodeOf(err))
	})

	t.Run("bad anchors", func(t *testing.T) {
		pp := config.Default().Postprocess
		pp.Anchors = [][][]float32{{{1, 2, 3}}}
		pp.Strides = []float32{8}
		err := runEval(&bytes.Buffer{}, pp, paths)
		assert.Equal(t, model.ExitConfigError, model.ExitCodeOf(err))
	})
}

func TestMergeEvalFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Workspace = "/work"
	cfg.Postprocess.Labels = "coco.names"
	cfg.Postprocess.Agnostic = true

	cmd := NewEvalCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--iou-threshold", "0.6"}))

	pp := mergeEvalFlags(cmd, cfg, &evalFlags{iouThreshold: 0.6})
	assert.InDelta(t, 0.25, pp.ConfThreshold, 1e-6, "unset flag keeps config value")
	assert.InDelta(t, 0.6, pp.IOUThreshold, 1e-6)
	assert.True(t, pp.Agnostic)
	assert.Equal(t, filepath.Join("/work", "coco.names"), pp.Labels)
}
