// Package cli — eval.go implements the "eval" command, which runs the
// YOLOv5 postprocessor over detection-head outputs stored as .npy files.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/furiosa-ai/mlperf-postprocess/internal/config"
	"github.com/furiosa-ai/mlperf-postprocess/internal/model"
	"github.com/furiosa-ai/mlperf-postprocess/internal/tensor"
	"github.com/furiosa-ai/mlperf-postprocess/internal/yolov5"
)

// evalFlags holds the flag values for the eval command. Unset flags fall
// back to the postprocess section of the config file.
type evalFlags struct {
	confThreshold float32
	iouThreshold  float32
	epsilon       float32
	agnostic      bool
	labels        string
}

// NewEvalCommand creates the "eval" command.
func NewEvalCommand() *cobra.Command {
	flags := &evalFlags{}

	cmd := &cobra.Command{
		Use:   "eval <head.npy>...",
		Short: "Decode YOLOv5 head outputs and run NMS",
		Long: `Run box decoding and non-maximum suppression over raw YOLOv5 outputs.

Each argument is one detection layer, in stride order, stored as a float32
.npy array shaped [batch, anchors, ny, nx, 5+classes]. Anchors and strides
come from the config file, or the stock YOLOv5 values when unset.

Examples:
  mlperf-postprocess eval p3.npy p4.npy p5.npy
  mlperf-postprocess eval --conf-threshold 0.001 --iou-threshold 0.6 p3.npy p4.npy p5.npy
  mlperf-postprocess eval --labels coco.names --json p3.npy p4.npy p5.npy`,

		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			pp := mergeEvalFlags(cmd, cfg, flags)
			return runEval(cmd.OutOrStdout(), pp, args)
		},
	}

	def := config.Default().Postprocess
	cmd.Flags().Float32Var(&flags.confThreshold, "conf-threshold", def.ConfThreshold, "Minimum objectness and class score")
	cmd.Flags().Float32Var(&flags.iouThreshold, "iou-threshold", def.IOUThreshold, "IoU above which overlapping boxes are suppressed")
	cmd.Flags().Float32Var(&flags.epsilon, "epsilon", yolov5.DefaultEpsilon, "Epsilon added to the IoU denominator")
	cmd.Flags().BoolVar(&flags.agnostic, "agnostic", false, "Suppress across classes")
	cmd.Flags().StringVar(&flags.labels, "labels", "", "Class-name file, one name per line")

	return cmd
}

// mergeEvalFlags overlays explicitly set flags on the config values.
func mergeEvalFlags(cmd *cobra.Command, cfg *config.Config, flags *evalFlags) config.PostprocessConfig {
	pp := cfg.Postprocess
	if pp.Labels != "" && !filepath.IsAbs(pp.Labels) {
		pp.Labels = filepath.Join(cfg.Workspace, pp.Labels)
	}

	f := cmd.Flags()
	if f.Changed("conf-threshold") {
		pp.ConfThreshold = flags.confThreshold
	}
	if f.Changed("iou-threshold") {
		pp.IOUThreshold = flags.iouThreshold
	}
	if f.Changed("epsilon") {
		pp.Epsilon = flags.epsilon
	}
	if f.Changed("agnostic") {
		pp.Agnostic = flags.agnostic
	}
	if f.Changed("labels") {
		pp.Labels = flags.labels
	}
	return pp
}

// newPostprocessor builds the postprocessor described by pp.
func newPostprocessor(pp config.PostprocessConfig) (*yolov5.Postprocessor, error) {
	if len(pp.Anchors) == 0 {
		return yolov5.NewDefault(), nil
	}
	anchors, err := yolov5.AnchorsFromNested(pp.Anchors)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid postprocess.anchors", err)
	}
	p, err := yolov5.New(anchors, pp.Strides)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid postprocess configuration", err)
	}
	return p, nil
}

func runEval(w io.Writer, pp config.PostprocessConfig, paths []string) error {
	if pp.ConfThreshold < 0 || pp.ConfThreshold > 1 || pp.IOUThreshold < 0 || pp.IOUThreshold > 1 {
		return model.NewCLIError(model.ExitInvalidInput,
			fmt.Sprintf("thresholds must be within [0, 1] (conf=%v, iou=%v)", pp.ConfThreshold, pp.IOUThreshold))
	}

	post, err := newPostprocessor(pp)
	if err != nil {
		return err
	}
	VerboseLog("Using %s", post)

	inputs := make([]*tensor.Tensor, 0, len(paths))
	for _, p := range paths {
		t, err := tensor.LoadNPY(p)
		if err != nil {
			return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("failed to load %s", p), err)
		}
		VerboseLog("Loaded %s: %s", p, t)
		inputs = append(inputs, t)
	}

	var labels []string
	if pp.Labels != "" {
		labels, err = loadLabels(pp.Labels)
		if err != nil {
			return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("failed to read labels %s", pp.Labels), err)
		}
	}

	results, err := post.Postprocess(inputs, pp.ConfThreshold, pp.IOUThreshold,
		yolov5.NMSOptions{Epsilon: pp.Epsilon, Agnostic: pp.Agnostic})
	if err != nil {
		return err
	}
	if labels != nil {
		for i := range results {
			results[i] = results[i].WithLabels(labels)
		}
	}

	if IsJSONOutput() {
		return printEvalResultJSON(w, results)
	}
	printEvalResultText(w, results)
	return nil
}

// loadLabels reads one class name per line; line N names class N. Blank
// lines inside the file are kept as empty names so later classes stay
// aligned, and only trailing blank lines are dropped.
func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	return labels, nil
}

type evalImageJSON struct {
	Image      int                    `json:"image"`
	Detections model.DetectionResults `json:"detections"`
}

func printEvalResultJSON(w io.Writer, results []model.DetectionResults) error {
	type resultJSON struct {
		Images []evalImageJSON `json:"images"`
	}
	out := resultJSON{Images: make([]evalImageJSON, 0, len(results))}
	for i, r := range results {
		if r == nil {
			r = model.DetectionResults{}
		}
		out.Images = append(out.Images, evalImageJSON{Image: i, Detections: r})
	}
	return printJSON(w, out)
}

// printEvalResultText writes one table per image, headed by the number of
// detections and distinct classes:
//
//	image 0: 1 detections, 1 classes
//	INDEX  CLASS                SCORE    SIZE           BOX
//	3      person               0.8550   8.00x8.00      [8.00, 8.00, 16.00, 16.00]
func printEvalResultText(w io.Writer, results []model.DetectionResults) {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "image %d: %d detections, %d classes\n", i, len(r), len(r.Classes()))
		if len(r) == 0 {
			continue
		}
		fmt.Fprintf(w, "%-6s %-20s %-8s %-14s %s\n", "INDEX", "CLASS", "SCORE", "SIZE", "BOX")
		for _, d := range r {
			fmt.Fprintf(w, "%-6d %-20s %-8.4f %-14s %s\n",
				d.Index, FormatClass(d), d.Score, FormatSize(d.Box), d.Box)
		}
	}
}

// FormatSize renders a box's extent as "WIDTHxHEIGHT".
//
//	{Left: 8, Top: 8, Right: 16, Bottom: 20} → "8.00x12.00"
func FormatSize(b model.BoundingBox) string {
	return fmt.Sprintf("%.2fx%.2f", b.Width(), b.Height())
}

// FormatClass renders the label when known, the numeric class otherwise.
//
//	{Class: 0, Label: "person"} → "person"
//	{Class: 7}                  → "7"
func FormatClass(d model.DetectionResult) string {
	if d.Label != "" {
		return d.Label
	}
	return fmt.Sprintf("%d", d.Class)
}
