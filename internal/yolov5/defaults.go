package yolov5

// DefaultStrides are the P3/P4/P5 strides of the stock YOLOv5 models.
var DefaultStrides = []float32{8, 16, 32}

// DefaultPixelAnchors are the stock YOLOv5 anchors in input pixels, as
// published in the model yaml files.
var DefaultPixelAnchors = [][][2]float32{
	{{10, 13}, {16, 30}, {33, 23}},
	{{30, 61}, {62, 45}, {59, 119}},
	{{116, 90}, {156, 198}, {373, 326}},
}

// PixelToStrideAnchors divides each layer's pixel anchors by its stride,
// producing the stride-unit anchors the Postprocessor works with.
func PixelToStrideAnchors(pixel [][][2]float32, strides []float32) [][][2]float32 {
	out := make([][][2]float32, len(pixel))
	for l, layer := range pixel {
		out[l] = make([][2]float32, len(layer))
		for a, wh := range layer {
			out[l][a] = [2]float32{wh[0] / strides[l], wh[1] / strides[l]}
		}
	}
	return out
}

// NewDefault builds a Postprocessor with the stock YOLOv5 anchors.
func NewDefault() *Postprocessor {
	p, err := New(PixelToStrideAnchors(DefaultPixelAnchors, DefaultStrides), DefaultStrides)
	if err != nil {
		panic(err)
	}
	return p
}
