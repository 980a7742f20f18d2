// Package tensor provides the dense float32 array used to hand detection
// head outputs to the postprocessors.
//
// Data is stored row-major (C order), matching what inference runtimes and
// NumPy produce by default. Inputs can be loaded from .npy files written by
// numpy.save via github.com/sbinet/npyio.
package tensor

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sbinet/npyio"
)

// Tensor is an N-dimensional row-major float32 array.
type Tensor struct {
	shape   []int
	strides []int
	data    []float32
}

// New wraps data with the given shape. The data slice is not copied.
// It returns an error when the element count does not match the shape.
func New(shape []int, data []float32) (*Tensor, error) {
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("tensor: shape %v needs %d elements, got %d", shape, n, len(data))
	}
	s := append([]int(nil), shape...)
	return &Tensor{shape: s, strides: rowMajorStrides(s), data: data}, nil
}

// Zeros allocates a zero-filled tensor of the given shape.
func Zeros(shape ...int) (*Tensor, error) {
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	return New(shape, make([]float32, n))
}

func numElements(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("tensor: shape must have at least one dimension")
	}
	n := 1
	for i, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("tensor: dimension %d is negative (%d)", i, d)
		}
		n *= d
	}
	return n, nil
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// NumDims returns the number of dimensions.
func (t *Tensor) NumDims() int {
	return len(t.shape)
}

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int {
	return t.shape[i]
}

// Len returns the total number of elements.
func (t *Tensor) Len() int {
	return len(t.data)
}

// Data exposes the backing slice.
func (t *Tensor) Data() []float32 {
	return t.data
}

// Offset converts a full index into a position in Data.
func (t *Tensor) Offset(idx ...int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: got %d indices for %d dimensions", len(idx), len(t.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dimension %d of size %d", v, i, t.shape[i]))
		}
		off += v * t.strides[i]
	}
	return off
}

// At returns the element at the given full index.
func (t *Tensor) At(idx ...int) float32 {
	return t.data[t.Offset(idx...)]
}

// Set stores v at the given full index.
func (t *Tensor) Set(v float32, idx ...int) {
	t.data[t.Offset(idx...)] = v
}

// Row returns the innermost-dimension slice addressed by a prefix index
// of length NumDims()-1. The slice aliases the tensor's data.
func (t *Tensor) Row(prefix ...int) []float32 {
	if len(prefix) != len(t.shape)-1 {
		panic(fmt.Sprintf("tensor: row needs %d indices, got %d", len(t.shape)-1, len(prefix)))
	}
	off := 0
	for i, v := range prefix {
		off += v * t.strides[i]
	}
	last := t.shape[len(t.shape)-1]
	return t.data[off : off+last : off+last]
}

// Reshape returns a tensor sharing the same data with a new shape.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	return New(shape, t.data)
}

// String renders a short description, not the data.
func (t *Tensor) String() string {
	dims := make([]string, len(t.shape))
	for i, d := range t.shape {
		dims[i] = fmt.Sprint(d)
	}
	return "Tensor[" + strings.Join(dims, "x") + "]"
}

// ReadNPY decodes a NumPy .npy stream holding a float32 array.
// Fortran-ordered arrays are rejected.
func ReadNPY(r io.Reader) (*Tensor, error) {
	npy, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("tensor: reading npy header: %w", err)
	}
	if npy.Header.Descr.Fortran {
		return nil, fmt.Errorf("tensor: fortran-ordered arrays are not supported")
	}

	shape := npy.Header.Descr.Shape
	if len(shape) == 0 {
		// numpy scalars have an empty shape.
		shape = []int{1}
	}

	var data []float32
	if err := npy.Read(&data); err != nil {
		return nil, fmt.Errorf("tensor: reading npy data (%s): %w", npy.Header.Descr.Type, err)
	}
	return New(shape, data)
}

// LoadNPY reads a .npy file from disk.
func LoadNPY(path string) (*Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	t, err := ReadNPY(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
