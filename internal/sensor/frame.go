// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package sensor

import (
	"fmt"
	"math"

	"github.com/mlnoga/polarlight/internal/plane"
)

// A decoded sensor frame. Samples are row-major ADU counts in [0, 2^BitDepth-1].
// Frames are not modified after construction.
type Frame struct {
	ID       int      // Sequential ID number, for log output
	FileName string   // Original file name, if any, for log output
	Height   int      // Rows
	Width    int      // Columns
	BitDepth int      // 8 or 12
	Data     []uint16 // Row-major samples, len(Data)==Height*Width
}

// Creates a frame from the given samples, checking shape and value range.
// Data is not copied.
func NewFrame(height, width, bitDepth int, data []uint16) (*Frame, error) {
	if height <= 0 || width <= 0 {
		return nil, &DimensionError{Height: height, Width: width, Samples: len(data), Reason: "dimensions must be positive"}
	}
	if height*width != len(data) {
		return nil, &DimensionError{Height: height, Width: width, Samples: len(data), Reason: "sample count does not match height*width"}
	}
	if err := CheckBitDepth(bitDepth); err != nil {
		return nil, err
	}
	max := uint16(MaxValue(bitDepth))
	for i, v := range data {
		if v > max {
			return nil, &RangeError{Row: i / width, Col: i % width, Value: int(v), BitDepth: bitDepth}
		}
	}
	return &Frame{Height: height, Width: width, BitDepth: bitDepth, Data: data}, nil
}

// Creates a frame from a float plane, e.g. FITS pixel data, rounding to the
// nearest integer. Non-finite or out-of-range values are rejected.
func NewFrameFromPlane(p *plane.Plane, bitDepth int) (*Frame, error) {
	if err := CheckBitDepth(bitDepth); err != nil {
		return nil, err
	}
	max := float64(MaxValue(bitDepth))
	data := make([]uint16, len(p.Data))
	for i, v := range p.Data {
		r := math.Round(v)
		if math.IsNaN(r) || r < 0 || r > max {
			iv := int(-1)
			if !math.IsNaN(r) && !math.IsInf(r, 0) {
				iv = int(r)
			}
			return nil, &RangeError{Row: i / p.Cols, Col: i % p.Cols, Value: iv, BitDepth: bitDepth}
		}
		data[i] = uint16(r)
	}
	return NewFrame(p.Rows, p.Cols, bitDepth, data)
}

// Returns the sample at the given row and column. Panics if out of range.
func (f *Frame) At(row, col int) uint16 {
	if row < 0 || row >= f.Height || col < 0 || col >= f.Width {
		panic(fmt.Sprintf("sensor: index (%d, %d) out of range for %dx%d frame", row, col, f.Width, f.Height))
	}
	return f.Data[row*f.Width+col]
}

// Returns the frame geometry.
func (f *Frame) Geometry() Geometry {
	return Geometry{Height: f.Height, Width: f.Width, BitDepth: f.BitDepth}
}

// Converts the samples into a newly allocated float plane.
func (f *Frame) ToPlane() *plane.Plane {
	p := plane.New(f.Height, f.Width)
	for i, v := range f.Data {
		p.Data[i] = float64(v)
	}
	return p
}

// Number of samples at or above the nonlinearity threshold.
func (f *Frame) CountNonlinear() int {
	t := NonlinearThreshold(f.BitDepth)
	n := 0
	for _, v := range f.Data {
		if int(v) >= t {
			n++
		}
	}
	return n
}

func (f *Frame) String() string {
	return fmt.Sprintf("%d: %dx%d %d-bit frame %s", f.ID, f.Width, f.Height, f.BitDepth, f.FileName)
}
