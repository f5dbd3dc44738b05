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

package fits

import (
	"fmt"
	"strings"

	"github.com/mlnoga/polarlight/internal/plane"
	"github.com/mlnoga/polarlight/internal/sensor"
)

// A FITS image.
// Spec here:   https://fits.gsfc.nasa.gov/standard40/fits_standard40aa-le.pdf
// Primer here: https://fits.gsfc.nasa.gov/fits_primer.html
type Image struct {
	ID       int    // Sequential ID number, for log output
	FileName string // Original file name, if any, for log output

	Header Header  // The header with all keys, values, comments, history entries etc.
	Bitpix int32   // Bits per pixel value from the header. Positive values are integral, negative floating.
	Bzero  float64 // Zero offset. True pixel value is Bzero + Bscale * Data[i].
	Bscale float64 // Value scaler. True pixel value is Bzero + Bscale * Data[i].
	Naxisn []int32 // Axis dimensions. Most quickly varying dimension first (i.e. X,Y)
	Pixels int32   // Number of pixels in the image. Product of Naxisn[]

	Data []float64 // The image data, with Bzero and Bscale applied

	Exposure float64 // Image exposure in seconds
}

// Header keys written and read by this package beyond the mandatory ones
const (
	KeyBitDepth  = "BITDEPTH" // Sensor bit depth of the original frame
	KeyPolAngle  = "POL_ANG"  // Polarizer angle in degrees of an orientation image
	KeyBunit     = "BUNIT"    // Physical unit of the pixel values
	KeyFrameType = "FRAMETYP" // Kind of derived frame, e.g. DoLP or AoLP
)

// Creates a FITS image initialized with empty header
func NewImage() *Image {
	return &Image{
		Header: NewHeader(),
		Bscale: 1,
	}
}

// Creates a FITS image from given naxisn. Data is not copied, allocated if nil. naxisn is deep copied
func NewImageFromNaxisn(naxisn []int32, data []float64) *Image {
	numPixels := int32(1)
	for _, naxis := range naxisn {
		numPixels *= naxis
	}
	if data == nil {
		data = make([]float64, numPixels)
	}
	return &Image{
		Header: NewHeader(),
		Bitpix: -64,
		Bscale: 1,
		Naxisn: append([]int32(nil), naxisn...), // clone slice
		Pixels: numPixels,
		Data:   data,
	}
}

// Creates a two-dimensional FITS image holding the given plane. Data is not copied
func NewImageFromPlane(p *plane.Plane) *Image {
	return NewImageFromNaxisn([]int32{int32(p.Cols), int32(p.Rows)}, p.Data)
}

// Creates a 16-bit FITS image from a sensor frame, recording its bit depth
func NewImageFromFrame(f *sensor.Frame) *Image {
	img := NewImageFromPlane(f.ToPlane())
	img.ID, img.FileName = f.ID, f.FileName
	img.Bitpix = 16
	img.Header.Ints[KeyBitDepth] = int32(f.BitDepth)
	return img
}

// Returns the image data as a plane. Data is not copied. Fails unless the image is two-dimensional
func (f *Image) Plane() (*plane.Plane, error) {
	if len(f.Naxisn) != 2 {
		return nil, fmt.Errorf("%d: expected 2 axes, got %s", f.ID, f.DimensionsToString())
	}
	return plane.FromData(int(f.Naxisn[1]), int(f.Naxisn[0]), f.Data)
}

// Returns the sensor bit depth from the BITDEPTH header key, or def if absent
func (f *Image) BitDepth(def int) int {
	if bd, ok := f.Header.Ints[KeyBitDepth]; ok {
		return int(bd)
	}
	return def
}

// Converts the image into a sensor frame. The bit depth is taken from the
// header if present, else def. If scale16 is set, values are divided by 16,
// for 16-bit stretched captures of a 12-bit sensor.
func (f *Image) ToFrame(def int, scale16 bool) (*sensor.Frame, error) {
	p, err := f.Plane()
	if err != nil {
		return nil, err
	}
	if scale16 {
		p = p.Map(func(v float64) float64 { return v / 16 })
	}
	frame, err := sensor.NewFrameFromPlane(p, f.BitDepth(def))
	if err != nil {
		return nil, fmt.Errorf("%d: %s: %w", f.ID, f.FileName, err)
	}
	frame.ID, frame.FileName = f.ID, f.FileName
	return frame, nil
}

func (f *Image) DimensionsToString() string {
	b := strings.Builder{}
	for i, naxis := range f.Naxisn {
		if i > 0 {
			fmt.Fprintf(&b, "x%d", naxis)
		} else {
			fmt.Fprintf(&b, "%d", naxis)
		}
	}
	return b.String()
}

// FITS header data
type Header struct {
	Bools    map[string]bool
	Ints     map[string]int32
	Floats   map[string]float64
	Strings  map[string]string
	Dates    map[string]string
	Comments []string
	History  []string
	End      bool
	Length   int32
}

// Creates a FITS header initialized with empty maps and arrays
func NewHeader() Header {
	return Header{
		Bools:    make(map[string]bool),
		Ints:     make(map[string]int32),
		Floats:   make(map[string]float64),
		Strings:  make(map[string]string),
		Dates:    make(map[string]string),
		Comments: make([]string, 0),
		History:  make([]string, 0),
		End:      false,
	}
}

// Returns a deep copy of the header, for derived images
func (h *Header) Clone() Header {
	c := NewHeader()
	for k, v := range h.Bools {
		c.Bools[k] = v
	}
	for k, v := range h.Ints {
		c.Ints[k] = v
	}
	for k, v := range h.Floats {
		c.Floats[k] = v
	}
	for k, v := range h.Strings {
		c.Strings[k] = v
	}
	for k, v := range h.Dates {
		c.Dates[k] = v
	}
	c.Comments = append(c.Comments, h.Comments...)
	c.History = append(c.History, h.History...)
	return c
}

// Removes the given key from all value maps
func (h *Header) Delete(key string) {
	delete(h.Bools, key)
	delete(h.Ints, key)
	delete(h.Floats, key)
	delete(h.Strings, key)
	delete(h.Dates, key)
}

const fitsBlockSize int = 2880 // Block size of FITS header and data units
const HeaderLineSize int = 80 // Line size of a FITS header
