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
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"

	"golang.org/x/image/tiff"
)

// Normalizes v from [min, max] to [0, 1] and applies gamma. NaNs map to 0
func normalize(v, min, scale, gammaInv float64) float64 {
	g := (v - min) * scale
	// replace NaNs with zeros for export, else TIFF and JPG output breaks
	if math.IsNaN(g) || g < 0 {
		g = 0
	}
	if g > 1 {
		g = 1
	}
	if gammaInv != 1.0 {
		g = math.Pow(g, gammaInv)
	}
	return g
}

// Write a grayscale FITS image to 16-bit TIFF, using the given min, max and gamma.
func (f *Image) WriteMonoTIFF16ToFile(fileName string, min, max, gamma float64) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := f.WriteMonoTIFF16(writer, min, max, gamma); err != nil {
		return err
	}
	return writer.Flush()
}

// Write a grayscale FITS image to 16-bit TIFF, using the given min, max and gamma.
func (f *Image) WriteMonoTIFF16(writer io.Writer, min, max, gamma float64) error {
	if len(f.Naxisn) != 2 {
		return fmt.Errorf("%d: expected 2 axes for mono TIFF, got %s", f.ID, f.DimensionsToString())
	}
	width, height := int(f.Naxisn[0]), int(f.Naxisn[1])
	img := image.NewGray16(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})
	scale := 1 / (max - min)
	gammaInv := 1.0 / gamma
	for y := 0; y < height; y++ {
		yoffset := y * width
		for x := 0; x < width; x++ {
			gray := normalize(f.Data[yoffset+x], min, scale, gammaInv)
			img.SetGray16(x, y, color.Gray16{uint16(gray * 65535)})
		}
	}

	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Read a grayscale TIFF image into a FITS image. 8-bit images keep their value
// range, 16-bit images keep theirs.
func (f *Image) ReadTIFF(r io.Reader) error {
	t, err := tiff.Decode(r)
	if err != nil {
		return fmt.Errorf("%d: %w", f.ID, err)
	}

	width, height := t.Bounds().Dx(), t.Bounds().Dy()
	min := t.Bounds().Min
	var bitpix int32
	switch t.ColorModel() {
	case color.GrayModel:
		bitpix = 8
	case color.Gray16Model:
		bitpix = 16
	default:
		return fmt.Errorf("%d: unsupported TIFF color model, want 8 or 16-bit grayscale", f.ID)
	}

	f.Bitpix = bitpix
	f.Naxisn = []int32{int32(width), int32(height)}
	f.Pixels = int32(width) * int32(height)
	f.Bzero, f.Bscale = 0, 1
	f.Data = make([]float64, f.Pixels)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := t.At(min.X+x, min.Y+y)
			var v float64
			if bitpix == 8 {
				v = float64(color.GrayModel.Convert(c).(color.Gray).Y)
			} else {
				v = float64(color.Gray16Model.Convert(c).(color.Gray16).Y)
			}
			f.Data[y*width+x] = v
		}
	}
	return nil
}
