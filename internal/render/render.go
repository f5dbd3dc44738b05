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

package render

import (
	"bufio"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/mlnoga/polarlight/internal/plane"
)

// Color for masked, NaN and infinite pixels
func InvalidColor() color.NRGBA {
	return color.NRGBA{255, 255, 255, 255}
}

// Renders a plane into a color image, mapping [min, max] onto the colormap.
// Pixels that are masked or not finite are drawn in InvalidColor.
// A nil mask or one of the wrong length masks nothing.
func Render(p *plane.Plane, mask []bool, min, max float64, cmap Colormap) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.Cols, p.Rows))
	useMask := len(mask) == len(p.Data)
	invalid := InvalidColor()
	scale := 0.0
	if max > min {
		scale = 1 / (max - min)
	}
	for row := 0; row < p.Rows; row++ {
		for col := 0; col < p.Cols; col++ {
			i := row*p.Cols + col
			v := p.Data[i]
			if (useMask && mask[i]) || math.IsNaN(v) || math.IsInf(v, 0) {
				img.SetNRGBA(col, row, invalid)
				continue
			}
			r, g, b := cmap.At((v - min) * scale).RGB255()
			img.SetNRGBA(col, row, color.NRGBA{r, g, b, 255})
		}
	}
	return img
}

// Renders a DoLP map in percent over [0, max]
func RenderDoLP(dolp *plane.Plane, mask []bool, max float64) *image.NRGBA {
	return Render(dolp, mask, 0, max, Viridis())
}

// Renders an AoLP map in degrees over (-90, 90] with a cyclic colormap
func RenderAoLP(aolp *plane.Plane, mask []bool) *image.NRGBA {
	return Render(aolp, mask, -90, 90, AngleWheel())
}

// Writes an image as PNG
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// Writes an image as PNG file with the given name
func WritePNGFile(fileName string, img image.Image) error {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := png.Encode(bw, img); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
