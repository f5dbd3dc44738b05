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

	"github.com/mlnoga/polarlight/internal/mosaic"
	"github.com/mlnoga/polarlight/internal/plane"
)

// Creates a 16-bit image of one orientation grid, tagged with its polarizer angle.
// Header entries of the source image are carried over.
func NewOrientationImage(g *mosaic.Grid, src *Header, bitDepth int) *Image {
	img := NewImageFromPlane(g.Plane)
	img.Bitpix = 16
	if src != nil {
		img.Header = src.Clone()
	}
	img.Header.Ints[KeyPolAngle] = int32(g.Orientation.Degrees())
	img.Header.Ints[KeyBitDepth] = int32(bitDepth)
	img.Header.Strings[KeyBunit] = "ADU"
	return img
}

// Returns the polarizer orientation recorded in the POL_ANG header key
func (f *Image) Orientation() (mosaic.Orientation, error) {
	deg, ok := f.Header.Ints[KeyPolAngle]
	if !ok {
		return 0, fmt.Errorf("%d: %s: no %s header key", f.ID, f.FileName, KeyPolAngle)
	}
	return mosaic.ParseOrientation(fmt.Sprintf("%d", deg))
}

// Creates a 64-bit float image of a derived map such as DoLP or AoLP. NaN and
// Inf values are kept. Header entries of the source image are carried over,
// except those describing a single orientation.
func NewMapImage(p *plane.Plane, frameType, bunit string, src *Header) *Image {
	img := NewImageFromPlane(p)
	img.Bitpix = -64
	if src != nil {
		img.Header = src.Clone()
		img.Header.Delete(KeyPolAngle)
		img.Header.Delete("SWCREATE")
	}
	img.Header.Strings[KeyFrameType] = frameType
	img.Header.Strings[KeyBunit] = bunit
	return img
}
