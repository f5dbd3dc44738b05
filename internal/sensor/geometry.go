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
)

// Sensor geometry for the Sony IMX250MZR and IMX264MZR polarization chips
const (
	IMX250MZRHeight   = 2048
	IMX250MZRWidth    = 2448
	IMX250MZRBitDepth = 12
)

// Fraction of full scale above which the sensor response is treated as nonlinear
const NonlinearFraction = 0.85

// Geometry of a polarization sensor. Passed explicitly to every stage
// that needs it, there are no package-level sensor constants in use.
type Geometry struct {
	Height   int `json:"height"`   // Rows of the full sensor frame. Must be even
	Width    int `json:"width"`    // Columns of the full sensor frame. Must be even
	BitDepth int `json:"bitDepth"` // ADC bit depth, 8 or 12
}

// Returns the geometry of the IMX250MZR/IMX264MZR in 12-bit mode.
func DefaultGeometry() Geometry {
	return Geometry{Height: IMX250MZRHeight, Width: IMX250MZRWidth, BitDepth: IMX250MZRBitDepth}
}

// Checks the geometry for even dimensions of at least 4 pixels and a supported bit depth.
func (g Geometry) Validate() error {
	if g.Height < 4 || g.Width < 4 || g.Height%2 != 0 || g.Width%2 != 0 {
		return &DimensionError{Height: g.Height, Width: g.Width, Reason: "sensor dimensions must be even and at least 4"}
	}
	if err := CheckBitDepth(g.BitDepth); err != nil {
		return err
	}
	return nil
}

// Number of pixels in a full frame.
func (g Geometry) Pixels() int {
	return g.Height * g.Width
}

// Maximum ADU value for the geometry's bit depth.
func (g Geometry) MaxValue() int {
	return MaxValue(g.BitDepth)
}

// ADU value at and above which pixels are considered nonlinear.
func (g Geometry) Nonlinear() int {
	return NonlinearThreshold(g.BitDepth)
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d %d-bit", g.Width, g.Height, g.BitDepth)
}

// Returns an error unless bitDepth is 8 or 12.
func CheckBitDepth(bitDepth int) error {
	if bitDepth != 8 && bitDepth != 12 {
		return fmt.Errorf("unsupported bit depth %d, want 8 or 12", bitDepth)
	}
	return nil
}

// Largest value representable with the given bit depth.
func MaxValue(bitDepth int) int {
	return (1 << uint(bitDepth)) - 1
}

// Nonlinearity threshold floor(0.85 * 2^bitDepth).
func NonlinearThreshold(bitDepth int) int {
	return int(math.Floor(NonlinearFraction * float64(int(1)<<uint(bitDepth))))
}
