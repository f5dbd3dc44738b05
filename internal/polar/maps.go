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

package polar

import (
	"math"

	"github.com/mlnoga/polarlight/internal/mosaic"
	"github.com/mlnoga/polarlight/internal/plane"
)

// Polarization maps of one frame
type Maps struct {
	Stokes *Stokes
	DoLP   *plane.Plane // percent
	AoLP   *plane.Plane // degrees
	SNR    *plane.Plane // nil unless requested
	Mask   []bool       // true for excluded pixels, nil if no mask was applied
}

// Computes Stokes parameters, DoLP and AoLP from four co-registered
// intensity images, and the DoLP SNR if withSNR is set.
func Compute(i000, i045, i090, i135 *plane.Plane, withSNR bool) (*Maps, error) {
	s, err := NewStokes(i000, i045, i090, i135)
	if err != nil {
		return nil, err
	}
	m := &Maps{Stokes: s}
	if m.DoLP, err = DoLP(s); err != nil {
		return nil, err
	}
	if m.AoLP, err = AoLP(s); err != nil {
		return nil, err
	}
	if withSNR {
		if m.SNR, err = SNRDoLP(i000, i045, i090, i135); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Computes the maps at half resolution directly from the four unreconstructed
// orientation grids. Each output pixel combines one 2x2 mosaic cell, so the
// four samples are offset by one sensor pixel from each other.
func HalfResolution(gs mosaic.Grids, withSNR bool) (*Maps, error) {
	for _, o := range mosaic.Orientations {
		if gs[o] == nil {
			return nil, plane.CheckSameShape("halfres", nil)
		}
	}
	i000, i045, i090, i135 := gs.Planes()
	return Compute(i000, i045, i090, i135, withSNR)
}

// Computes the maps at full resolution from reconstructed orientation images.
func FullResolution(imgs mosaic.Images, withSNR bool) (*Maps, error) {
	i000, i045, i090, i135 := imgs.Planes()
	return Compute(i000, i045, i090, i135, withSNR)
}

// Marks pixels where any of the given intensity images reaches the threshold.
// Such pixels are outside the linear range of the sensor.
func NonlinearMask(threshold float64, imgs ...*plane.Plane) ([]bool, error) {
	if err := plane.CheckSameShape("mask", imgs...); err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		return nil, nil
	}
	mask := make([]bool, len(imgs[0].Data))
	for _, img := range imgs {
		for i, v := range img.Data {
			if v >= threshold {
				mask[i] = true
			}
		}
	}
	return mask, nil
}

// Applies a nonlinearity mask computed from the four intensity images
func (m *Maps) MaskNonlinear(threshold float64, i000, i045, i090, i135 *plane.Plane) error {
	mask, err := NonlinearMask(threshold, i000, i045, i090, i135)
	if err != nil {
		return err
	}
	m.Mask = mask
	return nil
}

// Number of masked pixels
func (m *Maps) NumMasked() int {
	n := 0
	for _, b := range m.Mask {
		if b {
			n++
		}
	}
	return n
}

// Returns a copy of p with masked pixels set to NaN. Without a mask, returns a plain copy.
func (m *Maps) Masked(p *plane.Plane) *plane.Plane {
	res := p.Clone()
	if len(m.Mask) != len(res.Data) {
		return res
	}
	for i, b := range m.Mask {
		if b {
			res.Data[i] = math.NaN()
		}
	}
	return res
}
