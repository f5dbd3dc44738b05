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

// Package polar computes linear polarization quantities from the four
// co-registered intensity images of a micro-polarizer sensor.
//
// All functions allocate new planes and never modify their inputs. Division
// by zero is not an error: the affected pixels hold NaN or Inf, and callers
// mask them before display or aggregation.
package polar

import (
	"math"

	"github.com/mlnoga/polarlight/internal/plane"
)

// Linear Stokes parameters of an image
type Stokes struct {
	S0 *plane.Plane // Total intensity, half the sum of the four orientations
	S1 *plane.Plane // 0° minus 90°
	S2 *plane.Plane // 45° minus 135°
}

// Computes the Stokes parameters from the intensities behind the 0, 45, 90
// and 135 degree polarizers. All inputs must share one shape.
func NewStokes(i000, i045, i090, i135 *plane.Plane) (*Stokes, error) {
	if err := plane.CheckSameShape("stokes", i000, i045, i090, i135); err != nil {
		return nil, err
	}
	s0 := plane.New(i000.Rows, i000.Cols)
	s1 := plane.New(i000.Rows, i000.Cols)
	s2 := plane.New(i000.Rows, i000.Cols)
	for i := range s0.Data {
		a, b, c, d := i000.Data[i], i045.Data[i], i090.Data[i], i135.Data[i]
		s0.Data[i] = (a + b + c + d) / 2
		s1.Data[i] = a - c
		s2.Data[i] = b - d
	}
	return &Stokes{S0: s0, S1: s1, S2: s2}, nil
}

func (s *Stokes) check(op string) error {
	if s == nil {
		return plane.CheckSameShape(op, nil)
	}
	return plane.CheckSameShape(op, s.S0, s.S1, s.S2)
}

// Degree of linear polarization in percent, 100*sqrt(S1²+S2²)/S0.
// Not clamped: inputs that violate S0 >= sqrt(S1²+S2²) exceed 100.
// S0=0 yields +Inf, or NaN if S1 and S2 are zero as well.
func DoLP(s *Stokes) (*plane.Plane, error) {
	if err := s.check("dolp"); err != nil {
		return nil, err
	}
	res := plane.New(s.S0.Rows, s.S0.Cols)
	for i := range res.Data {
		s1, s2 := s.S1.Data[i], s.S2.Data[i]
		res.Data[i] = 100 * math.Sqrt(s1*s1+s2*s2) / s.S0.Data[i]
	}
	return res, nil
}

// Angle of linear polarization in degrees, 0.5*atan2(S2, S1), in (-90, 90].
// Unpolarized pixels with S1=S2=0 yield 0.
func AoLP(s *Stokes) (*plane.Plane, error) {
	if s == nil {
		return nil, plane.CheckSameShape("aolp", nil)
	}
	if err := plane.CheckSameShape("aolp", s.S1, s.S2); err != nil {
		return nil, err
	}
	res := plane.New(s.S1.Rows, s.S1.Cols)
	for i := range res.Data {
		res.Data[i] = aolp(s.S1.Data[i], s.S2.Data[i])
	}
	return res, nil
}

func aolp(s1, s2 float64) float64 {
	a := 0.5 * math.Atan2(s2, s1) * 180 / math.Pi
	if a <= -90 { // atan2(-0, negative) is -pi
		a += 180
	}
	return a
}

// Signal to noise ratio of the DoLP per pixel, propagating Poisson counting
// noise of the four raw intensities:
//
//	dS1 = sqrt(i000+i090), dS2 = sqrt(i045+i135)
//	h2  = max((S1²+S2²)², 1)
//	rel = (S1²dS1² + S2²dS2²)/h2 + 0.5/S0
//	SNR = 1/sqrt(rel)
//
// Negative intensities make the noise terms NaN.
func SNRDoLP(i000, i045, i090, i135 *plane.Plane) (*plane.Plane, error) {
	if err := plane.CheckSameShape("snr", i000, i045, i090, i135); err != nil {
		return nil, err
	}
	res := plane.New(i000.Rows, i000.Cols)
	for i := range res.Data {
		a, b, c, d := i000.Data[i], i045.Data[i], i090.Data[i], i135.Data[i]
		res.Data[i] = snrDoLP(a, b, c, d)
	}
	return res, nil
}

func snrDoLP(a, b, c, d float64) float64 {
	s0 := (a + b + c + d) / 2
	s1, s2 := a-c, b-d
	dS1, dS2 := math.Sqrt(a+c), math.Sqrt(b+d)
	s1sq, s2sq := s1*s1, s2*s2
	h2 := (s1sq + s2sq) * (s1sq + s2sq)
	if h2 < 1 {
		h2 = 1
	}
	rel := (s1sq*dS1*dS1+s2sq*dS2*dS2)/h2 + 0.5/s0
	return 1 / math.Sqrt(rel)
}
