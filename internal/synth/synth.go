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

// Package synth generates synthetic raw frames of a micro-polarizer sensor
// observing linearly polarized light, optionally with photon shot noise.
package synth

import (
	"fmt"
	"math"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/polarlight/internal/mosaic"
	"github.com/mlnoga/polarlight/internal/sensor"
)

// Scene parameters for a synthetic frame
type Params struct {
	Height    int     `json:"height"`
	Width     int     `json:"width"`
	BitDepth  int     `json:"bitDepth"`
	Intensity float64 `json:"intensity"` // S0 in ADU
	DoLP      float64 `json:"dolp"`      // percent
	AoLP      float64 `json:"aolp"`      // degrees
	AoLPSlope float64 `json:"aolpSlope"` // additional degrees per column, for angle sweeps
	Noise     bool    `json:"noise"`     // add Poisson shot noise
	Seed      uint32  `json:"seed"`
}

// Default scene: 30% polarized light at 30 degrees on a small 12-bit frame
func DefaultParams() Params {
	return Params{Height: 64, Width: 64, BitDepth: 12, Intensity: 2000, DoLP: 30, AoLP: 30, Seed: 1}
}

func (p Params) Validate() error {
	g := sensor.Geometry{Height: p.Height, Width: p.Width, BitDepth: p.BitDepth}
	if err := g.Validate(); err != nil {
		return err
	}
	if p.Intensity < 0 || math.IsNaN(p.Intensity) {
		return fmt.Errorf("intensity %g must be non-negative", p.Intensity)
	}
	if p.DoLP < 0 || p.DoLP > 100 {
		return fmt.Errorf("dolp %g outside [0, 100]", p.DoLP)
	}
	return nil
}

// Expected intensity behind a polarizer at angle theta (degrees), for light with
// total intensity s0, degree of polarization dolp (percent) and angle aolp (degrees):
// s0/2 * (1 + dolp/100 * cos(2(theta-aolp)))
func Malus(s0, dolp, aolp, theta float64) float64 {
	return s0 / 2 * (1 + dolp/100*math.Cos(2*(theta-aolp)*math.Pi/180))
}

// Generates a frame for the given scene. Values are rounded and clipped to the
// bit depth, so bright scenes saturate like a real sensor.
func Frame(p Params) (*sensor.Frame, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var rng fastrand.RNG
	rng.Seed(p.Seed)

	max := float64(sensor.MaxValue(p.BitDepth))
	data := make([]uint16, p.Height*p.Width)
	for row := 0; row < p.Height; row++ {
		for col := 0; col < p.Width; col++ {
			theta := float64(mosaic.OrientationAt(row, col).Degrees())
			v := Malus(p.Intensity, p.DoLP, p.AoLP+p.AoLPSlope*float64(col), theta)
			if p.Noise {
				v = Poisson(&rng, v)
			}
			v = math.Round(v)
			if v < 0 {
				v = 0
			} else if v > max {
				v = max
			}
			data[row*p.Width+col] = uint16(v)
		}
	}
	return sensor.NewFrame(p.Height, p.Width, p.BitDepth, data)
}

// Returns a uniform random number in [0, 1)
func Uniform(rng *fastrand.RNG) float64 {
	return float64(rng.Uint32()) / (1 << 32)
}

// Returns a standard normal random number, via Box-Muller
func Normal(rng *fastrand.RNG) float64 {
	u1 := 1 - Uniform(rng) // (0, 1]
	u2 := Uniform(rng)
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// Returns a Poisson random number with mean lambda. Small means use Knuth's
// multiplication method, larger ones the normal approximation.
func Poisson(rng *fastrand.RNG, lambda float64) float64 {
	if lambda <= 0 {
		return 0
	}
	if lambda < 30 {
		l, k, prod := math.Exp(-lambda), 0.0, Uniform(rng)
		for prod > l {
			k++
			prod *= Uniform(rng)
		}
		return k
	}
	v := math.Round(lambda + math.Sqrt(lambda)*Normal(rng))
	if v < 0 {
		v = 0
	}
	return v
}
