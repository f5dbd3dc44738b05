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

// Package render turns polarization maps into color images.
package render

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Maps a normalized value in [0, 1] to a color
type Colormap interface {
	At(t float64) colorful.Color
	Name() string
}

// Sequential colormap interpolating between stops in CIE L*a*b* space
type Gradient struct {
	name  string
	stops []colorful.Color
}

// Creates a gradient from hex color stops, e.g. "#440154"
func NewGradient(name string, hexStops ...string) (*Gradient, error) {
	if len(hexStops) < 2 {
		return nil, fmt.Errorf("gradient %s: need at least 2 stops, got %d", name, len(hexStops))
	}
	g := &Gradient{name: name, stops: make([]colorful.Color, len(hexStops))}
	for i, h := range hexStops {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("gradient %s: %w", name, err)
		}
		g.stops[i] = c
	}
	return g, nil
}

func (g *Gradient) Name() string { return g.name }

func (g *Gradient) At(t float64) colorful.Color {
	t = clamp01(t)
	pos := t * float64(len(g.stops)-1)
	i := int(pos)
	if i >= len(g.stops)-1 {
		return g.stops[len(g.stops)-1]
	}
	frac := pos - float64(i)
	if frac == 0 {
		return g.stops[i]
	}
	return g.stops[i].BlendLab(g.stops[i+1], frac).Clamped()
}

// Cyclic colormap running once around the HCL hue circle, at constant chroma
// and luminance. At(0) and At(1) are the same color.
type Cyclic struct {
	Chroma    float64
	Luminance float64
	HueOffset float64 // degrees
}

func (c *Cyclic) Name() string { return "hcl-cyclic" }

func (c *Cyclic) At(t float64) colorful.Color {
	t = t - math.Floor(t)
	h := math.Mod(c.HueOffset+360*t, 360)
	return colorful.Hcl(h, c.Chroma, c.Luminance).Clamped()
}

// Perceptually uniform sequential map for DoLP, after matplotlib's viridis
func Viridis() *Gradient {
	g, _ := NewGradient("viridis",
		"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
		"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725")
	return g
}

// Sequential grayscale map
func Gray() *Gradient {
	g, _ := NewGradient("gray", "#000000", "#ffffff")
	return g
}

// Cyclic map for AoLP, where -90 and +90 degrees are the same angle
func AngleWheel() *Cyclic {
	return &Cyclic{Chroma: 0.6, Luminance: 0.65, HueOffset: 0}
}

// Returns the named colormap
func ColormapByName(name string) (Colormap, error) {
	switch name {
	case "viridis", "":
		return Viridis(), nil
	case "gray", "grey":
		return Gray(), nil
	case "wheel", "hcl-cyclic":
		return AngleWheel(), nil
	default:
		return nil, fmt.Errorf("unknown colormap %q", name)
	}
}

func clamp01(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
