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

package mosaic

import (
	"fmt"

	"github.com/mlnoga/polarlight/internal/plane"
	"github.com/mlnoga/polarlight/internal/sensor"
)

// A half-resolution grid holding the samples of one polarizer orientation
type Grid struct {
	*plane.Plane
	Orientation Orientation
	RowOffset   int // Row of the first sample within the 2x2 mosaic cell
	ColOffset   int // Column of the first sample within the 2x2 mosaic cell
}

// The four orientation grids of a frame, indexed by Orientation
type Grids [NumOrientations]*Grid

// Returns the grid for the given orientation
func (gs *Grids) Get(o Orientation) *Grid {
	return gs[o]
}

// Returns the planes of the grids in order 0, 45, 90, 135
func (gs *Grids) Planes() (i000, i045, i090, i135 *plane.Plane) {
	return gs[P000].Plane, gs[P045].Plane, gs[P090].Plane, gs[P135].Plane
}

func (g *Grid) String() string {
	return fmt.Sprintf("%s grid %dx%d offset (%d,%d)", g.Orientation, g.Cols, g.Rows, g.RowOffset, g.ColOffset)
}

// Splits a sensor frame into its four orientation grids of shape (H/2, W/2).
// grid[i][j] = frame[2i+rowOffset][2j+colOffset].
func Split(f *sensor.Frame) (Grids, error) {
	if err := checkEven(f.Height, f.Width); err != nil {
		return Grids{}, err
	}
	var gs Grids
	nr, nc := f.Height/2, f.Width/2
	for _, o := range Orientations {
		rowOffset, colOffset := o.Offsets()
		p := plane.New(nr, nc)
		for i := 0; i < nr; i++ {
			src := f.Data[(2*i+rowOffset)*f.Width:]
			dst := p.Data[i*nc : (i+1)*nc]
			for j := range dst {
				dst[j] = float64(src[2*j+colOffset])
			}
		}
		gs[o] = &Grid{Plane: p, Orientation: o, RowOffset: rowOffset, ColOffset: colOffset}
	}
	return gs, nil
}

// Splits a full-resolution float plane, e.g. from a FITS file, into its four
// orientation grids. Works like Split.
func SplitPlane(p *plane.Plane) (Grids, error) {
	if err := checkEven(p.Rows, p.Cols); err != nil {
		return Grids{}, err
	}
	var gs Grids
	nr, nc := p.Rows/2, p.Cols/2
	for _, o := range Orientations {
		rowOffset, colOffset := o.Offsets()
		g := plane.New(nr, nc)
		for i := 0; i < nr; i++ {
			for j := 0; j < nc; j++ {
				g.Data[i*nc+j] = p.Data[(2*i+rowOffset)*p.Cols+2*j+colOffset]
			}
		}
		gs[o] = &Grid{Plane: g, Orientation: o, RowOffset: rowOffset, ColOffset: colOffset}
	}
	return gs, nil
}

// Wraps an existing half-resolution plane as the grid of the given orientation,
// e.g. one of four orientation FITS files written by the split command.
func NewGrid(p *plane.Plane, o Orientation) (*Grid, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid orientation %d", int(o))
	}
	rowOffset, colOffset := o.Offsets()
	return &Grid{Plane: p, Orientation: o, RowOffset: rowOffset, ColOffset: colOffset}, nil
}

// Assembles four orientation planes into grids, checking they share one shape.
func GridsFromPlanes(i000, i045, i090, i135 *plane.Plane) (Grids, error) {
	if err := plane.CheckSameShape("grids", i000, i045, i090, i135); err != nil {
		return Grids{}, err
	}
	var gs Grids
	for o, p := range [NumOrientations]*plane.Plane{i000, i045, i090, i135} {
		g, _ := NewGrid(p, Orientation(o))
		gs[o] = g
	}
	return gs, nil
}

func checkEven(height, width int) error {
	if height <= 0 || width <= 0 || height%2 != 0 || width%2 != 0 {
		return &sensor.DimensionError{Height: height, Width: width, Reason: "mosaic split needs positive even dimensions"}
	}
	return nil
}
