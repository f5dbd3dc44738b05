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
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mlnoga/polarlight/internal/plane"
)

// Reconstructs a full-resolution image for one orientation from its
// half-resolution grid of shape (nr, nc) by bilinear interpolation.
// The offsets give the grid's position within the 2x2 mosaic cell.
// Returns a plane of shape (2nr-2, 2nc-2), aligned so that output[r][c]
// estimates sensor pixel [r+1][c+1]. Border rows and columns that would
// need extrapolation are trimmed.
func Reconstruct(g *plane.Plane, rowOffset, colOffset int) (*plane.Plane, error) {
	if g == nil {
		return nil, fmt.Errorf("reconstruct: nil grid")
	}
	if rowOffset < 0 || rowOffset > 1 || colOffset < 0 || colOffset > 1 {
		return nil, fmt.Errorf("reconstruct: offsets (%d,%d) outside {0,1}", rowOffset, colOffset)
	}
	nr, nc := g.Rows, g.Cols
	if nr < 2 || nc < 2 {
		return nil, fmt.Errorf("reconstruct: grid %dx%d too small, need at least 2x2", nc, nr)
	}

	// Vertical midpoints, shape (nr-1, nc)
	vAv := plane.New(nr-1, nc)
	for i := 0; i < nr-1; i++ {
		for j := 0; j < nc; j++ {
			vAv.Data[i*nc+j] = 0.5 * (g.Data[i*nc+j] + g.Data[(i+1)*nc+j])
		}
	}

	// Horizontal midpoints, shape (nr, nc-1)
	hAv := plane.New(nr, nc-1)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc-1; j++ {
			hAv.Data[i*(nc-1)+j] = 0.5 * (g.Data[i*nc+j] + g.Data[i*nc+j+1])
		}
	}

	// Cell centres from the vertical midpoints, shape (nr-1, nc-1)
	mid := plane.New(nr-1, nc-1)
	for i := 0; i < nr-1; i++ {
		for j := 0; j < nc-1; j++ {
			mid.Data[i*(nc-1)+j] = 0.5 * (vAv.Data[i*nc+j] + vAv.Data[i*nc+j+1])
		}
	}

	combined := interleave(g, vAv, hAv, mid)

	// Place into a zero canvas of shape (2nr, 2nc) at the mosaic offset
	canvas := plane.New(2*nr, 2*nc)
	for r := 0; r < combined.Rows; r++ {
		src := combined.Data[r*combined.Cols : (r+1)*combined.Cols]
		dst := canvas.Data[(r+rowOffset)*canvas.Cols+colOffset:]
		copy(dst[:len(src)], src)
	}

	// Trim one row and column from each edge
	return canvas.Crop(1, canvas.Rows-1, 1, canvas.Cols-1)
}

// Interleaves grid samples and interpolated planes into shape (2nr-1, 2nc-1):
// even row even col from grid, odd row even col from vAv, even row odd col
// from hAv, odd row odd col from mid.
func interleave(g, vAv, hAv, mid *plane.Plane) *plane.Plane {
	nr, nc := g.Rows, g.Cols
	res := plane.New(2*nr-1, 2*nc-1)
	for r := 0; r < res.Rows; r++ {
		i := r / 2
		for c := 0; c < res.Cols; c++ {
			j := c / 2
			var v float64
			switch {
			case r%2 == 0 && c%2 == 0:
				v = g.Data[i*nc+j]
			case r%2 == 1 && c%2 == 0:
				v = vAv.Data[i*nc+j]
			case r%2 == 0:
				v = hAv.Data[i*(nc-1)+j]
			default:
				v = mid.Data[i*(nc-1)+j]
			}
			res.Data[r*res.Cols+c] = v
		}
	}
	return res
}

// Reconstructs the full-resolution image for this grid using its own offsets
func (g *Grid) Reconstruct() (*plane.Plane, error) {
	res, err := Reconstruct(g.Plane, g.RowOffset, g.ColOffset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.Orientation.Label(), err)
	}
	return res, nil
}

// Four reconstructed full-resolution images, indexed by Orientation
type Images [NumOrientations]*plane.Plane

// Returns the images in order 0, 45, 90, 135
func (is *Images) Planes() (i000, i045, i090, i135 *plane.Plane) {
	return is[P000], is[P045], is[P090], is[P135]
}

// Reconstructs all four orientations concurrently. The reconstructions share
// no state. Returns the first error encountered, or the context's error if it
// is cancelled before the work starts.
func ReconstructAll(ctx context.Context, gs Grids) (Images, error) {
	var res Images
	eg, ctx := errgroup.WithContext(ctx)
	for _, o := range Orientations {
		o := o
		g := gs[o]
		if g == nil {
			return Images{}, fmt.Errorf("reconstruct: missing %s grid", o.Label())
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := g.Reconstruct()
			if err != nil {
				return err
			}
			res[o] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Images{}, err
	}
	return res, nil
}
