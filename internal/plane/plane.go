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

// Package plane provides a dense two-dimensional float64 array with
// row-major storage and bounds-checked element access.
package plane

import (
	"fmt"
)

// A dense 2D array of float64 samples, stored row-major.
type Plane struct {
	Rows int       // Number of rows (height)
	Cols int       // Number of columns (width)
	Data []float64 // Row-major data, len(Data)==Rows*Cols
}

// Creates a zero-initialized plane of the given shape.
func New(rows, cols int) *Plane {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("plane: negative shape (%d, %d)", rows, cols))
	}
	return &Plane{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// Wraps existing data into a plane. Data is not copied.
func FromData(rows, cols int, data []float64) (*Plane, error) {
	if rows < 0 || cols < 0 || rows*cols != len(data) {
		return nil, fmt.Errorf("plane: cannot shape %d values into (%d, %d)", len(data), rows, cols)
	}
	return &Plane{Rows: rows, Cols: cols, Data: data}, nil
}

// Creates a plane from a slice of rows. All rows must have equal length.
func FromRows(rows [][]float64) (*Plane, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	p := New(len(rows), len(rows[0]))
	for r, row := range rows {
		if len(row) != p.Cols {
			return nil, fmt.Errorf("plane: row %d has %d columns; want %d", r, len(row), p.Cols)
		}
		copy(p.Data[r*p.Cols:(r+1)*p.Cols], row)
	}
	return p, nil
}

// Returns the shape as (rows, cols).
func (p *Plane) Shape() (rows, cols int) {
	return p.Rows, p.Cols
}

// Returns the number of elements.
func (p *Plane) Len() int {
	return len(p.Data)
}

func (p *Plane) index(row, col int) int {
	if row < 0 || row >= p.Rows || col < 0 || col >= p.Cols {
		panic(fmt.Sprintf("plane: index (%d, %d) out of range for shape (%d, %d)", row, col, p.Rows, p.Cols))
	}
	return row*p.Cols + col
}

// Returns the value at the given row and column. Panics if out of range.
func (p *Plane) At(row, col int) float64 {
	return p.Data[p.index(row, col)]
}

// Sets the value at the given row and column. Panics if out of range.
func (p *Plane) Set(row, col int, v float64) {
	p.Data[p.index(row, col)] = v
}

// Returns the given row as a subslice sharing storage with the plane.
func (p *Plane) Row(row int) []float64 {
	if row < 0 || row >= p.Rows {
		panic(fmt.Sprintf("plane: row %d out of range for %d rows", row, p.Rows))
	}
	return p.Data[row*p.Cols : (row+1)*p.Cols]
}

// Returns a deep copy.
func (p *Plane) Clone() *Plane {
	c := New(p.Rows, p.Cols)
	copy(c.Data, p.Data)
	return c
}

// Returns a new plane with the given rectangle [row0,row1)x[col0,col1) copied out.
func (p *Plane) Crop(row0, row1, col0, col1 int) (*Plane, error) {
	if row0 < 0 || col0 < 0 || row1 > p.Rows || col1 > p.Cols || row0 > row1 || col0 > col1 {
		return nil, fmt.Errorf("plane: crop [%d:%d, %d:%d] outside shape (%d, %d)", row0, row1, col0, col1, p.Rows, p.Cols)
	}
	c := New(row1-row0, col1-col0)
	for r := row0; r < row1; r++ {
		copy(c.Data[(r-row0)*c.Cols:(r-row0+1)*c.Cols], p.Data[r*p.Cols+col0:r*p.Cols+col1])
	}
	return c, nil
}

// Returns a new plane holding f applied to every element.
func (p *Plane) Map(f func(v float64) float64) *Plane {
	res := New(p.Rows, p.Cols)
	for i, v := range p.Data {
		res.Data[i] = f(v)
	}
	return res
}

// Returns true if both planes have identical shape.
func (p *Plane) SameShape(o *Plane) bool {
	return p.Rows == o.Rows && p.Cols == o.Cols
}

func (p *Plane) String() string {
	return fmt.Sprintf("plane(%dx%d)", p.Rows, p.Cols)
}
