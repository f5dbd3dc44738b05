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

package plane

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtSetRowMajor(t *testing.T) {
	p := New(3, 4)
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			p.Set(r, c, float64(10*r+c))
		}
	}
	assert.Equal(t, 23.0, p.At(2, 3))
	assert.Equal(t, 23.0, p.Data[2*4+3])
	assert.Equal(t, []float64{10, 11, 12, 13}, p.Row(1))
}

func TestAtOutOfRangePanics(t *testing.T) {
	p := New(2, 2)
	assert.Panics(t, func() { p.At(2, 0) })
	assert.Panics(t, func() { p.At(0, -1) })
	assert.Panics(t, func() { p.Set(0, 2, 1) })
}

func TestFromData(t *testing.T) {
	_, err := FromData(2, 3, make([]float64, 5))
	assert.Error(t, err)

	p, err := FromData(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 4.0, p.At(1, 0))
}

func TestFromRowsRagged(t *testing.T) {
	_, err := FromRows([][]float64{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestCropAndClone(t *testing.T) {
	p, err := FromRows([][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
	require.NoError(t, err)

	c, err := p.Crop(1, 3, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6, 8, 9}, c.Data)

	_, err = p.Crop(0, 4, 0, 1)
	assert.Error(t, err)

	cl := p.Clone()
	cl.Set(0, 0, 100)
	assert.Equal(t, 1.0, p.At(0, 0))
}

func TestCheckSameShape(t *testing.T) {
	a, b, c := New(2, 3), New(2, 3), New(3, 2)
	assert.NoError(t, CheckSameShape("op", a, b))

	err := CheckSameShape("stokes", a, b, c)
	var sme *ShapeMismatchError
	require.True(t, errors.As(err, &sme))
	assert.Equal(t, "stokes", sme.Op)
	assert.Equal(t, [][2]int{{2, 3}, {2, 3}, {3, 2}}, sme.Shapes)

	assert.Error(t, CheckSameShape("op", a, nil))
}
