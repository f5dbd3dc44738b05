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

package render

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/polarlight/internal/plane"
)

func TestGradientEndpoints(t *testing.T) {
	v := Viridis()
	r, g, b := v.At(0).RGB255()
	assert.Equal(t, [3]uint8{0x44, 0x01, 0x54}, [3]uint8{r, g, b})
	r, g, b = v.At(1).RGB255()
	assert.Equal(t, [3]uint8{0xfd, 0xe7, 0x25}, [3]uint8{r, g, b})
	// out of range clamps
	assert.Equal(t, v.At(1), v.At(7))
	assert.Equal(t, v.At(0), v.At(math.NaN()))
}

func TestGradientErrors(t *testing.T) {
	_, err := NewGradient("one", "#000000")
	assert.Error(t, err)
	_, err = NewGradient("bad", "#000000", "nothex")
	assert.Error(t, err)
}

func TestCyclicWraps(t *testing.T) {
	w := AngleWheel()
	r0, g0, b0 := w.At(0).RGB255()
	r1, g1, b1 := w.At(1).RGB255()
	assert.Equal(t, [3]uint8{r0, g0, b0}, [3]uint8{r1, g1, b1})
	assert.NotEqual(t, w.At(0), w.At(0.5))
}

func TestColormapByName(t *testing.T) {
	for _, name := range []string{"viridis", "gray", "wheel"} {
		c, err := ColormapByName(name)
		require.NoError(t, err)
		assert.NotEmpty(t, c.Name())
	}
	_, err := ColormapByName("jet")
	assert.Error(t, err)
}

func TestRenderMasksInvalid(t *testing.T) {
	p, _ := plane.FromData(1, 4, []float64{0, math.NaN(), math.Inf(1), 100})
	img := RenderDoLP(p, []bool{false, false, false, true}, 100)
	invalid := InvalidColor()
	for x := 1; x < 4; x++ {
		assert.Equal(t, invalid, img.NRGBAAt(x, 0), "pixel %d", x)
	}
	assert.NotEqual(t, invalid, img.NRGBAAt(0, 0))
}

func TestWritePNG(t *testing.T) {
	p, _ := plane.FromData(2, 2, []float64{-90, -45, 45, 90})
	img := RenderAoLP(p, nil)
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, img))
	dec, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, dec.Bounds().Dx())
	assert.Equal(t, 2, dec.Bounds().Dy())
}
