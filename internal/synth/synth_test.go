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

package synth

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"

	"github.com/mlnoga/polarlight/internal/mosaic"
	"github.com/mlnoga/polarlight/internal/polar"
	"github.com/mlnoga/polarlight/internal/stats"
)

func TestMalusStokes(t *testing.T) {
	s0, d, a := 1000.0, 40.0, 25.0
	i000, i045 := Malus(s0, d, a, 0), Malus(s0, d, a, 45)
	i090, i135 := Malus(s0, d, a, 90), Malus(s0, d, a, 135)
	assert.InDelta(t, s0, (i000+i045+i090+i135)/2, 1e-9)
	assert.InDelta(t, s0*d/100*math.Cos(2*a*math.Pi/180), i000-i090, 1e-9)
	assert.InDelta(t, s0*d/100*math.Sin(2*a*math.Pi/180), i045-i135, 1e-9)
}

func TestFrameRecoversPolarization(t *testing.T) {
	for _, aolp := range []float64{-60, -10, 0, 30, 75} {
		p := DefaultParams()
		p.Intensity, p.DoLP, p.AoLP = 3000, 35, aolp
		f, err := Frame(p)
		require.NoError(t, err)

		gs, err := mosaic.Split(f)
		require.NoError(t, err)
		imgs, err := mosaic.ReconstructAll(context.Background(), gs)
		require.NoError(t, err)
		m, err := polar.FullResolution(imgs, false)
		require.NoError(t, err)

		// rounding to integer ADU limits accuracy
		for i := range m.DoLP.Data {
			if math.Abs(m.DoLP.Data[i]-35) > 0.2 {
				t.Fatalf("aolp %f: dolp[%d]=%f; want 35±0.2", aolp, i, m.DoLP.Data[i])
			}
			if math.Abs(m.AoLP.Data[i]-aolp) > 0.2 {
				t.Fatalf("aolp %f: aolp[%d]=%f; want ±0.2", aolp, i, m.AoLP.Data[i])
			}
		}
	}
}

func TestFrameSaturates(t *testing.T) {
	p := DefaultParams()
	p.BitDepth, p.Intensity, p.DoLP = 8, 1000, 0
	f, err := Frame(p)
	require.NoError(t, err)
	for i, v := range f.Data {
		if v != 255 {
			t.Fatalf("data[%d]=%d; want 255", i, v)
		}
	}
}

func TestNoiseSNRGrowsWithIntensity(t *testing.T) {
	prev := 0.0
	for _, s0 := range []float64{200, 800, 3200} {
		p := DefaultParams()
		p.Intensity, p.Noise, p.Seed = s0, true, 11
		f, err := Frame(p)
		require.NoError(t, err)
		gs, _ := mosaic.Split(f)
		m, err := polar.HalfResolution(gs, true)
		require.NoError(t, err)
		s, err := stats.NewStats(stats.Finite(m.SNR.Data), 12)
		require.NoError(t, err)
		assert.Greater(t, s.P50, prev, "intensity %f", s0)
		prev = s.P50
	}
}

func TestPoissonMoments(t *testing.T) {
	var rng fastrand.RNG
	rng.Seed(3)
	for _, lambda := range []float64{4, 100} {
		n := 20000
		sum, sumSq := 0.0, 0.0
		for i := 0; i < n; i++ {
			v := Poisson(&rng, lambda)
			sum += v
			sumSq += v * v
		}
		mean := sum / float64(n)
		variance := sumSq/float64(n) - mean*mean
		assert.InDelta(t, lambda, mean, 0.05*lambda, "mean for lambda %f", lambda)
		assert.InDelta(t, lambda, variance, 0.1*lambda, "variance for lambda %f", lambda)
	}
}

func TestValidate(t *testing.T) {
	p := DefaultParams()
	p.DoLP = 120
	assert.Error(t, p.Validate())
	p = DefaultParams()
	p.Width = 7
	assert.Error(t, p.Validate())
}
