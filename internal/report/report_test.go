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

package report

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/polarlight/internal/mosaic"
	"github.com/mlnoga/polarlight/internal/polar"
	"github.com/mlnoga/polarlight/internal/synth"
)

func testReport(t *testing.T) *Report {
	p := synth.DefaultParams()
	p.Height, p.Width, p.Noise = 16, 16, true
	f, err := synth.Frame(p)
	require.NoError(t, err)
	gs, err := mosaic.Split(f)
	require.NoError(t, err)
	imgs, err := mosaic.ReconstructAll(context.Background(), gs)
	require.NoError(t, err)
	m, err := polar.FullResolution(imgs, true)
	require.NoError(t, err)
	r, err := New("synthetic", imgs, m, 12, 60)
	require.NoError(t, err)
	return r
}

func TestNewSections(t *testing.T) {
	r := testReport(t)
	names := []string{}
	for _, s := range r.Sections {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"I(0°)", "I(45°)", "I(90°)", "I(135°)", "DoLP", "AoLP", "SNR(DoLP)"}, names)
	assert.Len(t, r.Maps, 2)
	assert.Equal(t, 14, r.Maps[0].Image.Bounds().Dx())
}

func TestNewErrors(t *testing.T) {
	_, err := New("x", mosaic.Images{}, nil, 12, 100)
	assert.Error(t, err)
	_, err = New("x", mosaic.Images{}, &polar.Maps{}, 12, 100)
	assert.Error(t, err)
}

func TestSectionInRangeAndCounts(t *testing.T) {
	s := Section{Name: "x", Data: []float64{-1, 0, 1, math.NaN(), 2, math.Inf(1), 4}, Min: 0, Max: 4}
	assert.Equal(t, []float64{0, 1, 2, 4}, s.InRange())
	bins, skipped := s.Counts(2)
	assert.Equal(t, []int32{2, 2}, bins)
	assert.Equal(t, 3, skipped)
	assert.Equal(t, "x", s.Label())
	s.Unit = "%"
	assert.Equal(t, "x [%]", s.Label())
}

func TestEmptySectionPlots(t *testing.T) {
	s := Section{Name: "empty", Data: []float64{math.NaN()}, Min: 0, Max: 1}
	p, err := s.Plot(8)
	require.NoError(t, err)
	assert.Equal(t, "empty", p.Title.Text)
}

func TestWritePDF(t *testing.T) {
	r := testReport(t)
	var buf bytes.Buffer
	require.NoError(t, r.WritePDF(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	fileName := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, r.WritePDFFile(fileName))
}

func TestWriteHTML(t *testing.T) {
	r := testReport(t)
	var buf bytes.Buffer
	require.NoError(t, r.WriteHTML(&buf))
	html := buf.String()
	assert.True(t, strings.Contains(html, "echarts"))
	assert.True(t, strings.Contains(html, "DoLP"))
	assert.True(t, strings.Contains(html, "synthetic"))

	fileName := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, r.WriteHTMLFile(fileName))
}
