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

// Package report summarizes a processed frame as a multi-page PDF with
// histograms and color maps, or as an interactive HTML page of histograms.
package report

import (
	"errors"
	"fmt"
	"image"

	"github.com/mlnoga/polarlight/internal/mosaic"
	"github.com/mlnoga/polarlight/internal/polar"
	"github.com/mlnoga/polarlight/internal/render"
	"github.com/mlnoga/polarlight/internal/sensor"
	"github.com/mlnoga/polarlight/internal/stats"
)

const DefaultBins = 64

// A histogram of one quantity over a fixed range
type Section struct {
	Name string
	Unit string
	Data []float64 // may contain NaN, which is skipped
	Min  float64
	Max  float64
}

// A rendered color map
type MapPage struct {
	Name  string
	Image image.Image
}

type Report struct {
	Title    string
	Bins     int
	Sections []Section
	Maps     []MapPage
}

// Builds the report for one frame: histograms of the four orientation images,
// of DoLP and AoLP, and color maps of DoLP and AoLP. Masked pixels are left out
// of the polarization histograms and drawn in the invalid color on the maps.
func New(title string, imgs mosaic.Images, m *polar.Maps, bitDepth int, maxDoLP float64) (*Report, error) {
	if m == nil || m.DoLP == nil || m.AoLP == nil {
		return nil, errors.New("report: no polarization maps")
	}
	if err := sensor.CheckBitDepth(bitDepth); err != nil {
		return nil, err
	}
	if !(maxDoLP > 0) {
		maxDoLP = 100
	}
	r := &Report{Title: title, Bins: DefaultBins}
	maxADU := float64(sensor.MaxValue(bitDepth))
	for _, o := range mosaic.Orientations {
		if imgs[o] == nil {
			continue
		}
		r.Sections = append(r.Sections, Section{
			Name: fmt.Sprintf("I(%d°)", o.Degrees()), Unit: "ADU",
			Data: imgs[o].Data, Min: 0, Max: maxADU,
		})
	}
	r.Sections = append(r.Sections,
		Section{Name: "DoLP", Unit: "%", Data: m.Masked(m.DoLP).Data, Min: 0, Max: maxDoLP},
		Section{Name: "AoLP", Unit: "°", Data: m.Masked(m.AoLP).Data, Min: -90, Max: 90},
	)
	if m.SNR != nil {
		snr := stats.Finite(m.Masked(m.SNR).Data)
		if len(snr) > 0 {
			s, err := stats.NewMapStats(snr)
			if err != nil {
				return nil, err
			}
			if s.P99 > 0 {
				r.Sections = append(r.Sections, Section{Name: "SNR(DoLP)", Data: snr, Min: 0, Max: s.P99})
			}
		}
	}
	r.Maps = []MapPage{
		{Name: "DoLP", Image: render.RenderDoLP(m.DoLP, m.Mask, maxDoLP)},
		{Name: "AoLP", Image: render.RenderAoLP(m.AoLP, m.Mask)},
	}
	return r, nil
}

// Returns the values of the section inside its range, dropping NaN and infinities
func (s *Section) InRange() []float64 {
	res := make([]float64, 0, len(s.Data))
	for _, v := range s.Data {
		if v >= s.Min && v <= s.Max {
			res = append(res, v)
		}
	}
	return res
}

// Bins the section into n equal-width bins over its range
func (s *Section) Counts(n int) (bins []int32, skipped int) {
	bins = make([]int32, n)
	skipped = stats.Histogram(s.Data, s.Min, s.Max, bins)
	return bins, skipped
}

func (s *Section) Label() string {
	if s.Unit == "" {
		return s.Name
	}
	return fmt.Sprintf("%s [%s]", s.Name, s.Unit)
}
