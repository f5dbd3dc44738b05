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
	"bufio"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
)

const (
	pageWidth  = 10 * vg.Inch
	pageHeight = 7 * vg.Inch
)

// Creates a histogram plot of the section. Sections without values in range
// produce an empty plot with axes only.
func (s *Section) Plot(bins int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = s.Name
	p.X.Label.Text = s.Label()
	p.Y.Label.Text = "count"
	p.X.Min, p.X.Max = s.Min, s.Max

	vals := s.InRange()
	if len(vals) == 0 {
		return p, nil
	}
	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	p.Add(h)
	return p, nil
}

// Creates a plot showing the image in pixel coordinates
func (m *MapPage) Plot() *plot.Plot {
	b := m.Image.Bounds()
	p := plot.New()
	p.Title.Text = m.Name
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"
	p.Add(plotter.NewImage(m.Image, 0, 0, float64(b.Dx()), float64(b.Dy())))
	return p
}

// Writes the report as PDF, one page per histogram and per map
func (r *Report) WritePDF(w io.Writer) error {
	var plots []*plot.Plot
	for i := range r.Sections {
		p, err := r.Sections[i].Plot(r.Bins)
		if err != nil {
			return err
		}
		if i == 0 && r.Title != "" {
			p.Title.Text = r.Title + ": " + p.Title.Text
		}
		plots = append(plots, p)
	}
	for i := range r.Maps {
		plots = append(plots, r.Maps[i].Plot())
	}

	c := vgpdf.New(pageWidth, pageHeight)
	for i, p := range plots {
		if i > 0 {
			c.NextPage()
		}
		p.Draw(draw.New(c))
	}
	_, err := c.WriteTo(w)
	return err
}

// Writes the report as PDF file with the given name
func (r *Report) WritePDFFile(fileName string) error {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := r.WritePDF(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
