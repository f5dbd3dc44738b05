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

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/mlnoga/polarlight/internal/stats"
)

// Creates an interactive bar chart of the section histogram
func (s *Section) Chart(bins int) *charts.Bar {
	counts, skipped := s.Counts(bins)
	x := make([]string, bins)
	y := make([]opts.BarData, bins)
	for i, c := range counts {
		x[i] = fmt.Sprintf("%.1f", stats.BinCenter(i, s.Min, s.Max, bins))
		y[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: s.Name, Subtitle: fmt.Sprintf("%d in range, %d skipped", len(s.Data)-skipped, skipped)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: s.Label(), NameLocation: "middle", NameGap: 25}),
	)
	bar.SetXAxis(x).AddSeries(s.Name, y)
	return bar
}

// Writes the report histograms as a self-contained HTML page
func (r *Report) WriteHTML(w io.Writer) error {
	page := components.NewPage()
	if r.Title != "" {
		page.PageTitle = r.Title
	}
	for i := range r.Sections {
		page.AddCharts(r.Sections[i].Chart(r.Bins))
	}
	return page.Render(w)
}

// Writes the report histograms as HTML file with the given name
func (r *Report) WriteHTMLFile(fileName string) error {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := r.WriteHTML(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}
