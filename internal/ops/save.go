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

package ops

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mlnoga/polarlight/internal/fits"
	"github.com/mlnoga/polarlight/internal/mosaic"
	"github.com/mlnoga/polarlight/internal/plane"
	"github.com/mlnoga/polarlight/internal/render"
	"github.com/mlnoga/polarlight/internal/report"
	"github.com/mlnoga/polarlight/internal/stats"
)

// Output file name patterns. Empty patterns are skipped. %d expands to the
// frame id, %s to the orientation label (p000..p135) or Stokes parameter (s0..s2).
// The suffix selects the format: .fits/.fit/.fts (optionally .gz), .png, .jpg
// or .tif for maps; .pdf and .html for reports.
type Outputs struct {
	Split  string `json:"split"` // four orientation FITS files
	DoLP   string `json:"dolp"`
	AoLP   string `json:"aolp"`
	SNR    string `json:"snr"`
	Stokes string `json:"stokes"` // three files, needs %s
	PNG    string `json:"png"`    // color maps of DoLP and AoLP, needs %s
	PDF    string `json:"pdf"`
	HTML   string `json:"html"`
}

// Expands a file name pattern
func ExpandPattern(pattern string, id int, label string) string {
	fileName := strings.ReplaceAll(pattern, "%s", label)
	if strings.Contains(fileName, "%") {
		fileName = fmt.Sprintf(fileName, id)
	}
	return fileName
}

// Writes all configured outputs of a result
func (o *Outputs) Save(r *Result, pc PipelineConfig, log io.Writer) error {
	if o.Split != "" {
		if err := o.saveSplit(r, log); err != nil {
			return err
		}
	}
	maps := []struct {
		pattern, kind, bunit string
		p                    *plane.Plane
	}{
		{o.DoLP, "DOLP", "%", r.Maps.DoLP},
		{o.AoLP, "AOLP", "deg", r.Maps.AoLP},
		{o.SNR, "SNR", "", r.Maps.SNR},
	}
	if o.Stokes != "" {
		if !strings.Contains(o.Stokes, "%s") {
			return fmt.Errorf("%d: stokes output pattern %q needs a %%s", r.ID, o.Stokes)
		}
		s := r.Maps.Stokes
		maps = append(maps, []struct {
			pattern, kind, bunit string
			p                    *plane.Plane
		}{
			{o.Stokes, "S0", "ADU", s.S0},
			{o.Stokes, "S1", "ADU", s.S1},
			{o.Stokes, "S2", "ADU", s.S2},
		}...)
	}
	if o.PNG != "" {
		if !strings.Contains(o.PNG, "%s") {
			return fmt.Errorf("%d: png output pattern %q needs a %%s", r.ID, o.PNG)
		}
		maps = append(maps, []struct {
			pattern, kind, bunit string
			p                    *plane.Plane
		}{
			{o.PNG, "DOLP", "%", r.Maps.DoLP},
			{o.PNG, "AOLP", "deg", r.Maps.AoLP},
		}...)
	}
	for _, m := range maps {
		if m.pattern == "" {
			continue
		}
		if m.p == nil {
			return fmt.Errorf("%d: no %s map to save, was it computed?", r.ID, m.kind)
		}
		fileName := ExpandPattern(m.pattern, r.ID, strings.ToLower(m.kind))
		fmt.Fprintf(log, "%d: Writing %s map to %s\n", r.ID, m.kind, fileName)
		if err := saveMap(fileName, m.kind, m.bunit, m.p, r, pc); err != nil {
			return fmt.Errorf("%d: Error writing to file %s: %w", r.ID, fileName, err)
		}
	}
	if o.PDF != "" || o.HTML != "" {
		rep, err := report.New(r.FileName, r.Images, r.Maps, r.BitDepth, pc.MaxDoLP)
		if err != nil {
			return err
		}
		if o.PDF != "" {
			fileName := ExpandPattern(o.PDF, r.ID, "report")
			fmt.Fprintf(log, "%d: Writing PDF report to %s\n", r.ID, fileName)
			if err := rep.WritePDFFile(fileName); err != nil {
				return fmt.Errorf("%d: Error writing to file %s: %w", r.ID, fileName, err)
			}
		}
		if o.HTML != "" {
			fileName := ExpandPattern(o.HTML, r.ID, "report")
			fmt.Fprintf(log, "%d: Writing HTML histograms to %s\n", r.ID, fileName)
			if err := rep.WriteHTMLFile(fileName); err != nil {
				return fmt.Errorf("%d: Error writing to file %s: %w", r.ID, fileName, err)
			}
		}
	}
	return nil
}

// Writes the four orientation grids as 16-bit FITS files tagged with POL_ANG
func (o *Outputs) saveSplit(r *Result, log io.Writer) error {
	if !isFITS(o.Split) {
		return fmt.Errorf("%d: split output %s is not a FITS file name", r.ID, o.Split)
	}
	for _, or := range mosaic.Orientations {
		g := r.Grids[or]
		if g == nil {
			return fmt.Errorf("%d: no %v grid to save", r.ID, or)
		}
		fileName := ExpandPattern(o.Split, r.ID, or.Label())
		img := fits.NewOrientationImage(g, r.Header, r.BitDepth)
		img.ID = r.ID
		fmt.Fprintf(log, "%d: Writing %s pixel %v FITS to %s\n", r.ID, img.DimensionsToString(), or, fileName)
		if err := img.WriteFile(fileName); err != nil {
			return fmt.Errorf("%d: Error writing to file %s: %w", r.ID, fileName, err)
		}
	}
	return nil
}

// Display range of a map: fixed for DoLP and AoLP, else the finite 1st to 99th percentile
func displayRange(kind string, p *plane.Plane, r *Result, pc PipelineConfig) (min, max float64, err error) {
	switch kind {
	case "DOLP":
		return 0, pc.MaxDoLP, nil
	case "AOLP":
		return -90, 90, nil
	}
	vals := stats.Finite(stats.Unmasked(p.Data, r.Maps.Mask))
	if len(vals) == 0 {
		return 0, 1, nil
	}
	s, err := stats.NewMapStats(vals)
	if err != nil {
		return 0, 0, err
	}
	if !(s.P99 > s.P01) {
		return s.P01, s.P01 + 1, nil
	}
	return s.P01, s.P99, nil
}

func saveMap(fileName, kind, bunit string, p *plane.Plane, r *Result, pc PipelineConfig) error {
	img := fits.NewMapImage(p, kind, bunit, r.Header)
	img.ID = r.ID
	if isFITS(fileName) {
		return img.WriteFile(fileName)
	}
	min, max, err := displayRange(kind, p, r, pc)
	if err != nil {
		return err
	}
	// previews show masked pixels as black
	preview := fits.NewMapImage(r.Maps.Masked(p), kind, bunit, r.Header)
	preview.ID = r.ID
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".png"):
		var cmap render.Colormap = render.Gray()
		switch kind {
		case "DOLP":
			cmap = render.Viridis()
		case "AOLP":
			cmap = render.AngleWheel()
		}
		return render.WritePNGFile(fileName, render.Render(p, r.Maps.Mask, min, max, cmap))
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return preview.WriteMonoJPGToFile(fileName, min, max, 1, 95)
	case isTIFF(fileName):
		return preview.WriteMonoTIFF16ToFile(fileName, min, max, 1)
	}
	return errors.New("Unknown suffix")
}
