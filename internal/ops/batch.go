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
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mlnoga/polarlight/internal/fits"
	"github.com/mlnoga/polarlight/internal/mosaic"
	"github.com/mlnoga/polarlight/internal/sensor"
)

// Loads frames from raw or FITS files
type Loader struct {
	Geometry sensor.Geometry `json:"sensor"`
	Scale16  bool            `json:"scale16"` // divide FITS values by 16, for 16-bit stretched 12-bit data
}

// Returns the lowercase extension of a file name, ignoring a trailing .gz or .gzip
func baseExt(fileName string) string {
	lower := strings.ToLower(fileName)
	ext := filepath.Ext(lower)
	if ext == ".gz" || ext == ".gzip" {
		ext = filepath.Ext(strings.TrimSuffix(lower, ext))
	}
	return ext
}

func isFITS(fileName string) bool {
	switch baseExt(fileName) {
	case ".fits", ".fit", ".fts":
		return true
	}
	return false
}

func isTIFF(fileName string) bool {
	switch baseExt(fileName) {
	case ".tif", ".tiff":
		return true
	}
	return false
}

// Loads a full sensor frame. Raw files are decoded with the configured geometry,
// FITS and TIFF files take their size from the file and their bit depth from the
// BITDEPTH header key if present. The FITS header is returned for carrying over
// into outputs, nil for raw input.
func (l *Loader) LoadFrame(fileName string, id int, log io.Writer) (*sensor.Frame, *fits.Header, error) {
	if !isFITS(fileName) && !isTIFF(fileName) {
		f, err := sensor.ReadRawFile(fileName, id, l.Geometry, log)
		return f, nil, err
	}
	img, err := fits.NewImageFromFile(fileName, id, log)
	if err != nil {
		return nil, nil, err
	}
	f, err := img.ToFrame(l.Geometry.BitDepth, l.Scale16)
	if err != nil {
		return nil, nil, err
	}
	fmt.Fprintf(log, "%d: Loaded %s image from %s\n", id, img.DimensionsToString(), fileName)
	return f, &img.Header, nil
}

// Loads four orientation images, as written by the split command, into grids.
// The orientation of each file comes from its POL_ANG header key, so file
// order does not matter. Returns the grids, the bit depth and the header of
// the first file.
func (l *Loader) LoadOrientations(fileNames []string, log io.Writer) (gs mosaic.Grids, bitDepth int, hdr *fits.Header, err error) {
	if len(fileNames) != mosaic.NumOrientations {
		return gs, 0, nil, fmt.Errorf("need %d orientation files, got %d", mosaic.NumOrientations, len(fileNames))
	}
	for i, fileName := range fileNames {
		img, err := fits.NewImageFromFile(fileName, i, log)
		if err != nil {
			return gs, 0, nil, err
		}
		o, err := img.Orientation()
		if err != nil {
			return gs, 0, nil, err
		}
		if gs[o] != nil {
			return gs, 0, nil, fmt.Errorf("%d: %s: duplicate orientation %v", i, fileName, o)
		}
		p, err := img.Plane()
		if err != nil {
			return gs, 0, nil, err
		}
		if l.Scale16 {
			p = p.Map(func(v float64) float64 { return v / 16 })
		}
		if gs[o], err = mosaic.NewGrid(p, o); err != nil {
			return gs, 0, nil, err
		}
		if i == 0 {
			bitDepth, hdr = img.BitDepth(l.Geometry.BitDepth), &img.Header
		}
		fmt.Fprintf(log, "%d: Loaded %s %s image from %s\n", i, o, img.DimensionsToString(), fileName)
	}
	return gs, bitDepth, hdr, nil
}

// Runs the pipeline over many files, with bounded concurrency
type Batch struct {
	Pipeline *Pipeline
	Loader   *Loader
	Outputs  *Outputs // may be nil
	Forget   bool     // drop results after writing outputs, to save memory
}

// Creates a promise to load, process and save one file
func (b *Batch) promise(ctx context.Context, id int, fileName string) Promise {
	return func() (*Result, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := b.Pipeline.log()
		f, hdr, err := b.Loader.LoadFrame(fileName, id, log)
		if err != nil {
			return nil, err
		}
		f.ID, f.FileName = id, fileName
		r, err := b.Pipeline.Run(ctx, f)
		if err != nil {
			return nil, err
		}
		r.Header = hdr
		if b.Outputs != nil {
			if err := b.Outputs.Save(r, b.Pipeline.Config, log); err != nil {
				return nil, err
			}
		}
		return r, nil
	}
}

// Processes the given files. Results are returned in input order, except
// for failed files, which are left out and reported in the joint error.
func (b *Batch) Run(ctx context.Context, fileNames []string) ([]*Result, error) {
	threads := 1
	if b.Pipeline.Ctx != nil {
		threads = b.Pipeline.Ctx.ThreadsFor(b.Loader.Geometry.Pixels())
	}
	fmt.Fprintf(b.Pipeline.log(), "Processing %d files with %d threads\n", len(fileNames), threads)
	promises := make([]Promise, len(fileNames))
	for i, fileName := range fileNames {
		promises[i] = b.promise(ctx, i, fileName)
	}
	return MaterializeAll(promises, threads, b.Forget)
}
