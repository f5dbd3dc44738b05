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
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/mlnoga/polarlight/internal/fits"
	"github.com/mlnoga/polarlight/internal/mosaic"
	"github.com/mlnoga/polarlight/internal/polar"
	"github.com/mlnoga/polarlight/internal/sensor"
	"github.com/mlnoga/polarlight/internal/stats"
)

// Settings of the polarimetry pipeline. JSON serializable
type PipelineConfig struct {
	HalfRes       bool    `json:"halfRes"`       // compute maps from the unreconstructed grids
	SNR           bool    `json:"snr"`           // compute the DoLP signal to noise ratio
	MaskNonlinear bool    `json:"maskNonlinear"` // mask pixels outside the linear sensor range
	MaxDoLP       float64 `json:"maxDoLP"`       // upper end of DoLP histograms and color maps, percent
	Bins          int     `json:"bins"`          // histogram bins for the DoLP mode fit
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{SNR: true, MaskNonlinear: true, MaxDoLP: 100, Bins: 256}
}

func (pc *PipelineConfig) Validate() error {
	if !(pc.MaxDoLP > 0) {
		return fmt.Errorf("maxDoLP %g must be positive", pc.MaxDoLP)
	}
	if pc.Bins < 2 {
		return fmt.Errorf("bins %d must be at least 2", pc.Bins)
	}
	return nil
}

// Result of running the pipeline on one frame
type Result struct {
	ID       int
	FileName string
	BitDepth int
	Header   *fits.Header // header of the FITS input, nil for raw input

	Frame  *sensor.Frame // nil if the input was four orientation images
	Grids  mosaic.Grids
	Images mosaic.Images // reconstructed images, or the grids themselves at half resolution
	Maps   *polar.Maps

	FrameStats *stats.Stats
	DoLPStats  *stats.Stats // over finite, unmasked pixels. Nil if there are none
	AoLPStats  *stats.Stats
	SNRStats   *stats.Stats

	DoLPMode   float64 // histogram mode of the DoLP, NaN if the fit failed
	DoLPStdDev float64
}

// The polarimetry pipeline: split, reconstruct, Stokes, DoLP/AoLP/SNR, mask, stats
type Pipeline struct {
	Config PipelineConfig
	Ctx    *Context
}

func NewPipeline(config PipelineConfig, c *Context) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{Config: config, Ctx: c}, nil
}

func (p *Pipeline) log() io.Writer {
	if p.Ctx == nil || p.Ctx.Log == nil {
		return io.Discard
	}
	return p.Ctx.Log
}

// Runs the pipeline on a sensor frame. Checks ctx between stages.
func (p *Pipeline) Run(ctx context.Context, f *sensor.Frame) (*Result, error) {
	r := &Result{ID: f.ID, FileName: f.FileName, BitDepth: f.BitDepth, Frame: f}
	var err error
	if r.FrameStats, err = stats.NewFrameStats(f); err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	fmt.Fprintf(p.log(), "%d: Frame %s %v\n", f.ID, f, r.FrameStats)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.Grids, err = mosaic.Split(f); err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	if err := p.runGrids(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Runs the pipeline on four orientation grids, e.g. read from separate FITS files
func (p *Pipeline) RunGrids(ctx context.Context, id int, fileName string, gs mosaic.Grids, bitDepth int) (*Result, error) {
	if err := sensor.CheckBitDepth(bitDepth); err != nil {
		return nil, err
	}
	r := &Result{ID: id, FileName: fileName, BitDepth: bitDepth, Grids: gs}
	if err := p.runGrids(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *Pipeline) runGrids(ctx context.Context, r *Result) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Config.HalfRes {
		for _, o := range mosaic.Orientations {
			if r.Grids[o] != nil {
				r.Images[o] = r.Grids[o].Plane
			}
		}
		if r.Maps, err = polar.HalfResolution(r.Grids, p.Config.SNR); err != nil {
			return fmt.Errorf("%d: %w", r.ID, err)
		}
	} else {
		if r.Images, err = mosaic.ReconstructAll(ctx, r.Grids); err != nil {
			return fmt.Errorf("%d: %w", r.ID, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.Maps, err = polar.FullResolution(r.Images, p.Config.SNR); err != nil {
			return fmt.Errorf("%d: %w", r.ID, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.Config.MaskNonlinear {
		threshold := float64(stats.NonlinearThreshold(r.BitDepth))
		i000, i045, i090, i135 := r.Images.Planes()
		if err := r.Maps.MaskNonlinear(threshold, i000, i045, i090, i135); err != nil {
			return fmt.Errorf("%d: %w", r.ID, err)
		}
		if n := r.Maps.NumMasked(); n > 0 {
			fmt.Fprintf(p.log(), "%d: Masked %d nonlinear pixels at or above %.0f ADU\n", r.ID, n, threshold)
		}
	}

	if r.DoLPStats, err = p.mapStats(r, r.Maps.DoLP.Data); err != nil {
		return err
	}
	if r.AoLPStats, err = p.mapStats(r, r.Maps.AoLP.Data); err != nil {
		return err
	}
	if r.Maps.SNR != nil {
		if r.SNRStats, err = p.mapStats(r, r.Maps.SNR.Data); err != nil {
			return err
		}
	}

	bins := make([]int32, p.Config.Bins)
	stats.Histogram(stats.Unmasked(r.Maps.DoLP.Data, r.Maps.Mask), 0, p.Config.MaxDoLP, bins)
	r.DoLPMode, r.DoLPStdDev, err = stats.GetModeStdDevFromHistogram(bins, 0, p.Config.MaxDoLP)
	if err != nil {
		fmt.Fprintf(p.log(), "%d: DoLP mode fit failed: %s\n", r.ID, err.Error())
		r.DoLPMode, r.DoLPStdDev = math.NaN(), math.NaN()
	}

	rows, cols := r.Maps.DoLP.Shape()
	fmt.Fprintf(p.log(), "%d: %dx%d DoLP %v\n", r.ID, cols, rows, r.DoLPStats)
	fmt.Fprintf(p.log(), "%d: %dx%d AoLP %v\n", r.ID, cols, rows, r.AoLPStats)
	return nil
}

// Statistics over the finite, unmasked values of a map. Nil if there are none
func (p *Pipeline) mapStats(r *Result, data []float64) (*stats.Stats, error) {
	vals := stats.Finite(stats.Unmasked(data, r.Maps.Mask))
	if len(vals) == 0 {
		return nil, nil
	}
	s, err := stats.NewMapStats(vals)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", r.ID, err)
	}
	return s, nil
}

// Summary of a result for JSON output
type Summary struct {
	ID         int          `json:"id"`
	FileName   string       `json:"fileName,omitempty"`
	BitDepth   int          `json:"bitDepth"`
	Rows       int          `json:"rows"`
	Cols       int          `json:"cols"`
	Masked     int          `json:"masked"`
	Frame      *stats.Stats `json:"frame,omitempty"`
	DoLP       *stats.Stats `json:"dolp,omitempty"`
	AoLP       *stats.Stats `json:"aolp,omitempty"`
	SNR        *stats.Stats `json:"snr,omitempty"`
	DoLPMode   *float64     `json:"dolpMode,omitempty"`
	DoLPStdDev *float64     `json:"dolpStdDev,omitempty"`
}

func (r *Result) Summary() *Summary {
	s := &Summary{
		ID: r.ID, FileName: r.FileName, BitDepth: r.BitDepth,
		Frame: r.FrameStats, DoLP: r.DoLPStats, AoLP: r.AoLPStats, SNR: r.SNRStats,
	}
	if r.Maps != nil {
		s.Rows, s.Cols = r.Maps.DoLP.Shape()
		s.Masked = r.Maps.NumMasked()
	}
	if finite(r.DoLPMode) && finite(r.DoLPStdDev) {
		mode, sd := r.DoLPMode, r.DoLPStdDev
		s.DoLPMode, s.DoLPStdDev = &mode, &sd
	}
	return s
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Prints a configuration as indented JSON
func PrintJSON(w io.Writer, prefix, suffix string, v interface{}) error {
	m, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s%s%s", prefix, string(m), suffix)
	return nil
}
