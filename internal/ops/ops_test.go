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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/tiff"

	"github.com/mlnoga/polarlight/internal/sensor"
	"github.com/mlnoga/polarlight/internal/synth"
)

func TestMaterializeAll(t *testing.T) {
	var running, peak int32
	ins := make([]Promise, 10)
	for i := range ins {
		i := i
		ins[i] = func() (*Result, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			defer atomic.AddInt32(&running, -1)
			if i%4 == 3 {
				return nil, fmt.Errorf("fail %d", i)
			}
			return &Result{ID: i}, nil
		}
	}
	outs, err := MaterializeAll(ins, 3, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fail 3")
	assert.Contains(t, err.Error(), "fail 7")
	ids := []int{}
	for _, r := range outs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int{0, 1, 2, 4, 5, 6, 8, 9}, ids)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))

	outs, err = MaterializeAll(ins[:3], 2, true)
	assert.NoError(t, err)
	assert.Empty(t, outs)
}

func TestRemoveNils(t *testing.T) {
	a, b := &Result{ID: 1}, &Result{ID: 2}
	rs := RemoveNils([]*Result{nil, a, nil, b})
	assert.Equal(t, []*Result{a, b}, rs)
}

func TestThreadsFor(t *testing.T) {
	c := &Context{MaxThreads: 8, WorkMemoryMB: 100}
	assert.Equal(t, 8, c.ThreadsFor(1000))
	// 2048x2448 frames need about 400 MB each
	assert.Equal(t, 1, c.ThreadsFor(2048*2448))
	c.WorkMemoryMB = 0
	assert.Equal(t, 8, c.ThreadsFor(2048*2448))

	nc := NewContext(io.Discard, 0)
	assert.GreaterOrEqual(t, nc.MaxThreads, 1)
	assert.NotEmpty(t, nc.String())
}

func TestIsPathAllowed(t *testing.T) {
	assert.True(t, IsPathAllowed("data/frame.raw"))
	assert.False(t, IsPathAllowed("/etc/passwd"))
	assert.False(t, IsPathAllowed("../secret.fits"))
}

func TestGlobFiles(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a.raw", "b.raw", "c.fits"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte{0}, 0644))
	}
	var log bytes.Buffer
	names, err := GlobFiles([]string{filepath.Join(dir, "*.raw")}, false, &log)
	require.NoError(t, err)
	assert.Len(t, names, 2)
	assert.Contains(t, log.String(), "Found 2 files")

	_, err = GlobFiles([]string{filepath.Join(dir, "*.raw")}, true, &log)
	assert.Error(t, err)
	_, err = GlobFiles([]string{filepath.Join(dir, "*.tif")}, false, &log)
	assert.Error(t, err)
}

func TestExpandPattern(t *testing.T) {
	assert.Equal(t, "out3_p045.fits", ExpandPattern("out%d_%s.fits", 3, "p045"))
	assert.Equal(t, "out0007.png", ExpandPattern("out%04d.png", 7, "dolp"))
	assert.Equal(t, "dolp.fits", ExpandPattern("dolp.fits", 7, "dolp"))
}

func testFrame(t *testing.T, mod func(p *synth.Params)) *sensor.Frame {
	p := synth.DefaultParams()
	p.Height, p.Width = 16, 20
	if mod != nil {
		mod(&p)
	}
	f, err := synth.Frame(p)
	require.NoError(t, err)
	return f
}

func TestPipelineRun(t *testing.T) {
	var log bytes.Buffer
	pl, err := NewPipeline(DefaultPipelineConfig(), NewContext(&log, 2))
	require.NoError(t, err)
	r, err := pl.Run(context.Background(), testFrame(t, nil))
	require.NoError(t, err)

	rows, cols := r.Maps.DoLP.Shape()
	assert.Equal(t, [2]int{14, 18}, [2]int{rows, cols})
	require.NotNil(t, r.DoLPStats)
	assert.InDelta(t, 30, r.DoLPStats.P50, 0.2)
	assert.InDelta(t, 30, r.AoLPStats.P50, 0.2)
	require.NotNil(t, r.SNRStats)
	assert.Equal(t, 0, r.DoLPStats.BitDepth)
	assert.Equal(t, 0, r.DoLPStats.Nonlinear, "percent values are not compared to an ADU threshold")
	assert.Equal(t, 0, r.SNRStats.NumNonlinear)
	assert.Equal(t, 0, r.Maps.NumMasked())
	assert.Contains(t, log.String(), "DoLP")

	m, err := json.Marshal(r.Summary())
	require.NoError(t, err)
	assert.Contains(t, string(m), `"dolp"`)
}

func TestPipelineHalfRes(t *testing.T) {
	pc := DefaultPipelineConfig()
	pc.HalfRes, pc.SNR = true, false
	pl, err := NewPipeline(pc, nil)
	require.NoError(t, err)
	r, err := pl.Run(context.Background(), testFrame(t, nil))
	require.NoError(t, err)
	rows, cols := r.Maps.DoLP.Shape()
	assert.Equal(t, [2]int{8, 10}, [2]int{rows, cols})
	assert.Nil(t, r.Maps.SNR)
	assert.Nil(t, r.SNRStats)
	assert.Equal(t, r.Grids[0].Plane, r.Images[0])
}

func TestPipelineMasksSaturation(t *testing.T) {
	pl, err := NewPipeline(DefaultPipelineConfig(), nil)
	require.NoError(t, err)
	f := testFrame(t, func(p *synth.Params) { p.BitDepth, p.Intensity = 8, 1000 })
	r, err := pl.Run(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, len(r.Maps.DoLP.Data), r.Maps.NumMasked())
	assert.Nil(t, r.DoLPStats)
	assert.Equal(t, 217, r.FrameStats.Nonlinear)
	assert.Equal(t, len(f.Data), r.FrameStats.NumNonlinear)
}

func TestPreviewsShowMaskedPixelsBlack(t *testing.T) {
	pl, err := NewPipeline(DefaultPipelineConfig(), nil)
	require.NoError(t, err)
	r, err := pl.Run(context.Background(), testFrame(t, nil))
	require.NoError(t, err)
	require.Equal(t, 0, r.Maps.NumMasked())

	dir := t.TempDir()
	gray := func(fileName string) uint32 {
		f, err := os.Open(fileName)
		require.NoError(t, err)
		defer f.Close()
		img, _, err := image.Decode(f)
		require.NoError(t, err, fileName)
		v, _, _, _ := img.At(3, 3).RGBA()
		return v
	}
	save := func(name string) (jpg, tif string) {
		o := &Outputs{
			DoLP: filepath.Join(dir, name+"%d.jpg"),
			AoLP: filepath.Join(dir, name+"%d.tif"),
		}
		require.NoError(t, o.Save(r, pl.Config, io.Discard))
		return ExpandPattern(o.DoLP, r.ID, "dolp"), ExpandPattern(o.AoLP, r.ID, "aolp")
	}

	jpg, tif := save("plain")
	assert.NotZero(t, gray(jpg), "DoLP of 30% must not render black")
	assert.NotZero(t, gray(tif), "AoLP of 30 degrees must not render black")

	for i := range r.Maps.Mask {
		r.Maps.Mask[i] = true
	}
	jpg, tif = save("masked")
	assert.Zero(t, gray(jpg))
	assert.Zero(t, gray(tif))
	assert.InDelta(t, 30, r.Maps.DoLP.Data[0], 1, "masking leaves the map data intact")
}

func TestPipelineCancelled(t *testing.T) {
	pl, err := NewPipeline(DefaultPipelineConfig(), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pl.Run(ctx, testFrame(t, nil))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPipelineConfigValidate(t *testing.T) {
	pc := DefaultPipelineConfig()
	pc.MaxDoLP = 0
	_, err := NewPipeline(pc, nil)
	assert.Error(t, err)
	pc = DefaultPipelineConfig()
	pc.Bins = 1
	assert.Error(t, pc.Validate())
}

func TestBatchSplitAndReload(t *testing.T) {
	dir := t.TempDir()
	f := testFrame(t, func(p *synth.Params) { p.Noise = true })
	for i := 0; i < 2; i++ {
		require.NoError(t, sensor.WriteRawFile(filepath.Join(dir, fmt.Sprintf("frame%d.raw", i)), f))
	}
	var log bytes.Buffer
	c := NewContext(&log, 2)
	pc := DefaultPipelineConfig()
	pc.HalfRes = true
	pl, err := NewPipeline(pc, c)
	require.NoError(t, err)
	b := &Batch{
		Pipeline: pl,
		Loader:   &Loader{Geometry: f.Geometry()},
		Outputs: &Outputs{
			Split:  filepath.Join(dir, "split%d_%s.fits"),
			DoLP:   filepath.Join(dir, "dolp%d.fits"),
			AoLP:   filepath.Join(dir, "aolp%d.png"),
			SNR:    filepath.Join(dir, "snr%d.tif"),
			Stokes: filepath.Join(dir, "stokes%d_%s.fits.gz"),
			PDF:    filepath.Join(dir, "report%d.pdf"),
			HTML:   filepath.Join(dir, "report%d.html"),
		},
	}
	names, err := GlobFiles([]string{filepath.Join(dir, "*.raw")}, false, &log)
	require.NoError(t, err)
	rs, err := b.Run(context.Background(), names)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Contains(t, log.String(), "Decoding 12-bit image")

	for _, n := range []string{"split1_p000.fits", "split1_p135.fits", "dolp1.fits", "aolp1.png",
		"snr1.tif", "stokes1_s0.fits.gz", "stokes1_s2.fits.gz", "report1.pdf", "report1.html"} {
		_, err := os.Stat(filepath.Join(dir, n))
		assert.NoError(t, err, n)
	}

	// reload the split files in scrambled order
	files := []string{}
	for _, l := range []string{"p090", "p000", "p135", "p045"} {
		files = append(files, filepath.Join(dir, "split0_"+l+".fits"))
	}
	l := &Loader{Geometry: sensor.Geometry{BitDepth: 8}}
	gs, bitDepth, hdr, err := l.LoadOrientations(files, &log)
	require.NoError(t, err)
	assert.Equal(t, 12, bitDepth)
	require.NotNil(t, hdr)
	r, err := pl.RunGrids(context.Background(), 0, "split0", gs, bitDepth)
	require.NoError(t, err)
	assert.Equal(t, rs[0].Maps.DoLP.Data, r.Maps.DoLP.Data)
	assert.Equal(t, rs[0].Maps.AoLP.Data, r.Maps.AoLP.Data)

	_, _, _, err = l.LoadOrientations(files[:3], &log)
	assert.Error(t, err)
	_, _, _, err = l.LoadOrientations([]string{files[0], files[0], files[1], files[2]}, &log)
	assert.True(t, err != nil && strings.Contains(err.Error(), "duplicate"))
}

func TestStokesPatternNeedsLabel(t *testing.T) {
	pl, _ := NewPipeline(DefaultPipelineConfig(), nil)
	r, err := pl.Run(context.Background(), testFrame(t, nil))
	require.NoError(t, err)
	o := &Outputs{Stokes: filepath.Join(t.TempDir(), "stokes.fits")}
	assert.Error(t, o.Save(r, pl.Config, io.Discard))
}

func TestLoadFrameFITS(t *testing.T) {
	dir := t.TempDir()
	f := testFrame(t, nil)
	pl, _ := NewPipeline(DefaultPipelineConfig(), nil)
	r, err := pl.Run(context.Background(), f)
	require.NoError(t, err)
	// split writes 16-bit FITS, which doubles as a full-frame loader check
	o := &Outputs{Split: filepath.Join(dir, "g_%s.fits")}
	require.NoError(t, o.Save(r, pl.Config, io.Discard))

	l := &Loader{Geometry: sensor.Geometry{BitDepth: 8}}
	g, hdr, err := l.LoadFrame(filepath.Join(dir, "g_p090.fits"), 5, io.Discard)
	require.NoError(t, err)
	require.NotNil(t, hdr)
	assert.Equal(t, 12, g.BitDepth)
	assert.Equal(t, 8, g.Height)
	assert.Equal(t, 10, g.Width)
	assert.Equal(t, f.At(0, 0), g.At(0, 0))
	assert.Equal(t, f.At(2, 4), g.At(1, 2))
}
