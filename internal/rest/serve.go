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

package rest

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/polarlight/internal/ops"
	"github.com/mlnoga/polarlight/internal/plane"
	"github.com/mlnoga/polarlight/internal/render"
	"github.com/mlnoga/polarlight/internal/report"
	"github.com/mlnoga/polarlight/internal/sensor"
	"github.com/mlnoga/polarlight/internal/stats"
	"github.com/mlnoga/polarlight/web"
)

// Server settings. Requests may override geometry and pipeline flags via query parameters.
type Server struct {
	Geometry sensor.Geometry
	Pipeline ops.PipelineConfig
	Ctx      *ops.Context
}

// Creates the router with all routes
func NewRouter(s *Server) *gin.Engine {
	r := gin.Default()
	r.GET("/", getIndex)
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/stats", s.postStats)
			v1.POST("/polarize", s.postPolarize)
			v1.POST("/dolp.png", s.postDoLPPNG)
			v1.POST("/aolp.png", s.postAoLPPNG)
			v1.POST("/histogram", s.postHistogram)
			v1.POST("/batch", s.postBatch)
		}
	}
	return r
}

// Listens and serves on the given address, e.g. ":8080"
func Serve(addr string, s *Server) error {
	return NewRouter(s).Run(addr)
}

func getIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// Query parameters of the raw frame endpoints
type frameQuery struct {
	Height  int      `form:"height"`
	Width   int      `form:"width"`
	HalfRes *bool    `form:"halfres"`
	SNR     *bool    `form:"snr"`
	Mask    *bool    `form:"mask"`
	MaxDoLP *float64 `form:"maxdolp"`
}

// Maps decoding and shape errors to 400, everything else to 500
func statusFor(err error) int {
	var fe *sensor.FormatError
	var de *sensor.DimensionError
	var re *sensor.RangeError
	var se *plane.ShapeMismatchError
	if errors.As(err, &fe) || errors.As(err, &de) || errors.As(err, &re) || errors.As(err, &se) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// Decodes the raw request body into a frame, with geometry from the query or the server defaults
func (s *Server) readFrame(c *gin.Context) (*sensor.Frame, *frameQuery, bool) {
	q := frameQuery{Height: s.Geometry.Height, Width: s.Geometry.Width}
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return nil, nil, false
	}
	g := sensor.Geometry{Height: q.Height, Width: q.Width, BitDepth: s.Geometry.BitDepth}
	if g.Height <= 0 || g.Width <= 0 {
		abortWithError(c, http.StatusBadRequest, &sensor.DimensionError{Height: g.Height, Width: g.Width, Reason: "not positive"})
		return nil, nil, false
	}
	limit := int64(2*g.Pixels()) + 1 // one byte more than the largest valid frame, to detect oversize bodies
	buf, err := io.ReadAll(io.LimitReader(c.Request.Body, limit))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return nil, nil, false
	}
	f, err := sensor.DecodeGeometry(buf, g, s.log())
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return nil, nil, false
	}
	return f, &q, true
}

func (s *Server) log() io.Writer {
	if s.Ctx == nil || s.Ctx.Log == nil {
		return io.Discard
	}
	return s.Ctx.Log
}

// Runs the pipeline on the request body, with query overrides of the pipeline config
func (s *Server) run(c *gin.Context) (*ops.Result, *ops.PipelineConfig, bool) {
	f, q, ok := s.readFrame(c)
	if !ok {
		return nil, nil, false
	}
	pc := s.Pipeline
	if q.HalfRes != nil {
		pc.HalfRes = *q.HalfRes
	}
	if q.SNR != nil {
		pc.SNR = *q.SNR
	}
	if q.Mask != nil {
		pc.MaskNonlinear = *q.Mask
	}
	if q.MaxDoLP != nil {
		pc.MaxDoLP = *q.MaxDoLP
	}
	pl, err := ops.NewPipeline(pc, s.Ctx)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return nil, nil, false
	}
	r, err := pl.Run(c.Request.Context(), f)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return nil, nil, false
	}
	return r, &pc, true
}

func (s *Server) postStats(c *gin.Context) {
	f, _, ok := s.readFrame(c)
	if !ok {
		return
	}
	st, err := stats.NewFrameStats(f)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"height": f.Height, "width": f.Width, "bitDepth": f.BitDepth, "stats": st,
	})
}

func (s *Server) postPolarize(c *gin.Context) {
	r, _, ok := s.run(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, r.Summary())
}

func (s *Server) writePNG(c *gin.Context, draw func(r *ops.Result, pc *ops.PipelineConfig) image.Image) {
	r, pc, ok := s.run(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.WritePNG(&buf, draw(r, pc)); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) postDoLPPNG(c *gin.Context) {
	s.writePNG(c, func(r *ops.Result, pc *ops.PipelineConfig) image.Image {
		return render.RenderDoLP(r.Maps.DoLP, r.Maps.Mask, pc.MaxDoLP)
	})
}

func (s *Server) postAoLPPNG(c *gin.Context) {
	s.writePNG(c, func(r *ops.Result, pc *ops.PipelineConfig) image.Image {
		return render.RenderAoLP(r.Maps.AoLP, r.Maps.Mask)
	})
}

func (s *Server) postHistogram(c *gin.Context) {
	r, pc, ok := s.run(c)
	if !ok {
		return
	}
	rep, err := report.New("polarlight", r.Images, r.Maps, r.BitDepth, pc.MaxDoLP)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	var buf bytes.Buffer
	if err := rep.WriteHTML(&buf); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

type postBatchArgs struct {
	FilePatterns []string            `json:"filePatterns"`
	Pipeline     *ops.PipelineConfig `json:"pipeline"`
	Outputs      *ops.Outputs        `json:"outputs"`
	Scale16      bool                `json:"scale16"`
}

// Returns an error unless all output patterns stay inside the current directory tree
func checkOutputs(o *ops.Outputs) error {
	if o == nil {
		return nil
	}
	for _, p := range []string{o.Split, o.DoLP, o.AoLP, o.SNR, o.Stokes, o.PNG, o.PDF, o.HTML} {
		if p != "" && !ops.IsPathAllowed(p) {
			return fmt.Errorf("output %s outside current directory tree", p)
		}
	}
	return nil
}

// Processes files on the server, streaming the log as plain text
func (s *Server) postBatch(c *gin.Context) {
	logWriter := c.Writer
	var args postBatchArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := checkOutputs(args.Outputs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pc := s.Pipeline
	if args.Pipeline != nil {
		pc = *args.Pipeline
	}

	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	if err := ops.PrintJSON(logWriter, "Arguments:\n", "\n", args); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	fileNames, err := ops.GlobFiles(args.FilePatterns, true, logWriter)
	if err != nil {
		fmt.Fprintf(logWriter, "Error globbing filenames: %s\n", err.Error())
		return
	}

	ctx := &ops.Context{Log: logWriter, MaxThreads: 1}
	if s.Ctx != nil {
		copied := *s.Ctx
		copied.Log = logWriter
		ctx = &copied
	}
	pl, err := ops.NewPipeline(pc, ctx)
	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		return
	}
	b := &ops.Batch{
		Pipeline: pl,
		Loader:   &ops.Loader{Geometry: s.Geometry, Scale16: args.Scale16},
		Outputs:  args.Outputs,
		Forget:   true,
	}
	if _, err := b.Run(c.Request.Context(), fileNames); err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	logWriter.Flush()
}
