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
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/polarlight/internal/ops"
	"github.com/mlnoga/polarlight/internal/sensor"
	"github.com/mlnoga/polarlight/internal/synth"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(&Server{
		Geometry: sensor.Geometry{Height: 16, Width: 20, BitDepth: 8},
		Pipeline: ops.DefaultPipelineConfig(),
		Ctx:      ops.NewContext(io.Discard, 2),
	})
}

func rawFrame(t *testing.T) []byte {
	p := synth.DefaultParams()
	p.Height, p.Width, p.BitDepth, p.Intensity = 16, 20, 8, 200
	f, err := synth.Frame(p)
	require.NoError(t, err)
	return sensor.Encode(f)
}

func post(r *gin.Engine, url string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	r := testRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestIndex(t *testing.T) {
	r := testRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/polarize")
}

func TestPostStats(t *testing.T) {
	w := post(testRouter(), "/api/v1/stats", rawFrame(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		BitDepth int `json:"bitDepth"`
		Stats    struct {
			Nonlinear int `json:"nonlinear"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 8, res.BitDepth)
	assert.Equal(t, 217, res.Stats.Nonlinear)
}

func TestPostPolarize(t *testing.T) {
	w := post(testRouter(), "/api/v1/polarize", rawFrame(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var s ops.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, 14, s.Rows)
	assert.Equal(t, 18, s.Cols)
	require.NotNil(t, s.DoLP)
	assert.InDelta(t, 30, s.DoLP.P50, 2)

	w = post(testRouter(), "/api/v1/polarize?halfres=true&snr=false", rawFrame(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var half ops.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &half))
	assert.Equal(t, 8, half.Rows)
	assert.Nil(t, half.SNR)
}

func TestPostWrongSize(t *testing.T) {
	w := post(testRouter(), "/api/v1/polarize", make([]byte, 10))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "got 10 bytes")

	w = post(testRouter(), "/api/v1/polarize?height=15", make([]byte, 300))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(testRouter(), "/api/v1/stats?height=-2", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostPNG(t *testing.T) {
	for _, url := range []string{"/api/v1/dolp.png", "/api/v1/aolp.png?mask=false"} {
		w := post(testRouter(), url, rawFrame(t))
		require.Equal(t, http.StatusOK, w.Code, url)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		img, err := png.Decode(w.Body)
		require.NoError(t, err, url)
		assert.Equal(t, 18, img.Bounds().Dx(), url)
	}
}

func TestWritePNGEncodingError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &Server{
		Geometry: sensor.Geometry{Height: 16, Width: 20, BitDepth: 8},
		Pipeline: ops.DefaultPipelineConfig(),
		Ctx:      ops.NewContext(io.Discard, 2),
	}
	r := gin.New()
	r.POST("/empty.png", func(c *gin.Context) {
		s.writePNG(c, func(*ops.Result, *ops.PipelineConfig) image.Image {
			return image.NewNRGBA(image.Rect(0, 0, 0, 0)) // PNG cannot encode an empty image
		})
	})
	w := post(r, "/empty.png", rawFrame(t))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEqual(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "error")
}

func TestPostHistogram(t *testing.T) {
	w := post(testRouter(), "/api/v1/histogram?maxdolp=60", rawFrame(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "AoLP")
}

func TestPostBatchSandboxed(t *testing.T) {
	body, _ := json.Marshal(postBatchArgs{FilePatterns: []string{"/etc/*.raw"}})
	w := post(testRouter(), "/api/v1/batch", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Error globbing")

	body, _ = json.Marshal(postBatchArgs{
		FilePatterns: []string{"*.raw"},
		Outputs:      &ops.Outputs{DoLP: "../dolp.fits"},
	})
	w = post(testRouter(), "/api/v1/batch", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(&sensor.RangeError{BitDepth: 12}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}
