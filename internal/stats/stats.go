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

package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mlnoga/polarlight/internal/sensor"
)

// Descriptive statistics of an image, for diagnostics and display ranges
type Stats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	P01  float64 `json:"p01"` // 1st percentile
	P50  float64 `json:"p50"` // Median
	P99  float64 `json:"p99"` // 99th percentile

	// ADU fields. Zero and omitted from JSON for derived maps in percent, degrees or SNR
	BitDepth     int `json:"bitDepth,omitempty"`     // Sensor bit depth the data was taken with
	Nonlinear    int `json:"nonlinear,omitempty"`    // ADU at and above which the sensor is nonlinear
	NumNonlinear int `json:"numNonlinear,omitempty"` // Number of samples at or above Nonlinear
}

// Returns the ADU level at and above which a sensor of the given bit depth
// leaves its linear range, floor(0.85 * 2^bitDepth).
func NonlinearThreshold(bitDepth int) int {
	return sensor.NonlinearThreshold(bitDepth)
}

// Calculates statistics over all elements of data. Percentiles interpolate
// linearly between order statistics. Data is not modified. NaN anywhere in
// data propagates into mean and percentiles; use Finite to filter first.
func NewStats(data []float64, bitDepth int) (*Stats, error) {
	if len(data) == 0 {
		return nil, errors.New("stats: no data")
	}
	if err := sensor.CheckBitDepth(bitDepth); err != nil {
		return nil, err
	}
	s := describe(data)
	s.BitDepth, s.Nonlinear = bitDepth, NonlinearThreshold(bitDepth)
	t := float64(s.Nonlinear)
	for _, v := range data {
		if v >= t {
			s.NumNonlinear++
		}
	}
	return s, nil
}

// Calculates statistics of a derived map such as DoLP, AoLP or SNR. The values
// are not in ADU, so the bit depth and nonlinear fields stay zero.
func NewMapStats(data []float64) (*Stats, error) {
	if len(data) == 0 {
		return nil, errors.New("stats: no data")
	}
	return describe(data), nil
}

func describe(data []float64) *Stats {
	s := &Stats{}
	s.Mean = stat.Mean(data, nil)
	s.Min, s.Max = floats.Min(data), floats.Max(data)

	if hasNaN(data) {
		s.P01, s.P50, s.P99 = math.NaN(), math.NaN(), math.NaN()
	} else {
		sorted := make([]float64, len(data))
		copy(sorted, data)
		sort.Float64s(sorted)
		s.P01 = stat.Quantile(0.01, stat.LinInterp, sorted, nil)
		s.P50 = stat.Quantile(0.50, stat.LinInterp, sorted, nil)
		s.P99 = stat.Quantile(0.99, stat.LinInterp, sorted, nil)
	}
	return s
}

// Calculates statistics of a sensor frame with its own bit depth
func NewFrameStats(f *sensor.Frame) (*Stats, error) {
	data := make([]float64, len(f.Data))
	for i, v := range f.Data {
		data[i] = float64(v)
	}
	return NewStats(data, f.BitDepth)
}

// Returns a copy of data without NaN and infinite values
func Finite(data []float64) []float64 {
	res := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			res = append(res, v)
		}
	}
	return res
}

// Returns a copy of data without values whose mask entry is set. A nil mask keeps all values.
func Unmasked(data []float64, mask []bool) []float64 {
	if mask == nil {
		return append([]float64(nil), data...)
	}
	res := make([]float64, 0, len(data))
	for i, v := range data {
		if i < len(mask) && mask[i] {
			continue
		}
		res = append(res, v)
	}
	return res
}

func hasNaN(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Pretty print stats to string
func (s *Stats) String() string {
	return fmt.Sprintf("Mean %.6g Min %.6g Max %.6g P01 %.6g P50 %.6g P99 %.6g Nonlinear %d (%d-bit) NumNonlinear %d",
		s.Mean, s.Min, s.Max, s.P01, s.P50, s.P99, s.Nonlinear, s.BitDepth, s.NumNonlinear)
}

// Pretty print stats to CSV header
func (s *Stats) ToCSVHeader() string {
	return "Mean,Min,Max,P01,P50,P99,BitDepth,Nonlinear,NumNonlinear"
}

// Pretty print stats to CSV line item
func (s *Stats) ToCSVLine() string {
	return fmt.Sprintf("%.6g,%.6g,%.6g,%.6g,%.6g,%.6g,%d,%d,%d",
		s.Mean, s.Min, s.Max, s.P01, s.P50, s.P99, s.BitDepth, s.Nonlinear, s.NumNonlinear)
}
