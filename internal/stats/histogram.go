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
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Calculate histogram of data between min and max into the given bins.
// Values outside [min, max] and non-finite values are skipped; returns their count.
func Histogram(data []float64, min, max float64, bins []int32) (skipped int) {
	for i := range bins {
		bins[i] = 0
	}
	if len(bins) == 0 || !(max > min) {
		return len(data)
	}
	scale := float64(len(bins)) / (max - min)
	for _, d := range data {
		if math.IsNaN(d) || d < min || d > max {
			skipped++
			continue
		}
		index := int((d - min) * scale)
		if index >= len(bins) {
			index = len(bins) - 1
		}
		bins[index]++
	}
	return skipped
}

// Returns the centre of the given bin
func BinCenter(i int, min, max float64, numBins int) float64 {
	return min + (float64(i)+0.5)*(max-min)/float64(numBins)
}

// Returns the location and the value of the histogram peak
func GetPeak(bins []int32, min, max float64) (x, y float64) {
	maxIndex, maxValue := -1, int32(math.MinInt32)
	for i, v := range bins {
		if v > maxValue {
			maxIndex, maxValue = i, v
		}
	}
	if maxIndex < 0 {
		return math.NaN(), 0
	}
	return BinCenter(maxIndex, min, max, len(bins)), float64(maxValue)
}

// Calculates the mode and the standard deviation of the given histogram,
// by fitting a normal distribution starting from the histogram peak
func GetModeStdDevFromHistogram(bins []int32, min, max float64) (mode, stdDev float64, err error) {
	peak, peakVal := GetPeak(bins, min, max)
	if peakVal <= 0 {
		return math.NaN(), math.NaN(), errors.New("histogram is empty")
	}
	binWidth := (max - min) / float64(len(bins))

	// Initial guess: peak height and location, a few bins wide
	x0 := []float64{peakVal * binWidth * math.Sqrt(2*math.Pi) * 5, peak, 5 * binWidth}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			alpha, mu, sigma := x[0], x[1], math.Abs(x[2])
			if sigma == 0 {
				return math.Inf(1)
			}
			scaler := alpha / (sigma * math.Sqrt(2*math.Pi))
			sumSqDiff := 0.0
			for i, y := range bins {
				xmusig := (BinCenter(i, min, max, len(bins)) - mu) / sigma
				diff := float64(y) - scaler*math.Exp(-0.5*xmusig*xmusig)
				sumSqDiff += diff * diff
			}
			return math.Sqrt(sumSqDiff / float64(len(bins)))
		},
	}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	return result.X[1], math.Abs(result.X[2]), nil
}
