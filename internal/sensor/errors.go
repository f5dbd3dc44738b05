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

package sensor

import (
	"fmt"
)

// The raw buffer length matches neither the 8-bit nor the 12-bit encoding.
type FormatError struct {
	Len    int // Length of the offending buffer in bytes
	Height int // Expected frame height
	Width  int // Expected frame width
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unrecognized image format: got %d bytes, want %d (8-bit) or %d (12-bit) for %dx%d pixels",
		e.Len, e.Height*e.Width, 2*e.Height*e.Width, e.Width, e.Height)
}

// Frame dimensions are invalid or inconsistent with the decoded sample count.
type DimensionError struct {
	Height  int
	Width   int
	Samples int // Number of decoded samples, 0 if not applicable
	Reason  string
}

func (e *DimensionError) Error() string {
	if e.Samples > 0 {
		return fmt.Sprintf("invalid dimensions %dx%d for %d samples: %s", e.Width, e.Height, e.Samples, e.Reason)
	}
	return fmt.Sprintf("invalid dimensions %dx%d: %s", e.Width, e.Height, e.Reason)
}

// A sample lies outside the range permitted by the bit depth.
type RangeError struct {
	Row, Col int
	Value    int
	BitDepth int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("pixel (%d, %d) value %d exceeds %d-bit range [0, %d]", e.Row, e.Col, e.Value, e.BitDepth, MaxValue(e.BitDepth))
}
