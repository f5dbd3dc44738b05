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

package mosaic

import (
	"fmt"
	"strconv"
	"strings"
)

// Polarizer orientation of a micro-polarizer pixel. Values index Grids.
type Orientation int

const (
	P000 Orientation = iota
	P045
	P090
	P135
	NumOrientations = 4
)

// All orientations in ascending angle order.
var Orientations = [NumOrientations]Orientation{P000, P045, P090, P135}

// Sensor layout of the 2x2 micro-polarizer cell:
//
//	 90  45
//	135   0
//
// Offsets give the position of an orientation within the cell, such that
// frame[rowOffset][colOffset] is the first sample of that orientation.
var offsets = [NumOrientations][2]int{
	P000: {1, 1},
	P045: {0, 1},
	P090: {0, 0},
	P135: {1, 0},
}

// Angle of the polarizer in degrees
func (o Orientation) Degrees() int {
	return 45 * int(o)
}

// Row and column offset of this orientation within the 2x2 mosaic cell
func (o Orientation) Offsets() (rowOffset, colOffset int) {
	return offsets[o][0], offsets[o][1]
}

// Short label, e.g. p045, used in output file names
func (o Orientation) Label() string {
	return fmt.Sprintf("p%03d", o.Degrees())
}

func (o Orientation) Valid() bool {
	return o >= P000 && o <= P135
}

func (o Orientation) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
	return fmt.Sprintf("%d°", o.Degrees())
}

// Returns the orientation at the given sensor position
func OrientationAt(row, col int) Orientation {
	switch {
	case row%2 == 0 && col%2 == 0:
		return P090
	case row%2 == 0:
		return P045
	case col%2 == 0:
		return P135
	default:
		return P000
	}
}

// Parses an orientation from degrees (0, 45, 90, 135) or a label (p045).
func ParseOrientation(s string) (Orientation, error) {
	t := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "p")
	deg, err := strconv.Atoi(t)
	if err != nil || deg%45 != 0 || deg < 0 || deg > 135 {
		return 0, fmt.Errorf("unknown polarizer orientation %q", s)
	}
	return Orientation(deg / 45), nil
}
