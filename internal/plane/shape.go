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

package plane

import (
	"fmt"
)

// Two or more planes that must be co-registered differ in shape.
type ShapeMismatchError struct {
	Op     string   // Operation that detected the mismatch
	Shapes [][2]int // Shapes of all operands, in argument order
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch between operands %v", e.Op, e.Shapes)
}

// Checks that all given planes are non-nil and share one shape.
// Returns a *ShapeMismatchError naming op otherwise.
func CheckSameShape(op string, ps ...*Plane) error {
	shapes := make([][2]int, len(ps))
	mismatch := false
	for i, p := range ps {
		if p == nil {
			return fmt.Errorf("%s: operand %d is nil", op, i)
		}
		shapes[i] = [2]int{p.Rows, p.Cols}
		if i > 0 && !p.SameShape(ps[0]) {
			mismatch = true
		}
	}
	if mismatch {
		return &ShapeMismatchError{Op: op, Shapes: shapes}
	}
	return nil
}
