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
	"errors"
	"testing"

	"github.com/mlnoga/polarlight/internal/plane"
)

func TestNonlinearThreshold(t *testing.T) {
	tcs := []struct{ bitDepth, want int }{{8, 217}, {12, 3481}}
	for _, tc := range tcs {
		if got := NonlinearThreshold(tc.bitDepth); got != tc.want {
			t.Errorf("NonlinearThreshold(%d)=%d; want %d", tc.bitDepth, got, tc.want)
		}
	}
}

func TestGeometryValidate(t *testing.T) {
	if err := DefaultGeometry().Validate(); err != nil {
		t.Errorf("default geometry err=%v; want nil", err)
	}
	var de *DimensionError
	if err := (Geometry{Height: 5, Width: 4, BitDepth: 8}).Validate(); !errors.As(err, &de) {
		t.Errorf("odd height err=%v; want *DimensionError", err)
	}
	if err := (Geometry{Height: 4, Width: 4, BitDepth: 16}).Validate(); err == nil {
		t.Errorf("16-bit err=nil; want error")
	}
}

func TestNewFrameRejectsOutOfRange(t *testing.T) {
	_, err := NewFrame(1, 2, 8, []uint16{10, 256})
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("err=%v; want *RangeError", err)
	}
	if re.Row != 0 || re.Col != 1 {
		t.Errorf("position=(%d,%d); want (0,1)", re.Row, re.Col)
	}
}

func TestNewFrameFromPlane(t *testing.T) {
	p, _ := plane.FromData(2, 2, []float64{0, 1.4, 2.6, 4095})
	f, err := NewFrameFromPlane(p, 12)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint16{0, 1, 3, 4095}
	for i := range want {
		if f.Data[i] != want[i] {
			t.Errorf("f.Data[%d]=%d; want %d", i, f.Data[i], want[i])
		}
	}

	p.Data[1] = -3
	if _, err := NewFrameFromPlane(p, 12); err == nil {
		t.Errorf("negative value err=nil; want *RangeError")
	}
}

func TestCountNonlinear(t *testing.T) {
	f, _ := NewFrame(1, 4, 8, []uint16{0, 216, 217, 255})
	if n := f.CountNonlinear(); n != 2 {
		t.Errorf("CountNonlinear=%d; want 2", n)
	}
}
