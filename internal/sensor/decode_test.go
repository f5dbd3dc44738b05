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
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecode8Bit(t *testing.T) {
	height, width := 4, 6
	buf := make([]byte, height*width)
	for i := range buf {
		buf[i] = byte(7*i + 3)
	}

	f, err := Decode(buf, height, width)
	if err != nil {
		t.Fatalf("err=%v; want nil", err)
	}
	if f.BitDepth != 8 {
		t.Errorf("BitDepth=%d; want 8", f.BitDepth)
	}
	if f.Height != height || f.Width != width {
		t.Errorf("shape=%dx%d; want %dx%d", f.Height, f.Width, height, width)
	}
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			if got, want := f.At(row, col), uint16(buf[row*width+col]); got != want {
				t.Errorf("f[%d][%d]=%d; want %d", row, col, got, want)
			}
		}
	}
}

func TestDecode12BitPacking(t *testing.T) {
	height, width := 2, 2
	buf := []byte{0x34, 0x02, 0xff, 0x0f, 0x00, 0x00, 0x01, 0x08}

	f, err := Decode(buf, height, width)
	if err != nil {
		t.Fatalf("err=%v; want nil", err)
	}
	if f.BitDepth != 12 {
		t.Errorf("BitDepth=%d; want 12", f.BitDepth)
	}
	want := []uint16{564, 4095, 0, 0x0801}
	for i, w := range want {
		if f.Data[i] != w {
			t.Errorf("f.Data[%d]=%d; want %d", i, f.Data[i], w)
		}
	}
	if f.At(0, 0) != 0x0234 {
		t.Errorf("f[0][0]=%#x; want 0x234", f.At(0, 0))
	}
}

func TestDecodeUnrecognizedLength(t *testing.T) {
	for _, n := range []int{0, 1, 23, 25, 47, 49, 72} {
		_, err := Decode(make([]byte, n), 4, 6)
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("len=%d err=%v; want *FormatError", n, err)
			continue
		}
		if fe.Len != n {
			t.Errorf("fe.Len=%d; want %d", fe.Len, n)
		}
		if !strings.Contains(err.Error(), "unrecognized image format") {
			t.Errorf("err=%q; want mention of unrecognized image format", err.Error())
		}
	}
}

func TestDecodeBadDimensions(t *testing.T) {
	_, err := Decode(make([]byte, 4), 0, 4)
	var de *DimensionError
	if !errors.As(err, &de) {
		t.Errorf("err=%v; want *DimensionError", err)
	}
}

func TestDecodeOutOfRange12Bit(t *testing.T) {
	buf := []byte{0x00, 0x10, 0x00, 0x00} // 0x1000 exceeds 12 bits
	_, err := Decode(buf, 1, 2)
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("err=%v; want *RangeError", err)
	}
	if re.Value != 0x1000 || re.Col != 0 {
		t.Errorf("re=%+v; want value 4096 at col 0", re)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data := []uint16{0, 1, 4095, 2048, 17, 300, 4000, 12}
	f, err := NewFrame(2, 4, 12, data)
	if err != nil {
		t.Fatal(err)
	}
	g, err := Decode(Encode(f), 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := range data {
		if g.Data[i] != data[i] {
			t.Errorf("g.Data[%d]=%d; want %d", i, g.Data[i], data[i])
		}
	}
}

func TestReadRawFileGzip(t *testing.T) {
	dir := t.TempDir()
	geom := Geometry{Height: 4, Width: 4, BitDepth: 8}
	raw := make([]byte, geom.Pixels())
	for i := range raw {
		raw[i] = byte(i * 3)
	}

	plain := filepath.Join(dir, "frame.raw")
	if err := os.WriteFile(plain, raw, 0644); err != nil {
		t.Fatal(err)
	}
	var zbuf bytes.Buffer
	zw := gzip.NewWriter(&zbuf)
	zw.Write(raw)
	zw.Close()
	zipped := filepath.Join(dir, "frame.raw.gz")
	if err := os.WriteFile(zipped, zbuf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	for i, name := range []string{plain, zipped} {
		var log bytes.Buffer
		f, err := ReadRawFile(name, i, geom, &log)
		if err != nil {
			t.Fatalf("%s: err=%v", name, err)
		}
		if f.ID != i || f.FileName != name {
			t.Errorf("id,name=%d,%s; want %d,%s", f.ID, f.FileName, i, name)
		}
		if f.At(3, 3) != uint16(raw[15]) {
			t.Errorf("f[3][3]=%d; want %d", f.At(3, 3), raw[15])
		}
		if !strings.Contains(log.String(), "Decoding 8-bit image") {
			t.Errorf("log=%q; want decoding message", log.String())
		}
	}
}

func TestReadRawFileWrongSize(t *testing.T) {
	name := filepath.Join(t.TempDir(), "short.raw")
	os.WriteFile(name, make([]byte, 10), 0644)
	_, err := ReadRawFile(name, 0, Geometry{Height: 4, Width: 4, BitDepth: 12}, io.Discard)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err=%v; want *FormatError", err)
	}
	if !strings.Contains(err.Error(), "got 10 bytes") {
		t.Errorf("err=%q; want buffer size in message", err.Error())
	}
}
