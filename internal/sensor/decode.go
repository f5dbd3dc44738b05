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
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// Decodes a raw sensor buffer into a frame of the given dimensions.
//
// A buffer of height*width bytes holds one 8-bit sample per byte.
// A buffer of 2*height*width bytes holds 12-bit samples as byte pairs,
// where the even byte carries the low bits and the odd byte the high bits:
// value=(odd<<8)|even. This is the Mono12 layout of the PHX050S camera,
// not the packed 12-bit layout. Any other length is a *FormatError.
func Decode(buf []byte, height, width int) (*Frame, error) {
	if height <= 0 || width <= 0 {
		return nil, &DimensionError{Height: height, Width: width, Reason: "dimensions must be positive"}
	}
	pixels := height * width

	switch len(buf) {
	case pixels:
		data := make([]uint16, pixels)
		for i, b := range buf {
			data[i] = uint16(b)
		}
		return reshape(data, height, width, 8)

	case 2 * pixels:
		data := make([]uint16, pixels)
		for i := range data {
			evn, odd := buf[2*i], buf[2*i+1]
			data[i] = (uint16(odd) << 8) | uint16(evn)
		}
		return reshape(data, height, width, 12)

	default:
		return nil, &FormatError{Len: len(buf), Height: height, Width: width}
	}
}

// Decodes a raw buffer with the dimensions of the given geometry. The bit depth
// is detected from the buffer size; a mismatch with the configured depth is
// reported to logWriter, and the detected depth wins.
func DecodeGeometry(buf []byte, g Geometry, logWriter io.Writer) (*Frame, error) {
	f, err := Decode(buf, g.Height, g.Width)
	if err != nil {
		return nil, err
	}
	if g.BitDepth != 0 && f.BitDepth != g.BitDepth && logWriter != nil {
		fmt.Fprintf(logWriter, "Warning: configured %d-bit sensor, buffer holds %d-bit data\n", g.BitDepth, f.BitDepth)
	}
	return f, nil
}

// Shapes samples row-major into a frame, checking the sample count against the dimensions.
func reshape(data []uint16, height, width, bitDepth int) (*Frame, error) {
	if len(data)%width != 0 || len(data)/width != height {
		return nil, &DimensionError{Height: height, Width: width, Samples: len(data), Reason: "cannot reshape row-major"}
	}
	return NewFrame(height, width, bitDepth, data)
}

// Reads a raw sensor image from the file with the given name and decodes it
// with the given geometry. Decompresses gzip if a .gz or .gzip suffix is present.
func ReadRawFile(fileName string, id int, g Geometry, logWriter io.Writer) (*Frame, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	lExt := strings.ToLower(path.Ext(fileName))
	if lExt == ".gz" || lExt == ".gzip" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%d: %s: %w", id, fileName, err)
		}
		defer gz.Close()
		r = gz
	}

	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%d: %s: %w", id, fileName, err)
	}
	switch len(buf) {
	case g.Pixels():
		fmt.Fprintf(logWriter, "%d: Decoding 8-bit image %s\n", id, fileName)
	case 2 * g.Pixels():
		fmt.Fprintf(logWriter, "%d: Decoding 12-bit image %s\n", id, fileName)
	}

	frame, err := DecodeGeometry(buf, g, logWriter)
	if err != nil {
		return nil, fmt.Errorf("%d: %s: %w", id, fileName, err)
	}
	frame.ID, frame.FileName = id, fileName
	return frame, nil
}

// Encodes a frame back into the raw camera layout, one byte per sample for
// 8-bit frames and little-endian byte pairs for 12-bit frames.
func Encode(f *Frame) []byte {
	if f.BitDepth == 8 {
		buf := make([]byte, len(f.Data))
		for i, v := range f.Data {
			buf[i] = byte(v)
		}
		return buf
	}
	buf := make([]byte, 2*len(f.Data))
	for i, v := range f.Data {
		buf[2*i] = byte(v)
		buf[2*i+1] = byte(v >> 8)
	}
	return buf
}

// Writes a frame as a raw camera file.
func WriteRawFile(fileName string, f *Frame) error {
	return os.WriteFile(fileName, Encode(f), 0644)
}
