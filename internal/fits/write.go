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

package fits

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"sort"
	"strings"
)

// Writes an in-memory FITS image to a file with given filename, using the image's Bitpix.
// Creates/overwrites the file if necessary. Compresses with gzip if a .gz suffix is present.
func (fits *Image) WriteFile(fileName string) error {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var gz *gzip.Writer
	lExt := strings.ToLower(path.Ext(fileName))
	if lExt == ".gz" || lExt == ".gzip" {
		gz = gzip.NewWriter(bw)
		w = gz
	}

	if err := fits.Write(w); err != nil {
		return err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// Writes an in-memory FITS image to an io.Writer. Supports BITPIX 16 (unsigned
// 16-bit via BZERO 32768), -32 and -64. Floating point output keeps NaN values,
// integer output replaces them with zero.
func (fits *Image) Write(w io.Writer) error {
	bitpix := fits.Bitpix
	if bitpix == 0 {
		bitpix = -64
	}
	var bzero float64
	var comment string
	switch bitpix {
	case 16:
		bzero, comment = 32768, "16-bit unsigned integer"
	case -32:
		comment = "32-bit floating point"
	case -64:
		comment = "64-bit floating point"
	default:
		return fmt.Errorf("%d: Unsupported BITPIX value %d for writing", fits.ID, bitpix)
	}
	if int(fits.Pixels) != len(fits.Data) {
		return fmt.Errorf("%d: header declares %d pixels, data holds %d", fits.ID, fits.Pixels, len(fits.Data))
	}

	// Build header in string buffer
	sb := strings.Builder{}
	writeBool(&sb, "SIMPLE", true, "FITS standard 4.0")
	writeInt(&sb, "BITPIX", int64(bitpix), comment)
	writeInt(&sb, "NAXIS", int64(len(fits.Naxisn)), "Number of axes")
	for i := 0; i < len(fits.Naxisn); i++ {
		writeInt(&sb, fmt.Sprintf("NAXIS%d", i+1), int64(fits.Naxisn[i]), "Axis size")
	}
	if bzero != 0 {
		writeFloat(&sb, "BZERO", bzero, "Zero offset")
		writeFloat(&sb, "BSCALE", 1, "Value scale")
	}
	if fits.Exposure != 0 {
		writeFloat(&sb, "EXPOSURE", fits.Exposure, "Exposure time in seconds")
	}
	fits.Header.write(&sb)
	writeEnd(&sb)

	// Pad current header block with spaces if necessary
	if bytesInHeaderBlock := sb.Len() % fitsBlockSize; bytesInHeaderBlock > 0 {
		sb.WriteString(strings.Repeat(" ", fitsBlockSize-bytesInHeaderBlock))
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}

	// Write payload data, padded with zeros to full blocks
	var n int
	var err error
	switch bitpix {
	case 16:
		n, err = writeUint16Array(w, fits.Data, bzero)
	case -32:
		n, err = writeFloat32Array(w, fits.Data)
	case -64:
		n, err = writeFloat64Array(w, fits.Data)
	}
	if err != nil {
		return err
	}
	if rem := n % fitsBlockSize; rem > 0 {
		_, err = w.Write(make([]byte, fitsBlockSize-rem))
	}
	return err
}

// keys that Write emits itself and which must not be duplicated from the header maps
var reservedKeys = map[string]bool{
	"SIMPLE": true, "BITPIX": true, "NAXIS": true, "BZERO": true, "BSCALE": true,
	"EXTEND": true, "EXPOSURE": true, "EXPTIME": true, "END": true,
}

func isReserved(key string) bool {
	return reservedKeys[key] || strings.HasPrefix(key, "NAXIS")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if !isReserved(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Writes the header maps in a stable order: bools, ints, floats, strings, dates, comments, history
func (h *Header) write(w io.Writer) {
	for _, k := range sortedKeys(h.Bools) {
		writeBool(w, k, h.Bools[k], "")
	}
	for _, k := range sortedKeys(h.Ints) {
		writeInt(w, k, int64(h.Ints[k]), "")
	}
	for _, k := range sortedKeys(h.Floats) {
		v := h.Floats[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue // not representable
		}
		writeFloat(w, k, v, "")
	}
	for _, k := range sortedKeys(h.Strings) {
		writeString(w, k, h.Strings[k], "")
	}
	for _, k := range sortedKeys(h.Dates) {
		writeString(w, k, h.Dates[k], "")
	}
	for _, c := range h.Comments {
		writeText(w, "COMMENT", c)
	}
	for _, c := range h.History {
		writeText(w, "HISTORY", c)
	}
}

// Writes one 80 character header card, truncating or padding as necessary
func writeCard(w io.Writer, card string) {
	if len(card) > HeaderLineSize {
		card = card[:HeaderLineSize]
	}
	fmt.Fprintf(w, "%-80s", card)
}

func valueCard(key, value, comment string) string {
	if len(key) > 8 {
		key = key[0:8]
	}
	if comment == "" {
		return fmt.Sprintf("%-8s= %20s", key, value)
	}
	return fmt.Sprintf("%-8s= %20s / %s", key, value, comment)
}

// Writes a FITS header boolean value
func writeBool(w io.Writer, key string, value bool, comment string) {
	v := "F"
	if value {
		v = "T"
	}
	writeCard(w, valueCard(key, v, comment))
}

// Writes a FITS header integer value
func writeInt(w io.Writer, key string, value int64, comment string) {
	writeCard(w, valueCard(key, fmt.Sprintf("%d", value), comment))
}

// Writes a FITS header float value. Always carries a decimal point and exponent
func writeFloat(w io.Writer, key string, value float64, comment string) {
	writeCard(w, valueCard(key, fmt.Sprintf("%.12E", value), comment))
}

// Writes a FITS header string value. Single quotes are replaced, overlong values truncated
func writeString(w io.Writer, key, value, comment string) {
	value = strings.ReplaceAll(value, "'", "`")
	if len(value) > 68 {
		value = value[:68]
	}
	for len(value) < 8 {
		value += " "
	}
	if len(key) > 8 {
		key = key[0:8]
	}
	card := fmt.Sprintf("%-8s= '%s'", key, value)
	if comment != "" {
		card += " / " + comment
	}
	writeCard(w, card)
}

// Writes a COMMENT or HISTORY card
func writeText(w io.Writer, key, text string) {
	writeCard(w, fmt.Sprintf("%-8s%s", key, text))
}

// Writes a FITS header end record
func writeEnd(w io.Writer) {
	writeCard(w, "END")
}

// Writes values as 16-bit integers offset by bzero, in network byte order.
// Values are rounded and clamped; NaNs are written as zero.
func writeUint16Array(w io.Writer, data []float64, bzero float64) (int, error) {
	buf := make([]byte, bufLen)
	total := 0
	for block := 0; block < len(data); block += bufLen >> 1 {
		size := len(data) - block
		if size > bufLen>>1 {
			size = bufLen >> 1
		}
		for offset := 0; offset < size; offset++ {
			d := data[block+offset]
			if math.IsNaN(d) {
				d = 0
			}
			d = math.Round(d)
			if d < 0 {
				d = 0
			} else if d > 65535 {
				d = 65535
			}
			binary.BigEndian.PutUint16(buf[offset<<1:], uint16(int16(d-bzero)))
		}
		n, err := w.Write(buf[:size<<1])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Writes values as 32-bit floats in network byte order
func writeFloat32Array(w io.Writer, data []float64) (int, error) {
	buf := make([]byte, bufLen)
	total := 0
	for block := 0; block < len(data); block += bufLen >> 2 {
		size := len(data) - block
		if size > bufLen>>2 {
			size = bufLen >> 2
		}
		for offset := 0; offset < size; offset++ {
			binary.BigEndian.PutUint32(buf[offset<<2:], math.Float32bits(float32(data[block+offset])))
		}
		n, err := w.Write(buf[:size<<2])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Writes values as 64-bit floats in network byte order
func writeFloat64Array(w io.Writer, data []float64) (int, error) {
	buf := make([]byte, bufLen)
	total := 0
	for block := 0; block < len(data); block += bufLen >> 3 {
		size := len(data) - block
		if size > bufLen>>3 {
			size = bufLen >> 3
		}
		for offset := 0; offset < size; offset++ {
			binary.BigEndian.PutUint64(buf[offset<<3:], math.Float64bits(data[block+offset]))
		}
		n, err := w.Write(buf[:size<<3])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
