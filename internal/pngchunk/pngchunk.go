// Package pngchunk reads and writes ancillary PNG chunks that image/png
// drops on decode.
package pngchunk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// VIType is the private chunk NI LabVIEW uses to store VI snippets.
const VIType = "niVI"

var signature = []byte("\x89PNG\r\n\x1a\n")

// ErrNotPNG is returned for data without a PNG signature.
var ErrNotPNG = errors.New("pngchunk: not a png file")

// Chunk is a raw PNG chunk.
type Chunk struct {
	Type string
	Data []byte
}

type span struct {
	typ        string
	start, end int // whole chunk, length field through CRC
	data       []byte
}

func scan(png []byte) ([]span, error) {
	if !bytes.HasPrefix(png, signature) {
		return nil, ErrNotPNG
	}
	var out []span
	off := len(signature)
	for off < len(png) {
		if len(png)-off < 12 {
			return nil, fmt.Errorf("pngchunk: truncated chunk header at offset %d", off)
		}
		n := int(binary.BigEndian.Uint32(png[off:]))
		end := off + 12 + n
		if n < 0 || end > len(png) || end < off {
			return nil, fmt.Errorf("pngchunk: chunk at offset %d overruns file", off)
		}
		typ := string(png[off+4 : off+8])
		out = append(out, span{typ: typ, start: off, end: end, data: png[off+8 : off+8+n]})
		off = end
		if typ == "IEND" {
			break
		}
	}
	return out, nil
}

// Find returns a copy of the data of the first chunk of type typ.
func Find(png []byte, typ string) ([]byte, bool, error) {
	spans, err := scan(png)
	if err != nil {
		return nil, false, err
	}
	for _, s := range spans {
		if s.typ == typ {
			return append([]byte(nil), s.data...), true, nil
		}
	}
	return nil, false, nil
}

// InsertAfterData returns png with the chunks placed after the last IDAT
// chunk, in order.
func InsertAfterData(png []byte, chunks ...Chunk) ([]byte, error) {
	for _, c := range chunks {
		if len(c.Type) != 4 {
			return nil, fmt.Errorf("pngchunk: invalid chunk type %q", c.Type)
		}
	}
	spans, err := scan(png)
	if err != nil {
		return nil, err
	}
	at := -1
	for _, s := range spans {
		if s.typ == "IDAT" {
			at = s.end
		}
	}
	if at < 0 {
		return nil, errors.New("pngchunk: no IDAT chunk")
	}

	var buf bytes.Buffer
	buf.Grow(len(png) + 64)
	buf.Write(png[:at])
	for _, c := range chunks {
		writeChunk(&buf, c)
	}
	buf.Write(png[at:])
	return buf.Bytes(), nil
}

func writeChunk(buf *bytes.Buffer, c Chunk) {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(len(c.Data)))
	copy(hdr[4:], c.Type)
	buf.Write(hdr[:])
	buf.Write(c.Data)

	crc := crc32.NewIEEE()
	crc.Write(hdr[4:])
	crc.Write(c.Data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	buf.Write(sum[:])
}
