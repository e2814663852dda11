// offsettable.go -- DEFLATE-compressed offset table trailer
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package hashidx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// TrailerLenSize is the width, in bytes, of the trailer's compressed-blob
// length field.
const TrailerLenSize = 4

// encodeOffsetTable serializes the uncompressed offset-table blob: one
// depth byte followed by len(offsets) big-endian uint64 offsets.
func encodeOffsetTable(depth int, offsets []uint64) []byte {
	buf := make([]byte, 1+8*len(offsets))
	buf[0] = byte(depth)

	be := binary.BigEndian
	for i, o := range offsets {
		be.PutUint64(buf[1+8*i:], o)
	}

	return buf
}

// compressOffsetTable DEFLATEs blob using the ecosystem's flate
// implementation (API-compatible with compress/flate).
func compressOffsetTable(blob []byte) ([]byte, error) {
	var b bytes.Buffer

	zw, err := flate.NewWriter(&b, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}

	if _, err := zw.Write(blob); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// decompressOffsetTable inflates a compressed offset-table blob and
// parses its depth byte and offset array. It rejects depths beyond
// maxDepth and any length mismatch, but does not check monotonicity or
// entry-width divisibility -- callers validate those against K and P.
func decompressOffsetTable(compressed []byte, maxDepth int) (depth int, offsets []uint64, err error) {
	zr := flate.NewReader(bytes.NewReader(compressed))
	defer zr.Close()

	blob, err := io.ReadAll(zr)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: deflate: %s", ErrCorruptOffsetTable, err)
	}

	if len(blob) < 1 {
		return 0, nil, fmt.Errorf("%w: empty offset blob", ErrCorruptOffsetTable)
	}

	depth = int(blob[0])
	if depth > maxDepth {
		return 0, nil, fmt.Errorf("%w: depth %d", ErrUnsupportedDepth, depth)
	}

	n := (1 << uint(depth)) + 1
	want := 1 + 8*n
	if len(blob) != want {
		return 0, nil, fmt.Errorf("%w: expected %d bytes for depth %d, got %d",
			ErrCorruptOffsetTable, want, depth, len(blob))
	}

	offsets = make([]uint64, n)
	be := binary.BigEndian
	for i := 0; i < n; i++ {
		offsets[i] = be.Uint64(blob[1+8*i:])
	}

	return depth, offsets, nil
}

// validateOffsets checks the structural invariants from the format spec:
// monotonicity, entry-width divisibility, and that the bucket range lies
// entirely within [lowBound, highBound).
func validateOffsets(offsets []uint64, ew int, lowBound, highBound uint64) error {
	if offsets[0] < lowBound {
		return fmt.Errorf("%w: offsets[0]=%d before %d", ErrCorruptOffsetTable, offsets[0], lowBound)
	}

	for i := 0; i < len(offsets)-1; i++ {
		if offsets[i+1] < offsets[i] {
			return fmt.Errorf("%w: offsets[%d]=%d < offsets[%d]=%d",
				ErrCorruptOffsetTable, i+1, offsets[i+1], i, offsets[i])
		}
		if (offsets[i+1]-offsets[i])%uint64(ew) != 0 {
			return fmt.Errorf("%w: bucket %d span %d not a multiple of entry width %d",
				ErrCorruptOffsetTable, i, offsets[i+1]-offsets[i], ew)
		}
	}

	last := offsets[len(offsets)-1]
	if last > highBound {
		return fmt.Errorf("%w: last offset %d beyond trailer at %d", ErrCorruptOffsetTable, last, highBound)
	}

	return nil
}
