// errors.go -- sentinel errors for the hashidx file format
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package hashidx

import "errors"

// ErrBadHeader is returned when the file magic is missing, a header line
// is malformed, or the header exceeds MaxHeaderSize.
var ErrBadHeader = errors.New("hashidx: bad header")

// ErrUnsupportedDepth is returned when the offset table's depth byte
// exceeds MaxDepth.
var ErrUnsupportedDepth = errors.New("hashidx: unsupported depth")

// ErrCorruptOffsetTable is returned when the DEFLATE blob fails to
// decompress, or the decompressed offsets fail any structural check:
// non-monotone, wrong length, or not a multiple of the entry width.
var ErrCorruptOffsetTable = errors.New("hashidx: corrupt offset table")

// ErrWrongKeySize is returned by Lookup when the probe key's length
// does not equal the index's key size.
var ErrWrongKeySize = errors.New("hashidx: wrong key size")

// ErrInputDecode is returned when a builder input line fails to parse
// as a fixed-width hex key.
var ErrInputDecode = errors.New("hashidx: input decode error")

// ErrInputOrder is returned when a builder input key sorts strictly
// before the previously accepted key.
var ErrInputOrder = errors.New("hashidx: input not sorted")

// ErrFrozen is returned when attempting to add keys to, or close, a
// Writer that has already been closed or aborted.
var ErrFrozen = errors.New("hashidx: writer already frozen")

// ErrNoKey is returned by Find when a key cannot be located in the index.
var ErrNoKey = errors.New("hashidx: no such key")
