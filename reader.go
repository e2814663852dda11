// reader.go -- open a bucketed hash-index file and answer Lookup queries
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
	"os"

	lru "github.com/opencoff/golang-lru"
)

// cacheEntry is what the reader's opportunistic ARC cache stores per key.
type cacheEntry struct {
	present bool
	payload []byte
}

// Reader holds an open, validated hash-index file and answers point
// membership queries against it. A Reader is safe for concurrent use:
// its offset table is read-only after Open, the backing mapping (or
// file descriptor) is used only for positioned reads, and its cache is
// internally synchronized.
type Reader struct {
	fd *os.File
	fn string

	keyType     string
	description string
	k, p, depth int
	entryWidth  int

	headerLen uint64
	fileSize  int64

	offsets []uint64

	data    []byte // mmap of the whole file; nil if mmap unavailable
	useMmap bool

	cache *lru.ARCCache
}

// Open opens fn read-only, validates its header and offset table, and
// memory-maps its contents (falling back to positioned reads if mmap is
// unavailable). cacheSize is the capacity of the opportunistic ARC
// lookup cache; 0 disables caching.
func Open(fn string, cacheSize int) (rd *Reader, err error) {
	fd, err := os.Open(fn)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			fd.Close()
		}
	}()

	st, err := fd.Stat()
	if err != nil {
		return nil, fmt.Errorf("%s: can't stat: %w", fn, err)
	}
	sz := st.Size()

	if sz < int64(len(Magic))+4+TrailerLenSize {
		return nil, fmt.Errorf("%w: %s: file too small", ErrBadHeader, fn)
	}

	hdrBuf := make([]byte, MaxHeaderSize)
	n, err := fd.ReadAt(hdrBuf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: can't read header: %w", fn, err)
	}
	hdrBuf = hdrBuf[:n]

	hdr, hdrLen, err := parseHeader(hdrBuf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	rd = &Reader{
		fd:          fd,
		fn:          fn,
		keyType:     hdr.KeyType,
		description: hdr.Description,
		k:           hdr.K,
		p:           hdr.P,
		headerLen:   uint64(hdrLen),
		fileSize:    sz,
	}

	if err := rd.readTrailer(); err != nil {
		return nil, err
	}

	if cacheSize > 0 {
		rd.cache, err = lru.NewARC(cacheSize)
		if err != nil {
			return nil, err
		}
	}

	if data, merr := mmapFile(int(fd.Fd()), sz); merr == nil {
		rd.data = data
		rd.useMmap = true
	}

	return rd, nil
}

// readTrailer reads the 4-byte length, the compressed offset-table blob
// it names, decompresses it, and validates the result against K/P.
func (rd *Reader) readTrailer() error {
	var lenBuf [TrailerLenSize]byte
	if _, err := rd.fd.ReadAt(lenBuf[:], rd.fileSize-TrailerLenSize); err != nil {
		return fmt.Errorf("%s: %w: can't read trailer length: %s", rd.fn, ErrCorruptOffsetTable, err)
	}
	T := binary.BigEndian.Uint32(lenBuf[:])

	blobStart := rd.fileSize - TrailerLenSize - int64(T)
	if blobStart < int64(rd.headerLen) {
		return fmt.Errorf("%s: %w: trailer length %d overruns file", rd.fn, ErrCorruptOffsetTable, T)
	}

	compressed := make([]byte, T)
	if _, err := rd.fd.ReadAt(compressed, blobStart); err != nil {
		return fmt.Errorf("%s: %w: can't read offset blob: %s", rd.fn, ErrCorruptOffsetTable, err)
	}

	depth, offsets, err := decompressOffsetTable(compressed, MaxDepth)
	if err != nil {
		return fmt.Errorf("%s: %w", rd.fn, err)
	}
	if depth > rd.k*8 {
		return fmt.Errorf("%s: %w: depth %d exceeds key size %d bits", rd.fn, ErrUnsupportedDepth, depth, rd.k*8)
	}

	ew := entryWidth(rd.k, depth, rd.p)
	if err := validateOffsets(offsets, ew, rd.headerLen, uint64(blobStart)); err != nil {
		return fmt.Errorf("%s: %w", rd.fn, err)
	}

	rd.depth = depth
	rd.entryWidth = ew
	rd.offsets = offsets
	return nil
}

// KeyType returns the header's key-type tag (e.g. "SHA-1" or "NT").
func (rd *Reader) KeyType() string { return rd.keyType }

// Description returns the header's free-form description line.
func (rd *Reader) Description() string { return rd.description }

// KeySize returns K, the fixed key width in bytes.
func (rd *Reader) KeySize() int { return rd.k }

// PayloadSize returns P, the fixed payload width in bytes.
func (rd *Reader) PayloadSize() int { return rd.p }

// Depth returns D, the bucket-selecting prefix length in bits.
func (rd *Reader) Depth() int { return rd.depth }

// TotalBuckets returns 2^Depth.
func (rd *Reader) TotalBuckets() uint64 {
	return uint64(len(rd.offsets)) - 1
}

// BucketRange returns the half-open byte range [lo, hi) of bucket i
// within the file, and the number of entries it holds.
func (rd *Reader) BucketRange(i uint64) (lo, hi uint64, count uint64) {
	lo, hi = rd.offsets[i], rd.offsets[i+1]
	return lo, hi, (hi - lo) / uint64(rd.entryWidth)
}

// Close releases the mapping (if any) and the underlying file, and
// purges the lookup cache.
func (rd *Reader) Close() error {
	if rd.useMmap {
		munmap(rd.data)
		rd.data = nil
		rd.useMmap = false
	}
	if rd.cache != nil {
		rd.cache.Purge()
	}
	return rd.fd.Close()
}

// Lookup reports whether key is present in the index and, if so,
// returns its payload (empty when PayloadSize is 0). key must be
// exactly KeySize() bytes.
func (rd *Reader) Lookup(key []byte) (payload []byte, present bool, err error) {
	if len(key) != rd.k {
		return nil, false, fmt.Errorf("%w: got %d, want %d", ErrWrongKeySize, len(key), rd.k)
	}

	if rd.cache != nil {
		if v, ok := rd.cache.Get(string(key)); ok {
			ce := v.(cacheEntry)
			return ce.payload, ce.present, nil
		}
	}

	payload, present, err = rd.scan(key)
	if err != nil {
		return nil, false, err
	}

	if rd.cache != nil {
		rd.cache.Add(string(key), cacheEntry{present: present, payload: payload})
	}

	return payload, present, nil
}

// Find is Lookup's error-returning sibling: it returns ErrNoKey on a
// miss instead of a boolean, for callers that prefer a single error
// return over a (payload, present, error) triple.
func (rd *Reader) Find(key []byte) ([]byte, error) {
	payload, present, err := rd.Lookup(key)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, ErrNoKey
	}
	return payload, nil
}

// scan locates the bucket, computes the probe suffix, and scans stored
// entries until a match or an entry whose suffix sorts after the probe
// (entries are in non-decreasing order within a bucket, so that ends the
// search early on a miss).
func (rd *Reader) scan(key []byte) ([]byte, bool, error) {
	b := uint64(prefixBits(key, rd.depth))
	lo, _, count := rd.BucketRange(b)

	sw := suffixLen(rd.k, rd.depth)
	suffix := make([]byte, sw)
	suffixOf(key, rd.depth, suffix)

	ew := rd.entryWidth
	for i := uint64(0); i < count; i++ {
		off := lo + i*uint64(ew)

		entry, err := rd.readAt(off, ew)
		if err != nil {
			return nil, false, err
		}

		cmp := bytes.Compare(entry[:sw], suffix)
		if cmp == 0 {
			if rd.p == 0 {
				return nil, true, nil
			}
			payload := make([]byte, rd.p)
			copy(payload, entry[sw:])
			return payload, true, nil
		}
		if cmp > 0 {
			break
		}
	}

	return nil, false, nil
}

// readAt returns ew bytes at file offset off, via the mmap if available
// or a positioned read otherwise.
func (rd *Reader) readAt(off uint64, ew int) ([]byte, error) {
	if rd.useMmap {
		return rd.data[off : off+uint64(ew)], nil
	}

	buf := make([]byte, ew)
	if _, err := rd.fd.ReadAt(buf, int64(off)); err != nil {
		return nil, err
	}
	return buf, nil
}
