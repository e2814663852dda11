// writer.go -- streaming builder for the bucketed hash-index file format
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package hashidx

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// Config describes a Writer's fixed parameters. These map directly onto
// the header fields and bucket layout; once a Writer is created they
// cannot change.
type Config struct {
	// KeyType is written verbatim into the header's second line (e.g.
	// "SHA-1" or "NT"). It is opaque to this package.
	KeyType string

	// Description is written verbatim into the header's third line.
	Description string

	// KeySize is the fixed width, in bytes, of every key (1..255).
	KeySize int

	// PayloadSize is the fixed width, in bytes, of every payload
	// (0..255). Both HIBP applications use 0.
	PayloadSize int

	// Depth is the number of leading key bits used to select a
	// bucket; must be in [0, MaxDepth]. 2^Depth buckets are created.
	Depth int
}

func (c Config) validate() error {
	if c.KeySize < 1 || c.KeySize > 255 {
		return fmt.Errorf("%w: key size %d out of range", ErrBadHeader, c.KeySize)
	}
	if c.PayloadSize < 0 || c.PayloadSize > 255 {
		return fmt.Errorf("%w: payload size %d out of range", ErrBadHeader, c.PayloadSize)
	}
	if c.Depth < 0 || c.Depth > MaxDepth {
		return fmt.Errorf("%w: depth %d", ErrUnsupportedDepth, c.Depth)
	}
	if c.Depth > c.KeySize*8 {
		return fmt.Errorf("%w: depth %d exceeds key size %d bits", ErrUnsupportedDepth, c.Depth, c.KeySize*8)
	}
	return nil
}

// Writer constructs a bucketed hash-index file in a single streaming
// pass over a sorted key sequence. Keys must be added in non-decreasing
// byte-lexicographic order; Add rejects any key that sorts strictly
// before the previous one.
//
// A Writer is single-use: once Close or Abort has been called, it is
// frozen and further calls return ErrFrozen.
type Writer struct {
	fd    *os.File
	fn    string
	fntmp string

	cfg   Config
	depth int

	nbuckets uint64
	offsets  []uint64 // len nbuckets+1
	cur      uint64   // bucket currently being filled

	off     uint64 // running file write cursor
	lastKey []byte
	haveLast bool

	bufw   *bufio.Writer
	frozen bool

	suffixBuf []byte
}

// NewWriter creates fn.tmp.<random> and prepares it to receive keys
// according to cfg. Call Close to finish the build and atomically
// rename the temp file into place, or Abort to discard it.
func NewWriter(fn string, cfg Config) (*Writer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	tmp := fmt.Sprintf("%s.tmp.%s", fn, uuid.NewString())

	fd, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		fd:        fd,
		fn:        fn,
		fntmp:     tmp,
		cfg:       cfg,
		depth:     cfg.Depth,
		nbuckets:  uint64(1) << uint(cfg.Depth),
		bufw:      bufio.NewWriterSize(fd, 256*1024),
		suffixBuf: make([]byte, suffixLen(cfg.KeySize, cfg.Depth)),
	}

	h := Header{
		KeyType:     cfg.KeyType,
		Description: cfg.Description,
		K:           cfg.KeySize,
		P:           cfg.PayloadSize,
	}

	n, err := writeHeader(w.bufw, h)
	if err != nil {
		return nil, w.error("can't write header: %w", err)
	}

	w.off = uint64(n)
	w.offsets = make([]uint64, w.nbuckets+1)
	w.offsets[0] = w.off

	return w, nil
}

// TotalBuckets returns 2^Depth, the number of buckets this writer will
// produce.
func (w *Writer) TotalBuckets() uint64 {
	return w.nbuckets
}

// CurrentOffset returns the writer's current file-write cursor.
func (w *Writer) CurrentOffset() uint64 {
	return w.off
}

// Add appends one key/payload pair. key must be exactly cfg.KeySize
// bytes; payload must be exactly cfg.PayloadSize bytes, or nil (treated
// as all-zero payload). Keys must arrive in non-decreasing
// byte-lexicographic order -- a key strictly less than the previously
// added key returns ErrInputOrder and the Writer is left usable for
// inspection but should not be Close()'d.
func (w *Writer) Add(key, payload []byte) error {
	if w.frozen {
		return ErrFrozen
	}

	if len(key) != w.cfg.KeySize {
		return fmt.Errorf("%w: key is %d bytes, want %d", ErrInputDecode, len(key), w.cfg.KeySize)
	}

	if payload == nil {
		payload = make([]byte, w.cfg.PayloadSize)
	} else if len(payload) != w.cfg.PayloadSize {
		return fmt.Errorf("%w: payload is %d bytes, want %d", ErrInputDecode, len(payload), w.cfg.PayloadSize)
	}

	if w.haveLast && bytes.Compare(key, w.lastKey) < 0 {
		return fmt.Errorf("%w: key %x precedes previous key %x", ErrInputOrder, key, w.lastKey)
	}

	b := uint64(prefixBits(key, w.depth))
	for w.cur < b {
		w.cur++
		w.offsets[w.cur] = w.off
	}

	suffixOf(key, w.depth, w.suffixBuf)

	n, err := w.bufw.Write(w.suffixBuf)
	if err != nil {
		return err
	}
	w.off += uint64(n)

	n, err = w.bufw.Write(payload)
	if err != nil {
		return err
	}
	w.off += uint64(n)

	w.lastKey = append(w.lastKey[:0], key...)
	w.haveLast = true

	return nil
}

// AddStream parses sorted hex-digest lines from r (see ScanHexLines) and
// Adds each as a zero-payload key. It returns the number of keys added.
func (w *Writer) AddStream(r io.Reader) (uint64, error) {
	return ScanHexLines(r, w.cfg.KeySize, func(key []byte) error {
		return w.Add(key, nil)
	})
}

// Close finishes the remaining empty buckets, writes the
// DEFLATE-compressed offset table and its trailer, flushes, syncs, and
// renames the temp file into place. After Close, the Writer is frozen.
func (w *Writer) Close() error {
	if w.frozen {
		return ErrFrozen
	}

	for w.cur < w.nbuckets {
		w.cur++
		w.offsets[w.cur] = w.off
	}

	blob := encodeOffsetTable(w.depth, w.offsets)

	compressed, err := compressOffsetTable(blob)
	if err != nil {
		return w.error("can't compress offset table: %w", err)
	}

	if _, err := w.bufw.Write(compressed); err != nil {
		return w.error("can't write offset table: %w", err)
	}

	var trailer [TrailerLenSize]byte
	binary.BigEndian.PutUint32(trailer[:], uint32(len(compressed)))
	if _, err := w.bufw.Write(trailer[:]); err != nil {
		return w.error("can't write trailer: %w", err)
	}

	if err := w.bufw.Flush(); err != nil {
		return w.error("can't flush: %w", err)
	}
	if err := w.fd.Sync(); err != nil {
		return w.error("can't sync: %w", err)
	}
	if err := w.fd.Close(); err != nil {
		return fmt.Errorf("%s: %w", w.fntmp, err)
	}

	if err := os.Rename(w.fntmp, w.fn); err != nil {
		return err
	}

	w.frozen = true
	return nil
}

// Abort closes and removes the temp file without producing a usable
// index. Callers must treat any partially built file as garbage; Abort
// is how that garbage gets deleted.
func (w *Writer) Abort() error {
	if w.frozen {
		return ErrFrozen
	}
	w.frozen = true
	w.fd.Close()
	return os.Remove(w.fntmp)
}

// error cleans up the temp file and wraps f/v into an error. A
// half-written build never leaves a file at the final path.
func (w *Writer) error(f string, v ...interface{}) error {
	w.fd.Close()
	os.Remove(w.fntmp)
	w.frozen = true
	return fmt.Errorf(f, v...)
}
