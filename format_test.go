// format_test.go -- test suite for header encode/decode and bit arithmetic

package hashidx

import (
	"bufio"
	"bytes"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	h := Header{
		KeyType:     "SHA-1",
		Description: "test corpus",
		K:           20,
		P:           0,
	}

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	n, err := writeHeader(bw, h)
	assert(err == nil, "write header: %s", err)
	assert(bw.Flush() == nil, "flush")
	assert(n == buf.Len(), "byte count mismatch: wrote %d, buf has %d", n, buf.Len())

	h2, n2, err := parseHeader(buf.Bytes())
	assert(err == nil, "parse header: %s", err)
	assert(n2 == n, "header length mismatch: exp %d, saw %d", n, n2)
	assert(h2.KeyType == h.KeyType, "key-type mismatch")
	assert(h2.Description == h.Description, "description mismatch")
	assert(h2.K == h.K, "K mismatch")
	assert(h2.P == h.P, "P mismatch")
}

func TestHeaderEmptyDescription(t *testing.T) {
	assert := newAsserter(t)

	h := Header{KeyType: "NT", Description: "", K: 16, P: 0}

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, err := writeHeader(bw, h)
	assert(err == nil, "write header: %s", err)
	bw.Flush()

	h2, _, err := parseHeader(buf.Bytes())
	assert(err == nil, "parse header: %s", err)
	assert(h2.Description == "", "expected empty description, saw %q", h2.Description)
}

func TestHeaderBadMagic(t *testing.T) {
	assert := newAsserter(t)

	buf := []byte("not-the-magic\nSHA-1\n\n" + string([]byte{20, 0}))
	_, _, err := parseHeader(buf)
	assert(err != nil, "expected bad-magic error")
}

func TestHeaderTruncated(t *testing.T) {
	assert := newAsserter(t)

	buf := []byte(Magic + "\nSHA-1\n")
	_, _, err := parseHeader(buf)
	assert(err != nil, "expected truncated-header error")
}

func TestPrefixBitsZeroDepth(t *testing.T) {
	assert := newAsserter(t)

	key := make([]byte, 20)
	key[0] = 0xff
	b := prefixBits(key, 0)
	assert(b == 0, "depth 0 must always yield bucket 0, saw %d", b)
}

func TestPrefixBitsWholeBytes(t *testing.T) {
	assert := newAsserter(t)

	key := []byte{0xab, 0xcd, 0xef}
	b := prefixBits(key, 8)
	assert(b == 0xab, "depth 8: exp 0xab, saw %#x", b)

	b = prefixBits(key, 16)
	assert(b == 0xabcd, "depth 16: exp 0xabcd, saw %#x", b)
}

func TestPrefixBitsPartialByte(t *testing.T) {
	assert := newAsserter(t)

	// 0xF0 = 1111_0000; top 4 bits = 0xF
	key := []byte{0xf0, 0x00}
	b := prefixBits(key, 4)
	assert(b == 0xf, "depth 4: exp 0xf, saw %#x", b)

	// top 12 bits of 0xF0 0x3A = 1111_0000_0011 = 0xF03
	key = []byte{0xf0, 0x3a}
	b = prefixBits(key, 12)
	assert(b == 0xf03, "depth 12: exp 0xf03, saw %#x", b)
}

func TestSuffixOfMasksPartialByte(t *testing.T) {
	assert := newAsserter(t)

	key := []byte{0xf0, 0xff, 0xff}
	dst := make([]byte, suffixLen(len(key), 4))
	suffixOf(key, 4, dst)

	assert(len(dst) == 3, "suffix len: exp 3, saw %d", len(dst))
	assert(dst[0] == 0x00, "partial byte's prefix bits not masked: exp 0x00, saw %#x", dst[0])
	assert(dst[1] == 0xff && dst[2] == 0xff, "trailing bytes corrupted")
}

func TestSuffixOfWholeByteBoundary(t *testing.T) {
	assert := newAsserter(t)

	key := []byte{0xab, 0xcd, 0xef}
	dst := make([]byte, suffixLen(len(key), 8))
	suffixOf(key, 8, dst)

	assert(len(dst) == 2, "suffix len: exp 2, saw %d", len(dst))
	assert(dst[0] == 0xcd && dst[1] == 0xef, "suffix mismatch: %x", dst)
}

func TestEntryWidthSHA1NT(t *testing.T) {
	assert := newAsserter(t)

	// Per-entry width for K=20,D=20,P=0 is 18 bytes; K=16,D=20,P=0 is 14 bytes.
	assert(entryWidth(20, 20, 0) == 18, "sha1 width mismatch: %d", entryWidth(20, 20, 0))
	assert(entryWidth(16, 20, 0) == 14, "nt width mismatch: %d", entryWidth(16, 20, 0))
}
