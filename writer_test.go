// writer_test.go -- test suite for the streaming builder

package hashidx

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempIndexPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "idx.bin")
}

func TestWriterRejectsBadConfig(t *testing.T) {
	assert := newAsserter(t)

	_, err := NewWriter(tempIndexPath(t), Config{KeySize: 0, Depth: 4})
	assert(err != nil, "expected error for zero key size")

	_, err = NewWriter(tempIndexPath(t), Config{KeySize: 20, Depth: 25})
	assert(err != nil, "expected error for depth > MaxDepth")

	_, err = NewWriter(tempIndexPath(t), Config{KeySize: 1, Depth: 16})
	assert(err != nil, "expected error for depth exceeding key size in bits")
}

func TestWriterRejectsOutOfOrderKeys(t *testing.T) {
	assert := newAsserter(t)

	fn := tempIndexPath(t)
	w, err := NewWriter(fn, Config{KeyType: "SHA-1", KeySize: 20, Depth: 4})
	assert(err == nil, "new writer: %s", err)

	k1 := bytes.Repeat([]byte{0xf0}, 20)
	k0 := make([]byte, 20)

	assert(w.Add(k1, nil) == nil, "add k1")
	err = w.Add(k0, nil)
	assert(err != nil, "expected InputOrder error")

	assert(w.Abort() == nil, "abort")
	_, statErr := os.Stat(fn)
	assert(os.IsNotExist(statErr), "aborted writer must leave no output file")
}

func TestWriterRejectsWrongKeyLength(t *testing.T) {
	assert := newAsserter(t)

	w, err := NewWriter(tempIndexPath(t), Config{KeySize: 20, Depth: 4})
	assert(err == nil, "new writer: %s", err)
	defer w.Abort()

	err = w.Add(make([]byte, 19), nil)
	assert(err != nil, "expected error for wrong key length")
}

func TestWriterAcceptsDuplicates(t *testing.T) {
	assert := newAsserter(t)

	fn := tempIndexPath(t)
	w, err := NewWriter(fn, Config{KeyType: "SHA-1", KeySize: 20, Depth: 4})
	assert(err == nil, "new writer: %s", err)

	k := bytes.Repeat([]byte{0x00}, 20)
	assert(w.Add(k, nil) == nil, "add 1st")
	assert(w.Add(k, nil) == nil, "add 2nd (duplicate)")
	assert(w.Close() == nil, "close")

	rd, err := Open(fn, 0)
	assert(err == nil, "open: %s", err)
	defer rd.Close()

	_, _, count := rd.BucketRange(0)
	assert(count == 2, "expected 2 entries in bucket 0, saw %d", count)

	_, present, err := rd.Lookup(k)
	assert(err == nil, "lookup: %s", err)
	assert(present, "expected Present for duplicated key")
}

func TestWriterDoubleCloseIsFrozen(t *testing.T) {
	assert := newAsserter(t)

	fn := tempIndexPath(t)
	w, err := NewWriter(fn, Config{KeySize: 20, Depth: 0})
	assert(err == nil, "new writer: %s", err)
	assert(w.Close() == nil, "close")

	err = w.Close()
	assert(err == ErrFrozen, "expected ErrFrozen on double close, saw %v", err)

	err = w.Add(make([]byte, 20), nil)
	assert(err == ErrFrozen, "expected ErrFrozen on Add after close, saw %v", err)
}

func TestAddStreamParsesHexLines(t *testing.T) {
	assert := newAsserter(t)

	fn := tempIndexPath(t)
	w, err := NewWriter(fn, Config{KeyType: "SHA-1", KeySize: 20, Depth: 4})
	assert(err == nil, "new writer: %s", err)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s:100\n", strings.Repeat("00", 20))
	fmt.Fprintf(&buf, "%s some-trailing-field\n", "f0"+strings.Repeat("0", 38))

	n, err := w.AddStream(&buf)
	assert(err == nil, "add stream: %s", err)
	assert(n == 2, "expected 2 records, saw %d", n)
	assert(w.Close() == nil, "close")
}
