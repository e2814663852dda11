// hexinput.go -- parse sorted hex-digest lines into fixed-width keys
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package hashidx

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// ScanHexLines reads newline-terminated records of the form
// "<hex>[:tail]" or "<hex> tail" from r, where <hex> is keySize*2 hex
// characters (upper or lower case). Trailing content after the hex
// digest is discarded. \r\n line endings are tolerated. Blank lines are
// skipped. For each decoded key, fn is called in input order; if fn
// returns an error, scanning stops and that error is returned.
//
// ScanHexLines does not itself enforce sort order -- that is the
// caller's job (Writer.Add does it per key, so AddStream composes
// ScanHexLines with Writer.Add to get both parsing and order checking
// in one pass).
func ScanHexLines(r io.Reader, keySize int, fn func(key []byte) error) (uint64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	want := keySize * 2
	var n uint64

	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if len(line) == 0 {
			continue
		}
		if len(line) < want {
			return n, fmt.Errorf("%w: short line %q", ErrInputDecode, line)
		}

		if len(line) > want {
			switch line[want] {
			case ':', ' ', '\t':
			default:
				return n, fmt.Errorf("%w: bad separator after digest in %q", ErrInputDecode, line)
			}
		}

		key := make([]byte, keySize)
		if _, err := hex.Decode(key, []byte(line[:want])); err != nil {
			return n, fmt.Errorf("%w: %q: %s", ErrInputDecode, line, err)
		}

		if err := fn(key); err != nil {
			return n, err
		}
		n++
	}

	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("%w: %s", ErrInputDecode, err)
	}

	return n, nil
}
