// mmap.go -- map the whole index file for zero-syscall bucket scans
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package hashidx

import "syscall"

// mmapFile maps the first sz bytes of fd read-only, private (copy on
// write, though nothing in this package ever writes through the
// mapping). It returns the raw byte slice -- the bucket data has no
// fixed element width known at compile time, so callers slice directly
// into it.
func mmapFile(fd int, sz int64) ([]byte, error) {
	return syscall.Mmap(fd, 0, int(sz), syscall.PROT_READ, syscall.MAP_PRIVATE)
}

// munmap releases a mapping returned by mmapFile.
func munmap(b []byte) error {
	return syscall.Munmap(b)
}
