// main.go -- hashidxinfo: inspect a bucketed hash-index file, optionally look up a digest
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	hashidx "github.com/opencoff/go-hashidx"
	flag "github.com/opencoff/pflag"
)

func main() {
	var cacheSize int
	var lookup string

	usage := fmt.Sprintf("%s [options] INDEX", os.Args[0])

	flag.IntVarP(&cacheSize, "cache", "c", 0, "Opportunistic lookup-cache size (0 disables it)")
	flag.StringVarP(&lookup, "lookup", "l", "", "Look up one hex digest and exit")
	flag.Usage = func() {
		fmt.Printf("hashidxinfo - print header/bucket info for a hash-index, optionally look up a digest\nUsage: %s\n", usage)
		flag.PrintDefaults()
	}

	flag.Parse()
	args := flag.Args()

	if len(args) < 1 {
		die("No index file name!\nUsage: %s\n", usage)
	}

	fn := args[0]

	rd, err := hashidx.Open(fn, cacheSize)
	if err != nil {
		die("can't open %s: %s", fn, err)
	}
	defer rd.Close()

	if lookup != "" {
		doLookup(rd, lookup)
		return
	}

	printSummary(rd, fn)
}

func printSummary(rd *hashidx.Reader, fn string) {
	st, err := os.Stat(fn)
	if err != nil {
		die("can't stat %s: %s", fn, err)
	}

	var nonEmpty, maxCount uint64
	total := rd.TotalBuckets()
	for i := uint64(0); i < total; i++ {
		_, _, count := rd.BucketRange(i)
		if count > 0 {
			nonEmpty++
		}
		if count > maxCount {
			maxCount = count
		}
	}

	fmt.Printf("%s: %s, %s on disk\n", fn, rd.KeyType(), humanize.Bytes(uint64(st.Size())))
	if d := rd.Description(); d != "" {
		fmt.Printf("  description:  %s\n", d)
	}
	fmt.Printf("  key size:     %d bytes\n", rd.KeySize())
	fmt.Printf("  payload size: %d bytes\n", rd.PayloadSize())
	fmt.Printf("  depth:        %d (%s buckets, %s non-empty)\n",
		rd.Depth(), humanize.Comma(int64(total)), humanize.Comma(int64(nonEmpty)))
	fmt.Printf("  largest bucket: %s entries\n", humanize.Comma(int64(maxCount)))
}

func doLookup(rd *hashidx.Reader, hexDigest string) {
	want := rd.KeySize()
	if len(hexDigest) != 2*want {
		die("bad hex digest %q: want %d hex characters, got %d", hexDigest, 2*want, len(hexDigest))
	}

	key := make([]byte, want)
	if _, err := hex.Decode(key, []byte(hexDigest)); err != nil {
		die("bad hex digest %q: %s", hexDigest, err)
	}

	payload, present, err := rd.Lookup(key)
	if err != nil {
		die("lookup failed: %s", err)
	}

	if !present {
		fmt.Println("absent")
		os.Exit(1)
	}

	if len(payload) > 0 {
		fmt.Printf("present %s\n", hex.EncodeToString(payload))
	} else {
		fmt.Println("present")
	}
}

// die with error
func die(f string, v ...interface{}) {
	warn(f, v...)
	os.Exit(1)
}

func warn(f string, v ...interface{}) {
	z := fmt.Sprintf("%s: %s", os.Args[0], f)
	s := fmt.Sprintf(z, v...)
	if n := len(s); n == 0 || s[n-1] != '\n' {
		s += "\n"
	}

	os.Stderr.WriteString(s)
	os.Stderr.Sync()
}
