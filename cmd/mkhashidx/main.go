// main.go -- mkhashidx: build a bucketed hash-index file from sorted hex digests
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

// mkhashidx reads sorted hex-digest lines (one per line, optionally
// followed by ":count" or whitespace-separated trailing data, as HIBP
// publishes them) from a file or stdin and builds a bucketed hash-index
// file per github.com/opencoff/go-hashidx. It does not hash passwords or
// otherwise guess at plaintext input -- that front-end is out of scope
// for this tool, same as it is for the underlying format.
package main

import (
	"fmt"
	"os"

	hashidx "github.com/opencoff/go-hashidx"
	flag "github.com/opencoff/pflag"
)

func main() {
	var keyType, description, input string
	var keySize, payloadSize, depth int

	usage := fmt.Sprintf("%s [options] OUTPUT [INPUT]", os.Args[0])

	flag.StringVarP(&keyType, "key-type", "t", "SHA-1", "Key-type tag written into the header")
	flag.StringVarP(&description, "description", "d", "", "Free-form description written into the header")
	flag.IntVarP(&keySize, "key-size", "k", 20, "Key size in bytes")
	flag.IntVarP(&payloadSize, "payload-size", "p", 0, "Payload size in bytes")
	flag.IntVarP(&depth, "depth", "D", 20, "Bucket depth (bits of prefix used to select a bucket)")
	flag.StringVarP(&input, "input", "i", "", "Input file (default: stdin)")
	flag.Usage = func() {
		fmt.Printf("mkhashidx - build a bucketed hash-index from sorted hex digests\nUsage: %s\n", usage)
		flag.PrintDefaults()
	}

	flag.Parse()
	args := flag.Args()

	if len(args) < 1 {
		die("No output file name!\nUsage: %s\n", usage)
	}

	out := args[0]
	if len(args) > 1 {
		input = args[1]
	}

	cfg := hashidx.Config{
		KeyType:     keyType,
		Description: description,
		KeySize:     keySize,
		PayloadSize: payloadSize,
		Depth:       depth,
	}

	w, err := hashidx.NewWriter(out, cfg)
	if err != nil {
		die("can't create %s: %s", out, err)
	}

	src := os.Stdin
	if input != "" {
		fd, err := os.Open(input)
		if err != nil {
			w.Abort()
			die("can't open %s: %s", input, err)
		}
		defer fd.Close()
		src = fd
	}

	n, err := w.AddStream(src)
	if err != nil {
		w.Abort()
		die("build failed after %d records: %s", n, err)
	}

	if err := w.Close(); err != nil {
		die("can't finish %s: %s", out, err)
	}

	fmt.Printf("%s: %d records, %d buckets (depth %d)\n", out, n, w.TotalBuckets(), depth)
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
