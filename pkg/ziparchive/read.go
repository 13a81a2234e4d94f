package ziparchive

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// flatePool recycles raw-deflate decompressors the same way
// pkg/tarfs/pool.go recycles its zstd/gzip decoders: pull one out,
// Reset it onto the new source, return it when done.
var flatePool sync.Pool

func getFlateReader(r io.Reader) (io.ReadCloser, flate.Resetter) {
	if v := flatePool.Get(); v != nil {
		rc := v.(io.ReadCloser)
		resetter := rc.(flate.Resetter)
		if err := resetter.Reset(r, nil); err == nil {
			return rc, resetter
		}
	}
	rc := flate.NewReader(r)
	return rc, rc.(flate.Resetter)
}

func putFlateReader(rc io.ReadCloser) {
	flatePool.Put(rc)
}

func decompress(c Compression, compressed []byte) ([]byte, error) {
	switch c {
	case Store:
		out := make([]byte, len(compressed))
		copy(out, compressed)
		return out, nil
	case Deflate:
		rc, _ := getFlateReader(bytes.NewReader(compressed))
		defer putFlateReader(rc)
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, rc); err != nil {
			return nil, fmt.Errorf("ziparchive: decompression failure: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("ziparchive: unsupported compression %d", c)
	}
}
