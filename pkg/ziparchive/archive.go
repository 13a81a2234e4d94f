// Package ziparchive implements a minimal, read-only zip central
// directory parser purpose-built for random access into PnP zip
// installs, grounded on original_source/src/zip.rs. It intentionally
// does not use archive/zip in production code: archive/zip.Reader
// requires an io.ReaderAt plus a known size and does not expose enough
// of the central directory layout to be reused here as-is, and this
// package's backing storage abstraction (a bare byte slice, including
// mmap-backed ones) is narrower and simpler than io.ReaderAt. The
// standard library package is used only to build fixtures in tests.
package ziparchive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yarnpkg/pnp-go/pkg/vpath"
)

// Compression identifies the method a zip entry was stored with.
type Compression int

const (
	Store Compression = iota
	Deflate
)

// Entry describes one file's location within the archive's backing
// storage.
type Entry struct {
	Compression Compression
	Offset      int64
	Size        int64
}

// FileType distinguishes a regular file entry from a directory.
type FileType int

const (
	File FileType = iota
	Directory
)

// ByteSource is a read-only, contiguous view over archive bytes. A
// plain []byte and an mmap-backed region both satisfy it.
type ByteSource interface {
	Bytes() []byte
}

// Bytes is the trivial ByteSource wrapping an in-memory slice.
type Bytes []byte

func (b Bytes) Bytes() []byte { return []byte(b) }

// ErrNotFound is returned by FileType/Read/ReadToString when the
// queried name is absent from the archive.
var ErrNotFound = errors.New("ziparchive: entry not found")

// Zip is an indexed, read-only zip archive.
type Zip struct {
	storage ByteSource
	files   map[string]Entry
	dirs    map[string]struct{}
}

const (
	sigEndOfCentralDirectory = 0x06054b50
	sigCentralFileHeader     = 0x02014b50
)

// Open parses the central directory of storage and builds the file
// and directory index. It fails if no end-of-central-directory record
// is found, or if an entry uses a compression method other than STORE
// or DEFLATE.
func Open(storage ByteSource) (*Zip, error) {
	z := &Zip{
		storage: storage,
		files:   make(map[string]Entry),
		dirs:    make(map[string]struct{}),
	}

	data := storage.Bytes()
	cdOffset, err := findCentralDirectoryOffset(data)
	if err != nil {
		return nil, err
	}

	pos := cdOffset
	for {
		name, entry, next, ok, err := readCentralFileHeader(data, pos)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		pos = next

		name = vpath.Normalize(name)
		segments := strings.Split(name, "/")
		for t := 1; t < len(segments); t++ {
			z.dirs[strings.Join(segments[:t], "/")+"/"] = struct{}{}
		}

		if entry != nil {
			z.files[name] = *entry
		} else {
			z.dirs[name] = struct{}{}
		}
	}

	return z, nil
}

func findCentralDirectoryOffset(data []byte) (int64, error) {
	if len(data) < 22 {
		return 0, errors.New("ziparchive: archive too small to contain an end-of-central-directory record")
	}
	pos := int64(len(data)) - 22
	for pos >= 0 {
		if pos+4 <= int64(len(data)) && binary.LittleEndian.Uint32(data[pos:pos+4]) == sigEndOfCentralDirectory {
			off := pos + 4 + 12
			if off+4 > int64(len(data)) {
				return 0, errors.New("ziparchive: truncated end-of-central-directory record")
			}
			return int64(binary.LittleEndian.Uint32(data[off : off+4])), nil
		}
		pos--
	}
	return 0, errors.New("ziparchive: end of central directory record not found")
}

// readCentralFileHeader parses one central directory file header
// starting at pos. ok is false once the signature no longer matches
// (the directory has been fully consumed). entry is nil for directory
// entries (names ending in "/").
func readCentralFileHeader(data []byte, pos int64) (name string, entry *Entry, next int64, ok bool, err error) {
	r := &reader{data: data, pos: pos}

	sig, err := r.u32()
	if err != nil {
		return "", nil, 0, false, err
	}
	if sig != sigCentralFileHeader {
		return "", nil, 0, false, nil
	}

	r.skip(4) // version made by, version needed to extract
	r.skip(2) // general purpose bit flag

	compressionMethod, err := r.u16()
	if err != nil {
		return "", nil, 0, false, err
	}
	r.skip(4) // last mod time and date

	var compression Compression
	switch compressionMethod {
	case 0:
		compression = Store
	case 8:
		compression = Deflate
	default:
		return "", nil, 0, false, fmt.Errorf("ziparchive: unsupported compression method %d", compressionMethod)
	}

	r.skip(4) // crc32
	compressedSize, err := r.u32()
	if err != nil {
		return "", nil, 0, false, err
	}
	r.skip(4) // uncompressed size

	nameLen, err := r.u16()
	if err != nil {
		return "", nil, 0, false, err
	}
	extraLen, err := r.u16()
	if err != nil {
		return "", nil, 0, false, err
	}
	commentLen, err := r.u16()
	if err != nil {
		return "", nil, 0, false, err
	}

	r.skip(2) // disk number start
	r.skip(2) // internal file attributes
	r.skip(4) // external file attributes
	localHeaderOffset, err := r.u32()
	if err != nil {
		return "", nil, 0, false, err
	}

	nameBytes, err := r.bytes(int(nameLen))
	if err != nil {
		return "", nil, 0, false, err
	}
	fileName := string(nameBytes)

	r.skip(int64(extraLen) + int64(commentLen))

	if strings.HasSuffix(fileName, "/") {
		return fileName, nil, r.pos, true, nil
	}

	localNameLen, localExtraLen, err := readLocalFileHeaderLengths(data, int64(localHeaderOffset))
	if err != nil {
		return "", nil, 0, false, err
	}

	dataOffset := int64(localHeaderOffset) + 30 + int64(localNameLen) + int64(localExtraLen)

	return fileName, &Entry{
		Compression: compression,
		Offset:      dataOffset,
		Size:        int64(compressedSize),
	}, r.pos, true, nil
}

func readLocalFileHeaderLengths(data []byte, localHeaderOffset int64) (nameLen, extraLen uint16, err error) {
	r := &reader{data: data, pos: localHeaderOffset + 26}
	nameLen, err = r.u16()
	if err != nil {
		return 0, 0, err
	}
	extraLen, err = r.u16()
	if err != nil {
		return 0, 0, err
	}
	return nameLen, extraLen, nil
}

// reader is a small bounds-checked little-endian cursor over a byte
// slice, standing in for the byteorder-crate cursor original_source
// uses.
type reader struct {
	data []byte
	pos  int64
}

func (r *reader) u16() (uint16, error) {
	if r.pos+2 > int64(len(r.data)) {
		return 0, errors.New("ziparchive: unexpected end of data")
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if r.pos+4 > int64(len(r.data)) {
		return 0, errors.New("ziparchive: unexpected end of data")
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.pos+int64(n) > int64(len(r.data)) {
		return nil, errors.New("ziparchive: unexpected end of data")
	}
	b := r.data[r.pos : r.pos+int64(n)]
	r.pos += int64(n)
	return b, nil
}

func (r *reader) skip(n int64) { r.pos += n }

func (z *Zip) isDir(p string) bool {
	if strings.HasSuffix(p, "/") {
		_, ok := z.dirs[p]
		return ok
	}
	_, ok := z.dirs[p+"/"]
	return ok
}

// FileType reports whether name is a file or directory. A directory
// query may or may not carry a trailing slash; a file query must not.
func (z *Zip) FileType(name string) (FileType, error) {
	if z.isDir(name) {
		return Directory, nil
	}
	if _, ok := z.files[name]; ok {
		return File, nil
	}
	return 0, ErrNotFound
}

// Read returns the decompressed contents of the named entry.
func (z *Zip) Read(name string) ([]byte, error) {
	entry, ok := z.files[name]
	if !ok {
		return nil, ErrNotFound
	}
	data := z.storage.Bytes()
	if entry.Offset < 0 || entry.Offset+entry.Size > int64(len(data)) {
		return nil, errors.New("ziparchive: entry extends past end of archive")
	}
	slice := data[entry.Offset : entry.Offset+entry.Size]
	return decompress(entry.Compression, slice)
}

// ReadToString returns the decompressed contents of the named entry
// as a string, failing if the contents are not valid UTF-8.
func (z *Zip) ReadToString(name string) (string, error) {
	data, err := z.Read(name)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.New("ziparchive: file did not contain valid UTF-8")
	}
	return string(data), nil
}
