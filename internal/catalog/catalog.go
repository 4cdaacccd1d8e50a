// Package catalog implements the binary catalog format described by
// spec.md §4.3: a zlib-compressed, digest-verified list of installable
// artifacts under one base directory.
package catalog

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"net/url"
	"path/filepath"

	"github.com/tupdate/tupdate/internal/pathsafety"
	"golang.org/x/xerrors"
)

// Magic is the 5-byte signature every catalog body must begin with.
var Magic = [5]byte{0xFF, 'T', 'C', 'a', 't'}

const headerLen = 5 + 32 + 4 // magic + digest + uncompressed size

// minEntryTail is the number of bytes an entry must have after its
// newline-terminated path: 32-byte checksum + 8-byte size + 2-byte
// extension length.
const minEntryTail = 32 + 8 + 2

// Entry is one installable artifact named by a catalog.
type Entry struct {
	// SrcURL is the catalog's base URL joined with the entry's relative path.
	SrcURL *url.URL
	// DstPath is the install base directory joined with the same relative
	// path.
	DstPath string
	// Checksum is the SHA-256 of the file body.
	Checksum [32]byte
	// Size is the expected byte length of the file body.
	Size uint64
	// NeedsDownload is set by the Local State Differ; zero value is false.
	NeedsDownload bool

	// relPath is kept around for diagnostics and for DstPath/SrcURL
	// re-derivation in tests.
	relPath string
}

// RelPath returns the textual relative path this entry was decoded from.
func (e Entry) RelPath() string { return e.relPath }

// ErrEmptyBody is returned when a catalog body has zero bytes.
var ErrEmptyBody = xerrors.New("empty cat body")

// ErrBadHeader is returned when the body is shorter than the header or does
// not start with Magic.
var ErrBadHeader = xerrors.New("invalid cat header")

// ErrBadBody is returned when the compressed payload fails to decompress to
// exactly the declared length with the declared digest.
var ErrBadBody = xerrors.New("failed decompression")

// ErrMalformedEntry is returned when an entry's fields don't parse, its
// relative path is fishy, or it overruns the remaining payload.
var ErrMalformedEntry = xerrors.New("failed cat parsing")

// Decode parses a full catalog body (as downloaded over HTTP) into a list of
// entries, resolving each entry's SrcURL against catalogURL and its DstPath
// against baseDir.
//
// A zero-entry catalog (valid header, empty decompressed body) is accepted
// and returns a nil/empty slice with a nil error.
func Decode(body []byte, catalogURL *url.URL, baseDir string) ([]Entry, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	if len(body) < headerLen || !bytes.Equal(body[:5], Magic[:]) {
		return nil, ErrBadHeader
	}
	var wantDigest [32]byte
	copy(wantDigest[:], body[5:37])
	uncompressedSize := binary.BigEndian.Uint32(body[37:41])

	zr, err := zlib.NewReader(bytes.NewReader(body[headerLen:]))
	if err != nil {
		return nil, xerrors.Errorf("%w: %v", ErrBadBody, err)
	}
	defer zr.Close()
	uncompressed, err := io.ReadAll(zr)
	if err != nil {
		return nil, xerrors.Errorf("%w: %v", ErrBadBody, err)
	}
	if uint32(len(uncompressed)) != uncompressedSize {
		return nil, ErrBadBody
	}
	if sha256.Sum256(uncompressed) != wantDigest {
		return nil, ErrBadBody
	}

	var entries []Entry
	next := uncompressed
	for len(next) > 0 {
		entry, rest, err := parseEntry(next, catalogURL, baseDir)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		next = rest
	}
	return entries, nil
}

func parseEntry(b []byte, catalogURL *url.URL, baseDir string) (Entry, []byte, error) {
	newline := bytes.IndexByte(b, '\n')
	if newline <= 0 {
		return Entry{}, nil, ErrMalformedEntry
	}
	if newline > len(b)-minEntryTail-1 {
		return Entry{}, nil, ErrMalformedEntry
	}
	relPath := string(b[:newline])
	if pathsafety.IsFishy(relPath) {
		return Entry{}, nil, ErrMalformedEntry
	}
	var checksum [32]byte
	copy(checksum[:], b[newline+1:newline+33])
	size := binary.BigEndian.Uint64(b[newline+33 : newline+41])
	extLen := binary.BigEndian.Uint16(b[newline+41 : newline+43])
	next := newline + 43 + int(extLen)
	if next > len(b) {
		return Entry{}, nil, ErrMalformedEntry
	}
	srcURL, err := catalogURL.Parse(relPath)
	if err != nil {
		return Entry{}, nil, ErrMalformedEntry
	}
	return Entry{
		SrcURL:   srcURL,
		DstPath:  filepath.Join(baseDir, filepath.FromSlash(relPath)),
		Checksum: checksum,
		Size:     size,
		relPath:  relPath,
	}, b[next:], nil
}

// Encode serializes entries (ignoring SrcURL/DstPath/NeedsDownload, which are
// derived rather than stored) into a catalog body in the format Decode
// expects. It exists primarily to build fixtures for tests and for tools
// that author catalogs.
func Encode(entries []EncodeEntry) ([]byte, error) {
	var body bytes.Buffer
	for _, e := range entries {
		if pathsafety.IsFishy(e.RelPath) {
			return nil, xerrors.Errorf("refusing to encode fishy relative path %q", e.RelPath)
		}
		body.WriteString(e.RelPath)
		body.WriteByte('\n')
		body.Write(e.Checksum[:])
		var sizeBuf [8]byte
		binary.BigEndian.PutUint64(sizeBuf[:], e.Size)
		body.Write(sizeBuf[:])
		var extLenBuf [2]byte
		binary.BigEndian.PutUint16(extLenBuf[:], uint16(len(e.Extension)))
		body.Write(extLenBuf[:])
		body.Write(e.Extension)
	}
	uncompressed := body.Bytes()
	digest := sha256.Sum256(uncompressed)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(uncompressed); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write(Magic[:])
	out.Write(digest[:])
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], uint32(len(uncompressed)))
	out.Write(sizeBuf[:])
	out.Write(compressed.Bytes())
	return out.Bytes(), nil
}

// EncodeEntry is the input shape for Encode: the fields actually carried on
// the wire, without the URL/path resolution that only makes sense once a
// catalog URL and base directory are known.
type EncodeEntry struct {
	RelPath   string
	Checksum  [32]byte
	Size      uint64
	Extension []byte
}
