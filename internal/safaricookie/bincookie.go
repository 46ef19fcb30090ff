// Package safaricookie decodes Safari's Cookies.binarycookies format.
//
// Format (big-endian file header, little-endian thereafter), per spec §4.2
// and cross-checked against
// other_examples/51fad9fd_creachadair-cookies__bincookie-bincookie.go.go
// (creachadair's bincookie/bincookie.go, a standalone retrieved file —
// creachadair-cookies has no full repo in the pack):
//
//	magic "cook" (4 bytes, upper-cased COOK in spec prose — same bytes)
//	page count N (u32 BE)
//	N page sizes (u32 BE each)
//	N page bodies
//
// Each page: magic 00 00 01 00, cookie count c (u32 LE), c cookie offsets
// (u32 LE), a zero trailer (u32), then c cookie records back to back.
//
// Each cookie record: total size (u32 LE), unknown (u32), flags (u32 LE;
// bit0=secure, bit2=httpOnly), unknown (u32), then url/name/path/value
// offsets (u32 LE each), an 8-byte zero end marker, expiry and created as
// float64 LE seconds since 2001-01-01 (add 978307200 for Unix epoch).
package safaricookie

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	gbinary "github.com/gonuts/binary"
)

// macEpochOffset is the number of seconds between 2001-01-01 and the Unix
// epoch.
const macEpochOffset int64 = 978307200

const (
	fileMagic  = "cook"
	pageMagic  = "\x00\x00\x01\x00"
)

// Cookie is one decoded Safari cookie record.
type Cookie struct {
	URL      string
	Name     string
	Path     string
	Value    string
	Expiry   time.Time
	Created  time.Time
	Secure   bool
	HTTPOnly bool
	SameSite string
}

// Error kinds named in spec §4.2.
var (
	ErrBadMagic       = fmt.Errorf("safaricookie: bad file magic")
	ErrBadPageHeader  = fmt.Errorf("safaricookie: bad page header")
	ErrBadPageTrailer = fmt.Errorf("safaricookie: bad page trailer")
	ErrTruncated      = fmt.Errorf("safaricookie: truncated file")
)

// fixedCookieHeader mirrors the fixed-width prefix of a cookie record; the
// variable-length NUL-terminated strings that follow are sliced out by hand
// once the offsets below are known. Decoded with gonuts/binary, which reads
// struct-tagged little-endian fields in one call instead of four manual
// binary.LittleEndian.Uint32 reads.
type fixedCookieHeader struct {
	Size      uint32
	_Unknown1 uint32
	Flags     uint32
	_Unknown2 uint32
	URLOff    uint32
	NameOff   uint32
	PathOff   uint32
	ValueOff  uint32
	_End      uint64
	Expires   float64
	Created   float64
}

const (
	flagSecure   = 1 << 0
	flagHTTPOnly = 1 << 2
	sameSiteMask = 0070
	sameSiteNone = 0040
	sameSiteLax  = 0050
	sameSiteStrict = 0070
)

// DecodeFile reads path and decodes every cookie record it contains. A
// missing file returns an empty slice and no error, per spec §4.2's
// "returns an empty list if the file does not exist."
func DecodeFile(path string) ([]Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return Decode(data)
}

// Decode parses the binarycookies-format byte slice data.
func Decode(data []byte) ([]Cookie, error) {
	if !bytes.HasPrefix(data, []byte(fileMagic)) {
		return nil, ErrBadMagic
	}
	if len(data) < 8 {
		return nil, ErrTruncated
	}
	numPages := binary.BigEndian.Uint32(data[4:8])

	cur := 8
	sizes := make([]int, 0, numPages)
	for i := uint32(0); i < numPages; i++ {
		if cur+4 > len(data) {
			return nil, ErrTruncated
		}
		sizes = append(sizes, int(binary.BigEndian.Uint32(data[cur:cur+4])))
		cur += 4
	}

	var cookies []Cookie
	for _, size := range sizes {
		if cur+size > len(data) {
			return nil, ErrTruncated
		}
		page := data[cur : cur+size]
		pageCookies, err := decodePage(page)
		if err != nil {
			return nil, err
		}
		cookies = append(cookies, pageCookies...)
		cur += size
	}
	return cookies, nil
}

func decodePage(data []byte) ([]Cookie, error) {
	if !bytes.HasPrefix(data, []byte(pageMagic)) {
		return nil, ErrBadPageHeader
	}
	if len(data) < 8 {
		return nil, ErrTruncated
	}
	count := binary.LittleEndian.Uint32(data[4:8])

	cur := 8
	offsets := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		if cur+4 > len(data) {
			return nil, ErrTruncated
		}
		offsets = append(offsets, binary.LittleEndian.Uint32(data[cur:cur+4]))
		cur += 4
	}
	if cur+4 > len(data) {
		return nil, ErrTruncated
	}
	trailer := binary.BigEndian.Uint32(data[cur : cur+4])
	if trailer != 0 {
		return nil, ErrBadPageTrailer
	}

	cookies := make([]Cookie, 0, len(offsets))
	for _, off := range offsets {
		c, err := decodeCookie(data, int(off))
		if err != nil {
			return nil, err
		}
		cookies = append(cookies, c)
	}
	return cookies, nil
}

func decodeCookie(data []byte, off int) (Cookie, error) {
	if off < 0 || off+4 > len(data) {
		return Cookie{}, ErrTruncated
	}
	size := int(binary.LittleEndian.Uint32(data[off : off+4]))
	if off+size > len(data) || size < 56 {
		return Cookie{}, ErrTruncated
	}
	rec := data[off : off+size]

	var hdr fixedCookieHeader
	dec := gbinary.NewDecoder(bytes.NewReader(rec[:56]))
	dec.Order = binary.LittleEndian
	if err := dec.Decode(&hdr); err != nil {
		return Cookie{}, fmt.Errorf("safaricookie: %w", err)
	}

	c := Cookie{
		URL:      nulString(rec, int(hdr.URLOff)),
		Name:     nulString(rec, int(hdr.NameOff)),
		Path:     nulString(rec, int(hdr.PathOff)),
		Value:    nulString(rec, int(hdr.ValueOff)),
		Expiry:   time.Unix(int64(hdr.Expires)+macEpochOffset, 0).UTC(),
		Created:  time.Unix(int64(hdr.Created)+macEpochOffset, 0).UTC(),
		Secure:   hdr.Flags&flagSecure != 0,
		HTTPOnly: hdr.Flags&flagHTTPOnly != 0,
		SameSite: sameSiteString(hdr.Flags),
	}
	return c, nil
}

func sameSiteString(flags uint32) string {
	switch flags & sameSiteMask {
	case sameSiteStrict:
		return "Strict"
	case sameSiteLax:
		return "Lax"
	case sameSiteNone:
		return "None"
	default:
		return ""
	}
}

// nulString reads a NUL-terminated string starting at off within rec,
// stripping any embedded NULs per spec §4.2.
func nulString(rec []byte, off int) string {
	if off < 0 || off >= len(rec) {
		return ""
	}
	end := bytes.IndexByte(rec[off:], 0)
	if end < 0 {
		end = len(rec) - off
	}
	raw := rec[off : off+end]
	if bytes.IndexByte(raw, 0) == -1 {
		return string(raw)
	}
	return string(bytes.ReplaceAll(raw, []byte{0}, nil))
}
