package dump

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DanMARC2 is the name of the legacy 8 bit record encoding.
const DanMARC2 = "DANMARC2"

// Charset is a resolved output encoding and the name declared in XML output.
type Charset struct {
	Name     string
	Encoding encoding.Encoding
	// BOM starts the output once. Encoding itself never writes one, so records can be
	// encoded one at a time.
	BOM []byte
}

// IsUTF8 reports whether records can be written without transcoding.
func (c Charset) IsUTF8() bool {
	return c.Encoding == nil || c.Encoding == unicode.UTF8
}

// Encode converts UTF-8 bytes to the charset.
func (c Charset) Encode(b []byte) ([]byte, error) {
	if c.IsUTF8() {
		return b, nil
	}
	return c.Encoding.NewEncoder().Bytes(b)
}

// isoStructure holds the bytes ISO 2709 framing is built from, except @ which
// DANMARC2 escapes and never appears in a leader or directory.
var isoStructure = func() []byte {
	b := []byte{0x1D, 0x1E, 0x1F}
	for c := byte(' '); c <= '~'; c++ {
		if c != '@' {
			b = append(b, c)
		}
	}
	return b
}()

// ASCIICompatible reports whether the charset writes ASCII structure bytes unchanged.
func (c Charset) ASCIICompatible() bool {
	if len(c.BOM) > 0 {
		return false
	}
	b, err := c.Encode(isoStructure)
	return err == nil && bytes.Equal(b, isoStructure)
}

// byteOrderMarks maps the UTF-16 encodings that mark byte order to the equivalent
// unmarked encoding and the mark itself.
var byteOrderMarks = []struct {
	marked   encoding.Encoding
	unmarked encoding.Encoding
	bom      []byte
}{
	{unicode.UTF16(unicode.BigEndian, unicode.UseBOM), unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), []byte{0xFE, 0xFF}},
	{unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), []byte{0xFE, 0xFF}},
	{unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), []byte{0xFF, 0xFE}},
	{unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), []byte{0xFF, 0xFE}},
}

// LookupCharset resolves an IANA charset name or DANMARC2.
func LookupCharset(name string) (Charset, error) {
	if strings.EqualFold(strings.TrimSpace(name), DanMARC2) {
		return Charset{Name: DanMARC2, Encoding: danMARC2{}}, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return Charset{}, fmt.Errorf("unknown encoding '%s'", name)
	}
	if enc == nil {
		return Charset{}, fmt.Errorf("unsupported encoding '%s'", name)
	}
	canonical, err := ianaindex.MIME.Name(enc)
	if err != nil {
		canonical = strings.ToUpper(name)
	}

	c := Charset{Name: canonical, Encoding: enc}
	for _, m := range byteOrderMarks {
		if enc == m.marked {
			c.Encoding, c.BOM = m.unmarked, m.bom
			break
		}
	}
	return c, nil
}

// danMARC2 keeps ASCII as is. Other characters are written as @ followed by four
// hex digits of the UTF-16 code unit, and @ itself as @@.
type danMARC2 struct{}

func (danMARC2) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: danMARC2Encoder{}}
}

func (danMARC2) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: danMARC2Decoder{}}
}

func (danMARC2) String() string {
	return DanMARC2
}

type danMARC2Encoder struct{ transform.NopResetter }

func (danMARC2Encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]
		if c < utf8.RuneSelf {
			out := []byte{c}
			if c == '@' {
				out = []byte("@@")
			}
			if nDst+len(out) > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			nDst += copy(dst[nDst:], out)
			nSrc++
			continue
		}

		if !atEOF && !utf8.FullRune(src[nSrc:]) {
			return nDst, nSrc, transform.ErrShortSrc
		}
		r, size := utf8.DecodeRune(src[nSrc:])
		var out string
		if r > 0xFFFF {
			r1, r2 := utf16Surrogates(r)
			out = fmt.Sprintf("@%04X@%04X", r1, r2)
		} else {
			out = fmt.Sprintf("@%04X", r)
		}
		if nDst+len(out) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], out)
		nSrc += size
	}
	return nDst, nSrc, nil
}

func utf16Surrogates(r rune) (rune, rune) {
	r -= 0x10000
	return 0xD800 + (r>>10)&0x3FF, 0xDC00 + r&0x3FF
}

type danMARC2Decoder struct{ transform.NopResetter }

func (danMARC2Decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]
		if c != '@' {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = c
			nDst++
			nSrc++
			continue
		}

		rest := src[nSrc:]
		if len(rest) < 2 && !atEOF {
			return nDst, nSrc, transform.ErrShortSrc
		}
		if len(rest) >= 2 && rest[1] == '@' {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = '@'
			nDst++
			nSrc += 2
			continue
		}
		if len(rest) < 5 && !atEOF {
			return nDst, nSrc, transform.ErrShortSrc
		}
		r, ok := parseHex4(rest)
		if !ok {
			// a lone @ is kept
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = '@'
			nDst++
			nSrc++
			continue
		}
		consumed := 5
		if r >= 0xD800 && r < 0xDC00 {
			if len(rest) < 10 && !atEOF {
				return nDst, nSrc, transform.ErrShortSrc
			}
			if len(rest) >= 10 && rest[5] == '@' {
				if low, ok := parseHex4(rest[5:]); ok && low >= 0xDC00 && low < 0xE000 {
					r = 0x10000 + (r-0xD800)<<10 + (low - 0xDC00)
					consumed = 10
				}
			}
		}
		if r >= 0xD800 && r < 0xE000 {
			r = utf8.RuneError
		}
		if nDst+utf8.RuneLen(r) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc += consumed
	}
	return nDst, nSrc, nil
}

func parseHex4(b []byte) (rune, bool) {
	if len(b) < 5 || b[0] != '@' {
		return 0, false
	}
	var r rune
	for _, c := range b[1:5] {
		r <<= 4
		switch {
		case c >= '0' && c <= '9':
			r |= rune(c - '0')
		case c >= 'A' && c <= 'F':
			r |= rune(c-'A') + 10
		case c >= 'a' && c <= 'f':
			r |= rune(c-'a') + 10
		default:
			return 0, false
		}
	}
	return r, true
}
