package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/dataprep/internal/table"
)

// ErrInvalidUTF8 is reported by strict UTF-8 readers on the first bad byte.
var ErrInvalidUTF8 = xencoding.ErrInvalidUTF8

// SkipBOM drops a leading UTF-8 byte order mark, as written by Excel and
// other Windows tools.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// NewReader returns a reader yielding UTF-8 text decoded from r.
//
// An empty label, or any UTF-8/ASCII label, reads r as UTF-8 after skipping
// a BOM. Strict readers fail with ErrInvalidUTF8 on malformed input; lenient
// readers substitute U+FFFD. Other labels are resolved through the WHATWG
// encoding index (e.g. "iso-8859-1", "windows-1252", "shift_jis") and then
// the IANA registry.
func NewReader(r io.Reader, label string, lenient bool) (io.Reader, error) {
	name := NormalizeLabel(label)
	switch name {
	case "", LabelUTF8, "utf8", LabelUTF8BOM, LabelASCII:
		r = SkipBOM(r)
		if lenient {
			return transform.NewReader(r, unicode.UTF8.NewDecoder()), nil
		}
		return transform.NewReader(r, xencoding.UTF8Validator), nil
	}

	enc, err := lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown encoding %q", table.ErrInvalidArgument, label)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// labelAliases maps detector spellings to names the indexes know.
var labelAliases = map[string]string{
	"gb-18030":   "gb18030",
	"ibm420_ltr": "ibm420",
	"ibm420_rtl": "ibm420",
	"ibm424_ltr": "ibm424",
	"ibm424_rtl": "ibm424",
}

// NormalizeLabel lowercases label and rewrites chardet's nonstandard names.
func NormalizeLabel(label string) string {
	name := strings.ToLower(strings.TrimSpace(label))
	if alias, ok := labelAliases[name]; ok {
		return alias
	}
	return name
}

func lookup(name string) (xencoding.Encoding, error) {
	switch name {
	case "utf-32be":
		return utf32.UTF32(utf32.BigEndian, utf32.UseBOM), nil
	case "utf-32le":
		return utf32.UTF32(utf32.LittleEndian, utf32.UseBOM), nil
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	// The IANA index knows names it has no decoder for and returns nil.
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("no decoder for %q", name)
	}
	return enc, nil
}
