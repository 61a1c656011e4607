// Package encoding guesses the text encoding of input files and wraps
// readers so that non-UTF-8 sources can be parsed as UTF-8.
package encoding

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/saintfish/chardet"

	"github.com/JonMunkholm/dataprep/internal/table"
)

// Well-known labels returned without consulting the statistical detector.
const (
	LabelASCII   = "ascii"
	LabelUTF8    = "utf-8"
	LabelUTF8BOM = "utf-8-sig"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Guess is the detector's best answer for a byte buffer.
type Guess struct {
	Label      string `json:"encoding"`
	Confidence int    `json:"confidence"` // 0-100
	Language   string `json:"language,omitempty"`
}

// Detect reads the file at path and returns the most probable encoding label.
func Detect(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", table.ErrNotFound, path)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	g, err := DetectBytes(data)
	if err != nil {
		return "", err
	}
	return g.Label, nil
}

// DetectBytes guesses the encoding of data.
//
// Pure ASCII and BOM-prefixed UTF-8 are recognised directly; everything else
// is handed to the chardet byte-pattern detector.
func DetectBytes(data []byte) (Guess, error) {
	if len(data) == 0 {
		return Guess{}, fmt.Errorf("%w: no bytes to inspect", table.ErrUndetectedEncoding)
	}
	if bytes.HasPrefix(data, utf8BOM) && utf8.Valid(data[len(utf8BOM):]) {
		return Guess{Label: LabelUTF8BOM, Confidence: 100}, nil
	}
	if isASCII(data) {
		return Guess{Label: LabelASCII, Confidence: 100}, nil
	}

	res, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || res == nil {
		return Guess{}, fmt.Errorf("%w: %v", table.ErrUndetectedEncoding, err)
	}
	return Guess{
		Label:      NormalizeLabel(res.Charset),
		Confidence: res.Confidence,
		Language:   res.Language,
	}, nil
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}
