package encoding

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/JonMunkholm/dataprep/internal/table"
)

func TestDetect_ASCII(t *testing.T) {
	path := writeFile(t, "plain.csv", []byte("id,name\n1,Smith\n"))

	label, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, LabelASCII, label)
}

func TestDetect_BOM(t *testing.T) {
	path := writeFile(t, "bom.csv", append([]byte{0xEF, 0xBB, 0xBF}, "id,name\n1,Müller\n"...))

	label, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, LabelUTF8BOM, label)
}

func TestDetect_MissingFile(t *testing.T) {
	_, err := Detect(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, table.ErrNotFound)
}

func TestDetectBytes_Empty(t *testing.T) {
	_, err := DetectBytes(nil)
	assert.ErrorIs(t, err, table.ErrUndetectedEncoding)
}

func TestDetectBytes_NonASCIIReturnsLabel(t *testing.T) {
	g, err := DetectBytes([]byte(strings.Repeat("Grüße aus Köln, schöne Straße. ", 20)))
	require.NoError(t, err)
	assert.NotEmpty(t, g.Label)
	assert.Equal(t, strings.ToLower(g.Label), g.Label)
}

func TestNewReader_SkipsBOM(t *testing.T) {
	r, err := NewReader(strings.NewReader("\xEF\xBB\xBFa,b\n"), "", false)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(got))
}

func TestNewReader_StrictRejectsInvalidUTF8(t *testing.T) {
	r, err := NewReader(strings.NewReader("a,\xff\n"), LabelUTF8, false)
	require.NoError(t, err)
	_, err = io.ReadAll(r)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestNewReader_LenientReplacesInvalidUTF8(t *testing.T) {
	r, err := NewReader(strings.NewReader("a,\xff\n"), LabelUTF8, true)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "a,�\n", string(got))
}

func TestNewReader_Latin1(t *testing.T) {
	r, err := NewReader(strings.NewReader("caf\xe9"), "iso-8859-1", false)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "café", string(got))
}

func TestNewReader_UnknownLabel(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), "klingon-8", false)
	assert.ErrorIs(t, err, table.ErrInvalidArgument)
}

func TestNormalizeLabel(t *testing.T) {
	tests := map[string]string{
		"GB-18030":     "gb18030",
		" UTF-8 ":      "utf-8",
		"IBM424_rtl":   "ibm424",
		"IBM420_ltr":   "ibm420",
		"windows-1252": "windows-1252",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeLabel(in), in)
	}
}

func TestNewReader_GB18030RoundTrip(t *testing.T) {
	const text = "城市,人口\n北京,2189\n上海,2487\n"
	encoded, err := simplifiedchinese.GB18030.NewEncoder().String(text)
	require.NoError(t, err)

	for _, label := range []string{"gb-18030", "GB18030"} {
		r, err := NewReader(strings.NewReader(encoded), label, false)
		require.NoError(t, err, label)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, text, string(got), label)
	}
}

func TestNewReader_IANAFallback(t *testing.T) {
	r, err := NewReader(strings.NewReader("caf\x82"), "ibm437", false)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "café", string(got))
}

func TestNewReader_KnownLabelWithoutDecoder(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), "IBM424_rtl", false)
	assert.ErrorIs(t, err, table.ErrInvalidArgument)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
