package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataprep/internal/profile"
)

const peopleCSV = "id,name,status,amount\n1,O'Brien,active,$1200\n2,Smith,closed,45.9\n3,Lee,active,\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "dataprep "+Version)
}

func TestDetect(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	code, out, _ := run(t, "detect", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "ascii (confidence 100%)")

	code, out, _ = run(t, "detect", path, "--json")
	require.Equal(t, 0, code)
	var guess map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &guess))
	assert.Equal(t, "ascii", guess["encoding"])
}

func TestDetect_MissingFile(t *testing.T) {
	code, _, errOut := run(t, "detect", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "FILE004")
}

func TestProfile_TextReports(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	code, out, errOut := run(t, "profile", path)
	require.Equal(t, 0, code, errOut)

	lower := strings.ToLower(out)
	for _, s := range []string{"3 rows, 4 columns", "summary statistics", "values per column", "null values per column", "25%"} {
		assert.Contains(t, lower, s)
	}
}

func TestProfile_JSONReport(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	code, out, errOut := run(t, "profile", path, "--report", "nulls", "--json")
	require.Equal(t, 0, code, errOut)

	var report profile.NullReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, profile.ColumnCount{Column: "amount", Count: 1}, report.Columns[3])
}

func TestProfile_Failures(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown report", []string{"profile", path, "--report", "median"}, "VAL007"},
		{"missing file", []string{"profile", filepath.Join(t.TempDir(), "none.csv")}, "FILE004"},
		{"unsupported format", []string{"profile", writeFile(t, "book.xlsx", "x")}, "FILE006"},
		{"empty file", []string{"profile", writeFile(t, "empty.csv", "")}, "FILE005"},
		{"bad delimiter", []string{"profile", path, "-d", "ab"}, "VAL007"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := run(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, tt.code)
		})
	}
}

func TestProfile_DelimiterAndFormat(t *testing.T) {
	path := writeFile(t, "people.txt", "a;b\n1;2\n")

	code, out, errOut := run(t, "profile", path, "-d", ";", "--format", "csv", "--report", "schema")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, strings.ToLower(out), "1 rows, 2 columns")
}

func TestClean_Chain(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	code, out, errOut := run(t, "clean", path,
		"--filter", "status=active",
		"--strip", "name='",
		"--strip", "amount=$",
		"--to-int", "amount",
	)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "id,name,status,amount\n1,OBrien,active,1200\n3,Lee,active,0\n", out)
}

func TestClean_WritesOutputFile(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)
	dest := filepath.Join(t.TempDir(), "out.csv")

	code, out, errOut := run(t, "clean", path, "--filter", "id=1,3", "-o", dest)
	require.Equal(t, 0, code, errOut)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "wrote 2 rows")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "id,name,status,amount\n1,O'Brien,active,$1200\n3,Lee,active,\n", string(data))
}

func TestClean_EmptinessFilter(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	code, out, errOut := run(t, "clean", path, "--non-empty", "amount", "--exclude")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "id,name,status,amount\n3,Lee,active,\n", out)
}

func TestClean_SpecialAndOverlongReports(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	code, _, errOut := run(t, "clean", path, "--special", "--max-length", "name=3", "--max-length", "status=10")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "name: '")
	assert.Contains(t, errOut, "Smith")
	assert.Contains(t, errOut, `no value in "status" exceeds 10 characters`)
}

func TestClean_CoercionFailureWritesNothing(t *testing.T) {
	path := writeFile(t, "amounts.csv", "amount\n\"1,200.50\"\n3\n")
	dest := filepath.Join(t.TempDir(), "out.csv")

	code, _, errOut := run(t, "clean", path, "--to-int", "amount", "-o", dest)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "VAL002")
	assert.NoFileExists(t, dest)
}

func TestClean_FlagErrors(t *testing.T) {
	path := writeFile(t, "people.csv", peopleCSV)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"filter and non-empty", []string{"clean", path, "--filter", "id=1", "--non-empty", "id"}, "non-empty"},
		{"filter without value", []string{"clean", path, "--filter", "status"}, "VAL007"},
		{"strip without characters", []string{"clean", path, "--strip", "name="}, "VAL007"},
		{"bad max length", []string{"clean", path, "--max-length", "name=x"}, "VAL007"},
		{"unknown column", []string{"clean", path, "--to-int", "missing"}, "VAL005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := run(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestGlobals_FromEnvironment(t *testing.T) {
	path := writeFile(t, "people.csv", "a|b\n1|2\n")
	t.Setenv("LOAD_DELIMITER", "|")

	code, out, errOut := run(t, "clean", path)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "a|b\n1|2\n", out)
}
