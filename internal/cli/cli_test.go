package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/artic-browser/internal/testutil"
	"github.com/Sternrassler/artic-browser/pkg/artwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, env map[string]string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = Run(context.Background(), strings.NewReader(""), &out, &errOut, append([]string{"artic"}, args...), env)
	return code, out.String(), errOut.String()
}

func mockEnv(t *testing.T, items int) (map[string]string, *testutil.MockArtic) {
	t.Helper()
	mock := testutil.NewMockArtic(items)
	t.Cleanup(mock.Close)
	return map[string]string{"ARTIC_BASE_URL": mock.URL()}, mock
}

func TestRun_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"help"}, {"--help"}} {
		code, out, _ := run(t, nil, args...)
		assert.Equal(t, 0, code)
		assert.Contains(t, out, "Commands:")
		for _, name := range []string{"serve", "browse", "export"} {
			assert.Contains(t, out, name)
		}
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	code, out, errOut := run(t, nil, "paint")
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "unknown command: paint")
	assert.Contains(t, errOut, "Commands:")
}

func TestRun_CommandHelp(t *testing.T) {
	code, out, _ := run(t, nil, "export", "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Usage: artic export --out <file> [flags]")
	assert.Contains(t, out, "--concurrency")
	assert.Contains(t, out, "--config")
}

func TestRun_CommandHelpGroupsConfigFlags(t *testing.T) {
	_, out, _ := run(t, nil, "export", "--help")
	flags := strings.Index(out, "Flags:")
	configFlags := strings.Index(out, "Config flags")
	require.True(t, flags >= 0 && configFlags > flags, out)
	assert.Less(t, strings.Index(out, "--concurrency"), configFlags)
	assert.Greater(t, strings.Index(out, "--redis"), configFlags)

	_, out, _ = run(t, nil, "browse", "--help")
	assert.NotContains(t, out, "\nFlags:")
	assert.Contains(t, out, "Config flags")
	assert.Contains(t, out, "--dedup")
}

func TestRun_FlagChecksPrecedeConfig(t *testing.T) {
	code, _, errOut := run(t, map[string]string{"ARTIC_PAGE_SIZE": "zero"}, "export")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "--out is required")
	assert.NotContains(t, errOut, "ARTIC_PAGE_SIZE")
}

func TestRun_BadFlag(t *testing.T) {
	code, _, errOut := run(t, nil, "serve", "--no-such-flag")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown flag")
}

func TestRun_InvalidConfig(t *testing.T) {
	code, _, errOut := run(t, map[string]string{"ARTIC_PAGE_SIZE": "zero"}, "export", "--out", filepath.Join(t.TempDir(), "x.json"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "ARTIC_PAGE_SIZE")
}

func TestExport_JSON(t *testing.T) {
	env, mock := mockEnv(t, 30)
	path := filepath.Join(t.TempDir(), "out", "artworks.json")

	code, out, errOut := run(t, env, "export", "--out", path, "--start", "2", "--pages", "2", "--rows", "10")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "wrote 20 artworks from 2 pages")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var items []artwork.Artwork
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 20)
	assert.Equal(t, int64(11), items[0].ID)
	assert.Equal(t, int64(30), items[19].ID)

	assert.ElementsMatch(t, []int{2, 3}, mock.RequestedPages())
}

func TestExport_CSVByFlag(t *testing.T) {
	env, _ := mockEnv(t, 5)
	path := filepath.Join(t.TempDir(), "artworks.txt")

	code, _, errOut := run(t, env, "export", "-o", path, "--format", "csv")
	require.Equal(t, 0, code, errOut)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "id,title,"))
}

func TestExport_PartialFailureWritesLoadedPages(t *testing.T) {
	env, mock := mockEnv(t, 50)
	mock.FailPage(2, 404)
	path := filepath.Join(t.TempDir(), "partial.json")

	code, _, errOut := run(t, env, "export", "--out", path, "--pages", "3", "--rows", "10")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "pages [2] missing")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var items []artwork.Artwork
	require.NoError(t, json.Unmarshal(data, &items))
	assert.Len(t, items, 20)
	assert.Equal(t, int64(21), items[10].ID)
}

func TestExport_ArgumentErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing out", []string{"export"}, "--out is required"},
		{"start", []string{"export", "-o", filepath.Join(dir, "a.json"), "--start", "0"}, "--start"},
		{"pages", []string{"export", "-o", filepath.Join(dir, "a.json"), "--pages", "0"}, "--pages"},
		{"format", []string{"export", "-o", filepath.Join(dir, "a.json"), "--format", "xml"}, "format must be json or csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := run(t, nil, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}
