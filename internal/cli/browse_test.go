package cli

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptPrompter replays fixed input lines, then reports EOF.
type scriptPrompter struct {
	lines   []string
	history []string
	closed  bool
}

func (s *scriptPrompter) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptPrompter) AppendHistory(item string) { s.history = append(s.history, item) }

func (s *scriptPrompter) Close() error {
	s.closed = true
	return nil
}

func withScript(t *testing.T, lines ...string) *scriptPrompter {
	t.Helper()
	script := &scriptPrompter{lines: lines}
	orig := newPrompter
	newPrompter = func() prompter { return script }
	t.Cleanup(func() { newPrompter = orig })
	return script
}

func TestBrowse_ScriptedSession(t *testing.T) {
	env, mock := mockEnv(t, 30)
	path := filepath.Join(t.TempDir(), "selection.csv")

	script := withScript(t,
		"select 1 2",
		"next",
		"auto 5",
		"selection",
		"save "+path,
		"bogus",
		"",
		"quit",
		"never reached",
	)

	code, out, errOut := run(t, env, "browse", "--rows", "10")
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "Page 1 of 3 (30 artworks, 10 rows per page, 0 selected)")
	assert.Contains(t, out, "Page 2 of 3 (30 artworks, 10 rows per page, 2 selected)")
	assert.Contains(t, out, "selected 5 rows (+3 from 1 pages, satisfied)")
	assert.Contains(t, out, "wrote 5 artworks to "+path)
	assert.Contains(t, out, "error: unknown command: bogus")
	assert.Contains(t, out, "Bye!")

	assert.True(t, script.closed)
	assert.Equal(t, []string{"never reached"}, script.lines)
	assert.NotContains(t, script.history, "")
	assert.Equal(t, []int{1, 2, 2}, mock.RequestedPages())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)

	var ids []string
	for _, rec := range records[1:] {
		ids = append(ids, rec[0])
	}
	assert.Equal(t, []string{"1", "2", "11", "12", "13"}, ids)
}

func TestBrowse_Navigation(t *testing.T) {
	env, mock := mockEnv(t, 25)

	withScript(t,
		"prev",
		"page 3",
		"rows 5",
		"select 99",
		"unselect",
		"reset",
	)

	code, out, errOut := run(t, env, "browse", "--rows", "10")
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "error: already on the first page")
	assert.Contains(t, out, "Page 3 of 3 (25 artworks, 10 rows per page, 0 selected)")
	assert.Contains(t, out, "Page 5 of 5 (25 artworks, 5 rows per page, 0 selected)")
	assert.Contains(t, out, "error: artwork 99 is not on this page")
	assert.Contains(t, out, "error: expected at least one artwork id")
	assert.Contains(t, out, "Bye!")

	assert.Equal(t, []int{1, 3, 5, 1}, mock.RequestedPages())
}

func TestCell(t *testing.T) {
	assert.Equal(t, "Mona  ", cell("Mona", 6))
	assert.Equal(t, "Nig...", cell("Nighthawks", 6))
	assert.Equal(t, "北斎  ", cell("北斎", 6))
}

func TestIDArgs(t *testing.T) {
	ids, err := idArgs([]string{"7", "42"})
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 42}, ids)

	_, err = idArgs([]string{"seven"})
	assert.ErrorContains(t, err, `invalid artwork id "seven"`)
}
