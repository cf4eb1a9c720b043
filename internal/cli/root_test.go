package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/paraprep/internal/core"
	_ "github.com/JonMunkholm/paraprep/internal/prepare/recipes"
)

const rawHeader = "type,year,country,host,start,end,disabilities_included,countries,events,sports,participants_m,participants_f,participants,highlights,URL"

// writeDataDir writes a 33-row raw table and the NPC reference table into a
// temp data directory. badDate replaces the start date of row 5.
func writeDataDir(t *testing.T, badDate string) string {
	t.Helper()
	dir := t.TempDir()

	var b strings.Builder
	b.WriteString(rawHeader + "\n")
	for i := 0; i < 33; i++ {
		typ := "winter"
		if i%2 == 0 {
			typ = "Summer "
		}
		start := "01/09/2000"
		if i == 5 && badDate != "" {
			start = badDate
		}
		fmt.Fprintf(&b, "%s,%d,UK,City,%s,12/09/2000,various,10,20,5,30,40,70,notes,http://example.org/%d\n",
			typ, 1960+i, start, i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paralympics_raw.csv"), []byte(b.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "npc_codes.csv"),
		[]byte("Code,Name,Region\nGBR,Great Britain,Europe\nFRA,France,Europe\n"), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "paraprep v"+Version)
}

func TestHelpCommand(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"prepare", "recipes", "describe", "missing", "categories", "serve", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestRecipesCommand(t *testing.T) {
	out, err := execute(t, "recipes", "--format", "csv", "--data-dir", "in")
	require.NoError(t, err)
	assert.Contains(t, out, "paralympics")
	assert.Contains(t, out, filepath.Join("in", "paralympics_raw.csv"))
}

func TestPrepareCommand(t *testing.T) {
	dir := writeDataDir(t, "")

	out, err := execute(t, "prepare", "--data-dir", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Prepared paralympics: 30 of 33 rows kept")
	assert.Contains(t, out, "wrote csv:")

	body, err := os.ReadFile(filepath.Join(dir, "paralympics_prepared.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 31)
	assert.Equal(t,
		"type,year,country,host,start,end,duration,countries,events,sports,participants_m,participants_f,participants,country_code",
		lines[0])
	// Row 1 of the raw table is the first kept row.
	assert.Equal(t, "winter,1961,Great Britain,City,2000-09-01,2000-09-12,11,10,20,5,30,40,70,GBR", lines[1])
	assert.Equal(t, "summer,1962,Great Britain,City,2000-09-01,2000-09-12,11,10,20,5,30,40,70,GBR", lines[2])
}

func TestPrepareCommand_SQLite(t *testing.T) {
	dir := writeDataDir(t, "")
	db := filepath.Join(dir, "paraprep.db")

	out, err := execute(t, "prepare", "--data-dir", dir, "--sqlite", db, "--table", "editions", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote sqlite:editions")
	assert.FileExists(t, db)
}

func TestPrepareCommand_DatabaseFailureKeepsCSV(t *testing.T) {
	dir := writeDataDir(t, "")
	out := filepath.Join(dir, "paralympics_prepared.csv")
	require.NoError(t, os.WriteFile(out, []byte("previous\n"), 0o644))

	// The SQLite file's directory does not exist, so the first write fails.
	db := filepath.Join(dir, "missing", "paraprep.db")
	_, err := execute(t, "prepare", "--data-dir", dir, "--sqlite", db, "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist: sqlite:")

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "previous\n", string(body))
}

func TestPrepareCommand_UnknownType(t *testing.T) {
	dir := writeDataDir(t, "")
	raw := filepath.Join(dir, "paralympics_raw.csv")
	body, err := os.ReadFile(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(raw, []byte(strings.Replace(string(body), "winter,1961", "Winter,1961", 1)), 0o644))

	out, err := execute(t, "prepare", "--data-dir", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Prepared paralympics: 30 of 33 rows kept")
	assert.Contains(t, out, "category values without a rewrite: Winter")
}

func TestPrepareCommand_BadDate(t *testing.T) {
	dir := writeDataDir(t, "2000-09-01")

	_, err := execute(t, "prepare", "--data-dir", dir, "--log-level", "error")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrParse)
	assert.Equal(t, "PARSE001", core.MapError(err).Code)
	assert.NoFileExists(t, filepath.Join(dir, "paralympics_prepared.csv"))
}

func TestPrepareCommand_UnknownRecipe(t *testing.T) {
	_, err := execute(t, "prepare", "--recipe", "nope", "--data-dir", t.TempDir(), "--log-level", "error")
	require.Error(t, err)
	assert.Equal(t, "RCP001", core.MapError(err).Code)
}

func TestDescribeCommand(t *testing.T) {
	dir := writeDataDir(t, "")

	out, err := execute(t, "describe", filepath.Join(dir, "paralympics_raw.csv"), "--format", "markdown", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "participants")
	assert.Contains(t, out, "|")
}

func TestCategoriesCommand(t *testing.T) {
	dir := writeDataDir(t, "")

	out, err := execute(t, "categories", filepath.Join(dir, "paralympics_raw.csv"), "type", "--format", "json", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, `"Summer "`)
	assert.Contains(t, out, `"winter"`)
}

func TestInvalidConfig(t *testing.T) {
	_, err := execute(t, "recipes", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}
