package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/internalerr"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, dbPath, logLevel, outputPath = "", "", "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	t.Setenv("REVIEWPIPE_CONFIG", "")
	t.Setenv("REVIEWPIPE_DB", "")
	t.Setenv("REVIEWPIPE_LOG_LEVEL", "")
	t.Setenv("REVIEWPIPE_ANALYZER_WORKERS", "")

	dir := t.TempDir()
	db := filepath.Join(dir, "reviews.db")
	csvPath := filepath.Join(dir, "reviews.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"timestamp,uuid,message\n"+
			"2024-05-01T10:00:00Z,a,Lovely cheese\n"+
			"2024-05-02T10:00:00Z,b,The waiter was slow\n"), 0o644))

	_, err := execute(t, "--db", db, "--log-level", "error", "ingest", csvPath)
	require.NoError(t, err)

	_, err = execute(t, "--db", db, "--log-level", "error", "process")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "--log-level", "error", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "classified: 2")
	assert.Contains(t, out, "pending:    0")
	assert.Regexp(t, `lemmas:\s+[1-9]\d* groups, [1-9]\d* forms`, out)

	outFile := filepath.Join(dir, "messages.json")
	out, err = execute(t, "--db", db, "--log-level", "error", "export", "2024-05-02", "--output", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 1 records")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id": "b"`)
	assert.Contains(t, string(data), `"category": "SERVICE"`)
}

func TestCommandErrors(t *testing.T) {
	t.Setenv("REVIEWPIPE_CONFIG", "")
	dir := t.TempDir()
	db := filepath.Join(dir, "reviews.db")

	_, err := execute(t, "--db", db, "--log-level", "error", "ingest", filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
	_, statErr := os.Stat(db)
	assert.True(t, os.IsNotExist(statErr), "store must not be created for a missing input")

	// a path under a regular file fails with ENOTDIR, not a missing file
	notDir := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(notDir, []byte("x"), 0o644))
	_, err = execute(t, "--db", db, "--log-level", "error", "ingest", filepath.Join(notDir, "reviews.csv"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, internalerr.ErrNotFound)
	assert.Contains(t, err.Error(), "stat input")

	_, err = execute(t, "--db", db, "--log-level", "error", "export", "01/02/2024")
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)

	_, err = execute(t, "--db", db, "export")
	assert.Error(t, err)

	_, err = execute(t, "--db", db, "--log-level", "shouty", "status")
	assert.Error(t, err)
}
