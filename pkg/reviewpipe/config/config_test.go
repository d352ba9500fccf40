package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/internalerr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{configPathEnv, dbPathEnv, logLevelEnv, workersEnv} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "sup-san-reviews.db", cfg.DBPath)
	assert.Equal(t, 1000, cfg.Ingest.BatchSize)
	assert.Equal(t, 500, cfg.Process.BatchSize)
	assert.Equal(t, "messages.json", cfg.Export.Output)
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "reviewpipe.yaml", `
db_path: /tmp/reviews.db
process:
  batch_size: 50
lexicon:
  food: [pizza, pasta]
nlp:
  stopwords: [very, really]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/reviews.db", cfg.DBPath)
	assert.Equal(t, 50, cfg.Process.BatchSize)
	assert.Equal(t, 1, cfg.Process.AnalyzerWorkers, "unset keys keep their default")
	assert.Equal(t, 1000, cfg.Ingest.BatchSize)
	assert.Equal(t, []string{"pizza", "pasta"}, cfg.Lexicon.Food)
	assert.Equal(t, []string{"very", "really"}, cfg.NLP.Stopwords)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "reviewpipe.yaml", "db_path: from-file.db\n")
	t.Setenv(configPathEnv, path)
	t.Setenv(dbPathEnv, "from-env.db")
	t.Setenv(logLevelEnv, "debug")
	t.Setenv(workersEnv, "8")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Process.AnalyzerWorkers)

	t.Setenv(workersEnv, "many")
	_, err = Load("")
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	_, err = Load(writeFile(t, "bad.yaml", "ingest: [\n"))
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)

	_, err = Load(writeFile(t, "zero.yaml", "ingest:\n  batch_size: 0\n"))
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Process.BatchSize = -1
	cfg.Log.Level = "loud"
	cfg.DBPath = " "
	err := cfg.Validate()
	require.ErrorIs(t, err, internalerr.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "process.batch_size")
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "db_path")
}

func TestLoadStoplist(t *testing.T) {
	path := writeFile(t, "stoplist.yaml", "terms:\n  - the\n  - and\n")

	sl, err := LoadStoplist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "and"}, sl.Terms)
}

func TestLoadEntities(t *testing.T) {
	path := writeFile(t, "entities.yaml", `
entities:
  DISH:
    burger: [burger, cheeseburger]
`)

	ents, err := LoadEntities(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"burger", "cheeseburger"}, ents.Entities["DISH"]["burger"])
}
