package commands_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ken-1511/howard-financial/internal/querylog"
)

func ingestedProject(t *testing.T) string {
	t.Helper()
	dir := initProject(t)
	src := filepath.Join(t.TempDir(), "export.csv")
	copyFixture(t, "export.csv", src)
	out, err := runHoward(t, "ingest", "--repo", dir, src)
	require.NoError(t, err, out)
	return dir
}

func TestAsk_Formula(t *testing.T) {
	dir := ingestedProject(t)

	out, err := runHoward(t, "ask", "--repo", dir, "how much did I spend eating out")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Σ Amount where Tags~='eating out' = -57.50")
	assert.Contains(t, out, "Need any tweaks")

	entries, err := querylog.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "eating-out", entries[0].Intent)
	assert.Equal(t, "-57.50", entries[0].Value)
	assert.NotEmpty(t, entries[0].QueryID)
}

func TestAsk_Undefined(t *testing.T) {
	dir := initProject(t)
	out, err := runHoward(t, "ask", "--repo", dir, "--no-log", "what portion of my income went to food")
	require.NoError(t, err, out)
	assert.Contains(t, out, "undefined")

	entries, err := querylog.Read(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAsk_BeforeIndex(t *testing.T) {
	dir := ingestedProject(t)

	out, err := runHoward(t, "ask", "--repo", dir, "coffee")
	require.Error(t, err)
	assert.Contains(t, out, "run `howard index` first")
}

func TestIndexAndAsk_Search(t *testing.T) {
	dir := ingestedProject(t)

	out, err := runHoward(t, "index", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Indexed 6 transactions with feature-hash-v1")

	out, err = runHoward(t, "ask", "--repo", dir, "--top-k", "2", "chipotle")
	require.NoError(t, err, out)
	assert.Contains(t, out, "I found these transactions that seem relevant")
	assert.Contains(t, out, "chipotle")
}

func TestAsk_BlankQuery(t *testing.T) {
	dir := initProject(t)

	for _, q := range []string{"", "   "} {
		out, err := runHoward(t, "ask", "--repo", dir, q)
		require.Error(t, err, "query %q", q)
		assert.Contains(t, out, "query cannot be empty")
	}

	entries, err := querylog.Read(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
