package commands_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ken-1511/howard-financial/internal/store"
)

func storeLen(t *testing.T, dir string) int {
	t.Helper()
	s, err := store.Load(filepath.Join(dir, "data", "transactions.csv"))
	require.NoError(t, err)
	return s.Len()
}

func TestIngest_ImportDir(t *testing.T) {
	dir := initProject(t)
	copyFixture(t, "export.csv", filepath.Join(dir, "import", "export.csv"))

	out, err := runHoward(t, "ingest", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Ingested 6 transactions from 1 files (6 in store)")
	assert.Equal(t, 6, storeLen(t, dir))

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "export.csv"))
	require.NoError(t, err, "file should be moved to processed/")
	_, err = os.Stat(filepath.Join(dir, "import", "export.csv"))
	assert.True(t, os.IsNotExist(err))

	msg, _ := headMessage(t, dir)
	assert.Contains(t, msg, "ingest: 6 transactions from 1 files")
}

func TestIngest_ExplicitChaseFile(t *testing.T) {
	dir := initProject(t)
	src := filepath.Join(t.TempDir(), "chase.csv")
	copyFixture(t, "chase_checking.csv", src)

	out, err := runHoward(t, "ingest", "--repo", dir, "--format", "chase", src)
	require.NoError(t, err, out)
	assert.Equal(t, 6, storeLen(t, dir))

	_, err = os.Stat(src)
	assert.NoError(t, err, "explicit files are left in place")
}

func TestIngest_AppendAndReplace(t *testing.T) {
	dir := initProject(t)
	src := filepath.Join(t.TempDir(), "export.csv")
	copyFixture(t, "export.csv", src)

	_, err := runHoward(t, "ingest", "--repo", dir, src)
	require.NoError(t, err)
	_, err = runHoward(t, "ingest", "--repo", dir, src)
	require.NoError(t, err)
	assert.Equal(t, 12, storeLen(t, dir))

	out, err := runHoward(t, "ingest", "--repo", dir, "--replace", src)
	require.NoError(t, err, out)
	assert.Equal(t, 6, storeLen(t, dir))
}

func TestIngest_NothingToImport(t *testing.T) {
	dir := initProject(t)
	out, err := runHoward(t, "ingest", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "No CSV files")
}

func TestIngest_UnknownFormat(t *testing.T) {
	dir := initProject(t)
	out, err := runHoward(t, "ingest", "--repo", dir, "--format", "ofx")
	require.Error(t, err)
	assert.Contains(t, out, `unknown format "ofx"`)
}

func TestIngest_NotAProject(t *testing.T) {
	out, err := runHoward(t, "ingest", "--repo", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, out, "howard init")
}
