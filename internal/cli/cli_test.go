package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-econ/internal/testutil"
	"github.com/pgEdge/pgedge-econ/internal/views"
	_ "github.com/pgEdge/pgedge-econ/internal/views/catalog"
	"github.com/pgEdge/pgedge-econ/pkg/version"
)

// execute runs the root command with args and returns its output. Flag
// values are reset first since commands are package level.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func sqliteArgs(t *testing.T) []string {
	path := filepath.Join(t.TempDir(), "econ.db")
	return []string{"--driver", "sqlite", "--connection", path}
}

func with(base []string, args ...string) []string {
	return append(append([]string{}, base...), args...)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Short())
}

func TestInitLoadRunView(t *testing.T) {
	conn := sqliteArgs(t)

	_, err := execute(t, with(conn, "init")...)
	require.NoError(t, err)

	_, err = execute(t, with(conn, "load", "--data-dir", testutil.CopyFixtures(t))...)
	require.NoError(t, err)

	out, err := execute(t, with(conn, "views", "run", "state_sales_ranking",
		"--year", "2022", "--format", "csv")...)
	require.NoError(t, err)
	assert.Contains(t, out, "California")
	assert.Contains(t, out, "Texas")
	assert.NotContains(t, out, "Florida")

	out, err = execute(t, with(conn, "views", "run", "summary")...)
	require.NoError(t, err)
	assert.Contains(t, out, "states")
	assert.Contains(t, out, "rows)")
}

func TestInitTwiceAndDropExisting(t *testing.T) {
	conn := sqliteArgs(t)

	_, err := execute(t, with(conn, "init")...)
	require.NoError(t, err)
	_, err = execute(t, with(conn, "init")...)
	require.NoError(t, err)
	_, err = execute(t, with(conn, "init", "--drop-existing")...)
	require.NoError(t, err)
}

func TestLoadRequiresInit(t *testing.T) {
	conn := sqliteArgs(t)

	_, err := execute(t, with(conn, "load", "--data-dir", testutil.CopyFixtures(t))...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not been initialized")
}

func TestLoadRejectsReloadMode(t *testing.T) {
	conn := sqliteArgs(t)

	_, err := execute(t, with(conn, "load", "--data-dir", t.TempDir(),
		"--reload-mode", "append")...)
	require.Error(t, err)
}

func TestViewsRunErrors(t *testing.T) {
	conn := sqliteArgs(t)

	_, err := execute(t, with(conn, "views", "run", "no_such_view")...)
	require.ErrorIs(t, err, views.ErrUnknownView)

	_, err = execute(t, with(conn, "init")...)
	require.NoError(t, err)

	_, err = execute(t, with(conn, "views", "run", "food_price_trend")...)
	require.ErrorIs(t, err, views.ErrInvalidFilter)

	_, err = execute(t, with(conn, "views", "run", "summary", "--month", "13")...)
	require.ErrorIs(t, err, views.ErrInvalidFilter)
}

func TestViewsList(t *testing.T) {
	out, err := execute(t, "views", "list")
	require.NoError(t, err)
	for _, name := range views.List() {
		assert.Contains(t, out, name)
	}
}

func TestSample(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	out, err := execute(t, "sample", "--out", dir, "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 12 files")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 12)
}
