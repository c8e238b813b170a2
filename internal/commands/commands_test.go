package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/commands"
	"ledger/internal/config"
	"ledger/internal/core"
)

// useBolt points the CLI at a fresh bolt file for the test.
func useBolt(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.bolt")
	t.Setenv(config.FileEnvVar, "")
	t.Setenv("DATA_BACKEND", "bolt")
	t.Setenv("BOLT_DB_PATH", path)
	t.Setenv("AMQP_URL", "")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("CHART_WINDOW_DAYS", "")
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := commands.NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAddAndList(t *testing.T) {
	useBolt(t)

	out, err := run(t, "add", "--title", "Dinner", "--amount", "12,00", "--date", "2025-06-05T20:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "Added ")
	assert.Contains(t, out, "Dinner  12.00")

	_, err = run(t, "add", "--title", "Coffee", "--amount", "3.75", "--date", "2025-06-10")
	require.NoError(t, err)

	out, err = run(t, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "DATE"))
	assert.Contains(t, lines[1], "Coffee")
	assert.Contains(t, lines[1], "3.75")
	assert.Contains(t, lines[2], "Dinner")

	out, err = run(t, "list", "--asc")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines[1], "Dinner")
	assert.Contains(t, lines[2], "Coffee")
}

func TestListEmpty(t *testing.T) {
	useBolt(t)
	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "No expenses recorded.\n", out)
}

func TestAddRejectsBadInput(t *testing.T) {
	useBolt(t)

	_, err := run(t, "add", "--title", "x", "--amount", "lots")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = run(t, "add", "--title", "  ", "--amount", "1")
	assert.ErrorIs(t, err, core.ErrEmptyTitle)

	_, err = run(t, "add", "--title", "x", "--amount", "1", "--date", "tomorrow")
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	_, err = run(t, "add", "--title", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")

	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "No expenses recorded.\n", out)
}

func TestChart(t *testing.T) {
	useBolt(t)
	_, err := run(t, "add", "--title", "Coffee", "--amount", "3.75", "--date", "2025-06-10T08:00:00Z")
	require.NoError(t, err)
	_, err = run(t, "add", "--title", "Dinner", "--amount", "12.00", "--date", "2025-06-05T20:00:00Z")
	require.NoError(t, err)

	out, err := run(t, "chart", "--now", "2025-06-10T12:00:00Z")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 7)

	assert.True(t, strings.HasPrefix(lines[0], "2025-06-04"))
	assert.Contains(t, lines[0], "0.00")
	assert.NotContains(t, lines[0], "#")
	assert.True(t, strings.HasPrefix(lines[1], "2025-06-05"))
	assert.Contains(t, lines[1], "12.00 "+strings.Repeat("#", 40))
	assert.True(t, strings.HasPrefix(lines[6], "2025-06-10"))
	assert.True(t, strings.HasSuffix(lines[6], "3.75 "+strings.Repeat("#", 13)))

	out, err = run(t, "chart", "--now", "2025-06-10T12:00:00Z", "--days", "2")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 2)
}

func TestChartWindowFromConfig(t *testing.T) {
	useBolt(t)
	t.Setenv("CHART_WINDOW_DAYS", "3")

	out, err := run(t, "chart", "--now", "2025-06-10T12:00:00Z")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 3)
}

func TestChartRejectsBadArguments(t *testing.T) {
	useBolt(t)

	_, err := run(t, "chart", "--days", "0")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = run(t, "chart", "--now", "noon")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestSeedOnlyOnce(t *testing.T) {
	useBolt(t)

	out, err := run(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded ")
	assert.Contains(t, out, "Coffee  3.75")

	out, err = run(t, "seed")
	require.NoError(t, err)
	assert.Equal(t, "Ledger not empty, nothing seeded.\n", out)

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestConfigFlag(t *testing.T) {
	useBolt(t)
	t.Setenv("DATA_BACKEND", "")
	t.Setenv("BOLT_DB_PATH", "")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ledger.yaml")
	boltPath := filepath.Join(dir, "from-file.bolt")
	require.NoError(t, os.WriteFile(cfgPath, []byte("data_backend: bolt\nbolt_db_path: "+boltPath+"\n"), 0o600))

	_, err := run(t, "--config", cfgPath, "add", "--title", "Tea", "--amount", "2")
	require.NoError(t, err)

	_, err = os.Stat(boltPath)
	assert.NoError(t, err, "the YAML file must select the bolt path")
}

func TestInvalidConfig(t *testing.T) {
	useBolt(t)
	t.Setenv("LOG_FORMAT", "xml")

	_, err := run(t, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}
