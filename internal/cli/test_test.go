package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: one espresso
now: 2025-01-01T12:00:00Z
setup:
  categories: [Coffee]
  products:
    - {category: Coffee, name: Espresso, price: 250, track_stock: true, stock: 5}
steps:
  - op: add_item
    args: {table: T01, product: Espresso}
assertions:
  - {type: total, table: T01, expect: 250}
  - {type: stock, product: Espresso, expect: 4}
`

const failingScenario = `name: wrong total
setup:
  categories: [Coffee]
  products:
    - {category: Coffee, name: Espresso, price: 250}
steps:
  - op: add_item
    args: {table: T01, product: Espresso}
assertions:
  - {type: total, table: T01, expect: 999}
`

func writeScenario(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func runTestCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	for i, a := range args {
		if a == "--format=json" {
			rootOpts.Format = "json"
			args = append(args[:i:i], args[i+1:]...)
			break
		}
	}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCommand(t, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := runTestCommand(t, t.TempDir(), "--format=json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.Empty(t, resp.Data.Scenarios)
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "espresso.yaml", passingScenario)

	out, err := runTestCommand(t, dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "one espresso (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "espresso.golden"))
	require.NoError(t, err)
	assert.Equal(t, "# one espresso\n"+
		"step add_item product=Espresso table=T01 -> ok\n"+
		"event table_state_changed T01 occupied\n"+
		"event table_total_changed T01 250\n", string(golden))

	out, err = runTestCommand(t, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	// A stale golden file fails the scenario even though its assertions pass.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "espresso.golden"), []byte("# one espresso\n"), 0o644))
	out, err = runTestCommand(t, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandMissingGoldenStillRunsAssertions(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "espresso.yaml", passingScenario)
	writeScenario(t, dir, "wrong.yaml", failingScenario)

	out, err := runTestCommand(t, dir, "--format=json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)

	byName := map[string]ScenarioResult{}
	for _, s := range resp.Data.Scenarios {
		byName[s.Name] = s
	}
	assert.Equal(t, "missing", byName["one espresso"].Golden)
	assert.True(t, byName["one espresso"].Pass)
	require.Len(t, byName["wrong total"].Errors, 1)
	assert.Contains(t, byName["wrong total"].Errors[0], "expected total of T01 999, got 250")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "espresso.yaml", passingScenario)
	writeScenario(t, dir, "wrong.yaml", failingScenario)

	out, err := runTestCommand(t, dir, "--filter", "esp*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\nsteps: []\n")

	out, err := runTestCommand(t, dir)
	require.Error(t, err)
	assert.Contains(t, out, "broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandRepositoryScenarios(t *testing.T) {
	out, err := runTestCommand(t, filepath.Join("..", "..", "testdata", "scenarios"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 failed")
}
