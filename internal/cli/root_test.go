package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "tabengine", cmd.Use)
	assert.Contains(t, cmd.Long, "SQLite")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"init"}, {"run"}, {"status"}, {"test"},
		{"catalog", "import"}, {"catalog", "validate"}, {"catalog", "list"}, {"catalog", "low-stock"}, {"catalog", "set-rate"},
		{"order", "add"}, {"order", "remove"}, {"order", "update"}, {"order", "discount"},
		{"order", "merge"}, {"order", "settle"}, {"order", "show"},
		{"ps", "start"}, {"ps", "switch"}, {"ps", "stop"},
		{"tables", "list"}, {"tables", "set"},
		{"audit", "list"},
		{"reservation", "list"}, {"reservation", "add"}, {"reservation", "status"}, {"reservation", "delete"},
		{"purchase", "list"}, {"purchase", "add"}, {"purchase", "show"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	actorFlag := cmd.PersistentFlags().Lookup("actor")
	require.NotNil(t, actorFlag)
	assert.Equal(t, "cli", actorFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	require.NotNil(t, runCmd.Flags().Lookup("metrics-addr"))
	intervalFlag := runCmd.Flags().Lookup("snapshot-interval")
	require.NotNil(t, intervalFlag)
	assert.Equal(t, "0s", intervalFlag.DefValue)
}

func TestOrderCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	addCmd, _, err := cmd.Find([]string{"order", "add"})
	require.NoError(t, err)

	qtyFlag := addCmd.Flags().Lookup("qty")
	require.NotNil(t, qtyFlag)
	assert.Equal(t, "1", qtyFlag.DefValue)

	settleCmd, _, err := cmd.Find([]string{"order", "settle"})
	require.NoError(t, err)
	methodFlag := settleCmd.Flags().Lookup("method")
	require.NotNil(t, methodFlag)
	assert.Equal(t, "cash", methodFlag.DefValue)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	require.NotNil(t, testCmd.Flags().Lookup("filter"))
}

func TestCommandHelp(t *testing.T) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "tabengine")
	assert.Contains(t, buf.String(), "settle")
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"status", "--format", "yaml", "--db", t.TempDir() + "/x.db"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
