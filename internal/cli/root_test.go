package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "fdsync", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, path := range [][]string{
		{"sync"},
		{"import"},
		{"serve"},
		{"groups", "list"},
		{"groups", "add"},
		{"groups", "remove"},
	} {
		t.Run(path[len(path)-1], func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultConfigPath, cfg.DefValue)

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)
}

func TestSyncCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	syncCmd, _, err := cmd.Find([]string{"sync"})
	require.NoError(t, err)
	require.NotNil(t, syncCmd.Flags().Lookup("dry-run"))
	require.NotNil(t, syncCmd.Flags().Lookup("workers"))

	importCmd, _, err := cmd.Find([]string{"import"})
	require.NoError(t, err)
	assert.Nil(t, importCmd.Flags().Lookup("dry-run"), "import always writes")
}

func TestSync_MissingConfigIsCommandError(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"sync", "--config", "/nonexistent/fdsync.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
