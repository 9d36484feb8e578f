package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/postbench/internal/config"
)

func TestNewRootCommand_DeclaresEveryFlag(t *testing.T) {
	cmd := NewRootCommand(&Env{})

	for _, f := range config.Table {
		flag := cmd.Flags().Lookup(f.Long)
		require.NotNil(t, flag, "--%s", f.Long)
		assert.Equal(t, config.Shorthand(config.Table, f), flag.Shorthand, "--%s", f.Long)
	}
}

func TestNewRootCommand_RejectsPositionalArgs(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand(&Env{Stdout: &out, Stderr: &out})
	cmd.SetArgs([]string{"extra"})

	assert.Error(t, cmd.Execute())
}

func TestFormatFor(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand(&Env{Stdout: &out, Stderr: &out})
	require.NoError(t, cmd.ParseFlags([]string{"--format", "json", "-v"}))

	f := formatFor(cmd)
	assert.True(t, f.JSON())
	assert.True(t, f.Verbose)

	plain := NewRootCommand(&Env{Stdout: &out, Stderr: &out})
	assert.False(t, formatFor(plain).JSON())
}

func TestNewLogger_VerboseEnablesDebug(t *testing.T) {
	var out bytes.Buffer

	newLogger(&out, false).Debug("hidden")
	assert.Empty(t, out.String())

	newLogger(&out, true).Debug("shown", "mode", "test")
	assert.Contains(t, out.String(), "msg=shown")
	assert.Contains(t, out.String(), "mode=test")
}
