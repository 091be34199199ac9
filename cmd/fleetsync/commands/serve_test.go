package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe(t *testing.T) {
	cmd := Serve()

	require.NotNil(t, cmd)
	assert.Equal(t, "serve", cmd.Use)
	assert.NotNil(t, cmd.RunE)
}

func TestServe_Flags(t *testing.T) {
	cmd := Serve()

	configFlag := cmd.Flags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "fleetsync.yaml", configFlag.DefValue)

	debugFlag := cmd.Flags().Lookup("debug")
	require.NotNil(t, debugFlag)
	assert.Equal(t, "false", debugFlag.DefValue)
}

func TestServe_MissingConfigFile(t *testing.T) {
	cmd := Serve()
	cmd.SetArgs([]string{"--config", "does-not-exist.yaml"})
	err := cmd.Execute()
	require.Error(t, err)
}
