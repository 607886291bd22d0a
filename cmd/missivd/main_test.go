package main

import (
	"errors"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-p", "9000", "--db", "/tmp/m.db", "--log-level=debug"})
	require.NoError(t, err)
	require.Equal(t, 9000, opts.port)
	require.Equal(t, "/tmp/m.db", opts.dbPath)
	require.Equal(t, "debug", opts.logLevel)
	require.Equal(t, ".env", opts.envFile)

	_, err = parseFlags([]string{"--help"})
	require.True(t, errors.Is(err, pflag.ErrHelp))

	_, err = parseFlags([]string{"--port", "nope"})
	require.Error(t, err)
}

func TestOverrideKeepsConfigWhenFlagEmpty(t *testing.T) {
	level := "info"
	override(&level, "")
	require.Equal(t, "info", level)
	override(&level, "warn")
	require.Equal(t, "warn", level)
}
