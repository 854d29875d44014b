package main

import (
	"bytes"
	"testing"

	"github.com/m3rciful/archbot/core/buildinfo"

	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	require.Equal(t, buildinfo.String()+"\n", out.String())
}

func TestRootRejectsArgs(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"unexpected"})
	require.Error(t, root.Execute())
}
