package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/internal/build"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.AddCommand(NewVersionCommand())
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "rawrepo version "+build.Version)
	require.Contains(t, out.String(), "commit id "+build.Commit)
}

func TestConfigPaths(t *testing.T) {
	paths := ConfigPaths()
	require.Equal(t, "/etc/rawrepo", paths[0])
	require.Equal(t, "$HOME/.rawrepo", paths[2])
	require.Equal(t, ".", paths[3])
}
