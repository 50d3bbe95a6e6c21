// Package util provides common utilities for spf13/cobra CLI utilities
// that can be used for various commands within this project.
package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const envPrefix = "RAWREPO"

// MustBindPFlag attempts to bind a specific key to a pflag (as used by cobra) and panics
// if the binding fails with a non-nil error.
func MustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

func MustBindEnv(input ...string) {
	if err := viper.BindEnv(input...); err != nil {
		panic("failed to bind env key: " + err.Error())
	}
}

// EnvName is the environment variable that overrides a flag, e.g.
// RAWREPO_DUMP_WORKERS for --dump-workers.
func EnvName(flag string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// MustBindFlagAndEnv binds the config key to both the named flag and its
// environment variable, as named by EnvName.
func MustBindFlagAndEnv(flags *pflag.FlagSet, key, flag string) {
	MustBindPFlag(key, flags.Lookup(flag))
	MustBindEnv(key, EnvName(flag))
}

// PrepareTempConfigDir points HOME and XDG_CONFIG_HOME at temporary directories and
// returns the $HOME/.rawrepo directory a test can put a config.yaml in.
func PrepareTempConfigDir(t *testing.T) string {
	_, err := os.Stat("/etc/rawrepo/config.yaml")
	require.ErrorIs(t, err, os.ErrNotExist, "Config file at /etc/rawrepo/config.yaml would disturb test result.")

	homedir := t.TempDir()
	t.Setenv("HOME", homedir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(homedir, ".config"))

	confdir := filepath.Join(homedir, ".rawrepo")
	require.NoError(t, os.Mkdir(confdir, 0750))

	t.Cleanup(viper.Reset)

	return confdir
}

func PrepareTempConfigFile(t *testing.T, config string) {
	confdir := PrepareTempConfigDir(t)
	confFile, err := os.Create(filepath.Join(confdir, "config.yaml"))
	require.NoError(t, err)
	_, err = confFile.WriteString(config)
	require.NoError(t, err)
	require.NoError(t, confFile.Close())
}
