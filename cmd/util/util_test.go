package util

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestEnvName(t *testing.T) {
	require.Equal(t, "RAWREPO_DUMP_WORKERS", EnvName("dump-workers"))
	require.Equal(t, "RAWREPO_LOG_LEVEL", EnvName("log-level"))
}

func TestMustBindFlagAndEnv(t *testing.T) {
	t.Cleanup(viper.Reset)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("dump-workers", 4, "")
	MustBindFlagAndEnv(flags, "dump.workers", "dump-workers")
	require.Equal(t, 4, viper.GetInt("dump.workers"))

	t.Setenv("RAWREPO_DUMP_WORKERS", "9")
	require.Equal(t, 9, viper.GetInt("dump.workers"))

	require.Panics(t, func() { MustBindFlagAndEnv(flags, "dump.mode", "") })
}
