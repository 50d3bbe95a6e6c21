// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	datastoreEngineFlag = "datastore-engine"
	datastoreEngineConf = "datastore.engine"
	datastoreURIFlag    = "datastore-uri"
	datastoreURIConf    = "datastore.uri"
)

// ConfigPaths are searched in order for a config.yaml.
func ConfigPaths() []string {
	return []string{"/etc/rawrepo", filepath.Join(xdg.ConfigHome, "rawrepo"), "$HOME/.rawrepo", "."}
}

// NewRootCommand enables all children commands to read flags from CLI flags, environment variables prefixed with RAWREPO, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("RAWREPO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	for _, path := range ConfigPaths() {
		viper.AddConfigPath(path)
	}

	viper.SetDefault(datastoreEngineFlag, "")
	viper.SetDefault(datastoreURIFlag, "")
	err := viper.ReadInConfig()
	if err == nil {
		viper.SetDefault(datastoreEngineFlag, viper.Get(datastoreEngineConf))
		viper.SetDefault(datastoreURIFlag, viper.Get(datastoreURIConf))
	}

	return &cobra.Command{
		Use:   "rawrepo",
		Short: "Read, merge and dump bibliographic records from the raw record repository",
		Long: `Read, merge and dump bibliographic records from the raw record repository.

Records are stored per agency. A merged record is the common record overlaid with the
enrichments of the requesting agency; an expanded record also carries the authority
data it points to. Dumps stream every record of an agency in one of several formats.`,
		SilenceUsage: true,
	}
}
