// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/galleria-app/galleria/internal/build"
)

// NewRootCommand enables all children commands to read flags from CLI
// flags, environment variables prefixed with GALLERIA, or config.yaml
// (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("GALLERIA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/galleria", "$HOME/.galleria", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	_ = viper.ReadInConfig()

	return &cobra.Command{
		Use:     "galleria",
		Short:   "A listing, mutation and membership engine for community content galleries",
		Long:    `Galleria serves paged, filterable listings of user-generated content with per-caller favorite and rating state, owned collections, and guarded tournament registration, backed by SQLite or PostgreSQL.`,
		Version: build.Version,
	}
}
