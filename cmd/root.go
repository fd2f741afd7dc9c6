// Package cmd wires the alchviz command line: a client for the crafting
// search backend that streams progress and renders result summaries.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/alchviz/alchviz/catalog"
	"github.com/alchviz/alchviz/logging"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:           "alchviz",
	Short:         "Visualization client for the element-crafting search backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		l, err := logging.New(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the CLI and returns its exit error, if any.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("server", "ws://localhost:8080/ws", "websocket URL of the search backend")
	pf.String("data-file", catalog.DefaultDataFile, "path to the scraped element catalog")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	viper.SetEnvPrefix("ALCHVIZ")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlags(pf)
}
