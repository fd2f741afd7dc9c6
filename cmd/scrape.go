package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alchviz/alchviz/catalog"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Refresh the element catalog from the wiki",
	RunE: func(*cobra.Command, []string) error {
		return catalog.Scrape(viper.GetString("data-file"), logger)
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}
