package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/alchviz/alchviz/catalog"
	"github.com/alchviz/alchviz/layout"
	"github.com/alchviz/alchviz/session"
)

var searchCmd = &cobra.Command{
	Use:   "search <element>",
	Short: "Run a crafting search and stream its progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.String("algorithm", session.AlgorithmBFS, "search algorithm (bfs, dfs, bidirectional)")
	f.String("mode", session.ModeShortest, "search mode (shortest, multiple)")
	f.Int("limit", 5, "max recipes to request in multiple mode")
	_ = viper.BindPFlags(f)

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	target := args[0]

	// Validate the target locally when the catalog is available; searching
	// for a typo otherwise burns a whole backend session.
	if cat, err := catalog.Load(viper.GetString("data-file")); err == nil {
		if !cat.Has(target) {
			return fmt.Errorf("%q is not a known element (catalog has %d); run 'alchviz scrape' to refresh", target, cat.Len())
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("element catalog unusable, skipping target validation", zap.Error(err))
	}

	req := session.Request{
		Target:    target,
		Algorithm: viper.GetString("algorithm"),
		Mode:      viper.GetString("mode"),
		Limit:     viper.GetInt("limit"),
	}

	engine, err := layout.NewEngine(layout.DefaultConfig(), 64)
	if err != nil {
		return err
	}
	controller := session.NewController(viper.GetString("server"), engine, logger)

	s, err := controller.Start(cmd.Context(), req)
	if err != nil {
		return err
	}
	defer s.Close()

	for snap := range s.Updates() {
		switch snap.Status {
		case session.StatusRunning:
			logger.Info("progress",
				zap.String("element", snap.Request.Target),
				zap.Int("nodes", snap.Stats.NodeCount),
				zap.Int("steps", snap.Stats.StepCount),
				zap.Float64("elapsedMs", snap.Stats.ElapsedTimeMs))
		default:
			printResult(cmd, snap)
		}
	}

	final := s.Snapshot()
	if final.Status == session.StatusFailed {
		return fmt.Errorf("search failed: %s", final.Err)
	}
	return nil
}

func printResult(cmd *cobra.Command, snap session.Snapshot) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status: %s\n", snap.Status)

	if snap.Status == session.StatusNoPath {
		fmt.Fprintf(out, "no recipes found for %s\n", snap.Request.Target)
		return
	}
	if snap.Status != session.StatusDone {
		return
	}

	fmt.Fprintf(out, "recipes for %s (%d found, showing #%d):\n",
		snap.Request.Target, len(snap.Trees), snap.ActiveRecipe+1)
	for _, r := range snap.Recipes {
		fmt.Fprintf(out, "  %s = %s\n", r.Result, strings.Join(r.Ingredients, " + "))
	}

	if snap.Bidir != nil {
		fmt.Fprintf(out, "forward: %d, backward: %d, meeting: %s\n",
			len(snap.Bidir.Forward), len(snap.Bidir.Backward),
			strings.Join(snap.Bidir.MeetingPoints(), ", "))
	}
	if snap.Trace != nil {
		fmt.Fprintf(out, "dfs trace: %d visits, %d connections, max depth %d\n",
			len(snap.Trace.Nodes), len(snap.Trace.Connections), snap.Trace.MaxDepth())
	}
	fmt.Fprintf(out, "layout: %d positioned nodes\n", len(snap.Points))
}
