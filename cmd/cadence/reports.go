package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run the period rollover now",
	Long:  "Resets recurring goals whose period has ended and updates streaks. The same pass runs on every start.",
	Args:  cobra.NoArgs,
	RunE:  runRefresh,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics and achievements",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output in JSON format")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, store, tracker, err := openLocal(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := tracker.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(res.Reset) == 0 && len(res.Initialized) == 0 {
		fmt.Fprintln(out, "Nothing to roll over.")
		return nil
	}
	if len(res.Reset) > 0 {
		fmt.Fprintf(out, "Reset %d goal(s): %v\n", len(res.Reset), res.Reset)
	}
	if len(res.Initialized) > 0 {
		fmt.Fprintf(out, "Started periods for %d goal(s): %v\n", len(res.Initialized), res.Initialized)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, store, tracker, err := openLocal(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	summary := tracker.Stats()
	achievements := tracker.Achievements()

	if statsJSON {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"stats":        summary,
			"achievements": achievements,
		})
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintf(w, "Goals\t%d (%d complete, %.0f%%)\n", summary.TotalGoals, summary.CompletedGoals, summary.CompletionRate)
	fmt.Fprintf(w, "Paused / archived\t%d / %d\n", summary.PausedGoals, summary.ArchivedGoals)
	fmt.Fprintf(w, "Completions\t%d\n", summary.TotalCompletions)
	fmt.Fprintf(w, "Day streak\t%d (longest %d)\n", summary.CurrentDayStreak, summary.LongestDayStreak)
	fmt.Fprintf(w, "Best goal streak\t%d\n", summary.BestGoalStreak)
	fmt.Fprintf(w, "Points\t%d available of %d earned\n", summary.AvailablePoints, summary.LifetimePoints)
	fmt.Fprintf(w, "Rewards\t%d redeemed of %d\n", summary.RewardsRedeemed, summary.RewardsTotal)
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())
	w = newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ACHIEVEMENT\tPROGRESS\tUNLOCKED")
	for _, a := range achievements {
		unlocked := "-"
		if a.Unlocked {
			unlocked = "yes"
		}
		fmt.Fprintf(w, "%s\t%d/%d\t%s\n", a.Name, min(a.Value, a.Threshold), a.Threshold, unlocked)
	}
	return w.Flush()
}
