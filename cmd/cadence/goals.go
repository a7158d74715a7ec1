package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/cadence/internal/service"
	"github.com/hyperengineering/cadence/internal/types"
)

var (
	goalsAll  bool
	goalsJSON bool
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "List goals",
	Long:  "List goals in display order. Archived goals are hidden unless --all is set.",
	Args:  cobra.NoArgs,
	RunE:  runGoals,
}

func init() {
	goalsCmd.Flags().BoolVar(&goalsAll, "all", false, "Include archived goals")
	goalsCmd.Flags().BoolVar(&goalsJSON, "json", false, "Output in JSON format")
}

func runGoals(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, store, tracker, err := openLocal(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	goals := tracker.Goals(service.GoalFilter{IncludeArchived: goalsAll})

	if goalsJSON {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"goals": goals,
			"total": len(goals),
		})
	}

	if len(goals) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No goals found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tTITLE\tPROGRESS\tPERIOD\tSTREAK\tSTATUS")
	for _, g := range goals {
		blocked := false
		if st, err := tracker.GoalStatus(g.ID); err == nil {
			blocked = st.Blocked
		}
		title := g.Title
		if g.HasParent() {
			title = "  " + title
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			g.ID,
			title,
			formatProgress(g),
			g.Period,
			g.CurrentStreak,
			goalState(g, blocked),
		)
	}
	return w.Flush()
}

func formatProgress(g types.Goal) string {
	if g.IsUltimate {
		return fmt.Sprintf("%.0f%%", g.Progress)
	}
	unit := g.Unit
	if unit != "" {
		unit = " " + unit
	}
	return fmt.Sprintf("%g/%g%s (%.0f%%)", g.Current, g.Target, unit, g.Progress)
}

// goalState names the single state shown in the STATUS column. Archived
// wins over paused, paused over complete.
func goalState(g types.Goal, blocked bool) string {
	switch {
	case g.IsArchived:
		return "archived"
	case g.IsPaused:
		return "paused"
	case g.IsComplete:
		return "complete"
	case blocked:
		return "blocked"
	default:
		return "active"
	}
}
