package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/coursework-engine/internal/orchestrate"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status [assignment-id]",
	Short: "Show an assignment's state and writing progress",
	Long: `Status reports an assignment's lifecycle state, how many blocks of the
planned outline have been written, token totals, and the failure message if
the last run failed. During a run the block count advances as each section
is checkpointed.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	// Status is read-only; wire the orchestrator without provider or renderer.
	orc := orchestrate.New(st, nil, nil, nil, nil, nil)

	info, err := orc.Status(context.Background(), args[0], actingUser())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	printStatus(info)
	return nil
}

func printStatus(info *orchestrate.StatusInfo) {
	asg := info.Assignment

	fmt.Printf("Assignment %s\n", asg.ID)
	fmt.Printf("  status:   %s\n", asg.Status)
	if info.PlanItems > 0 {
		fmt.Printf("  progress: %d/%d blocks\n", info.BlocksDone, info.PlanItems)
	} else {
		fmt.Printf("  progress: not planned yet\n")
	}
	if asg.TotalTokens > 0 {
		fmt.Printf("  tokens:   %d (planner %d)\n", asg.TotalTokens, asg.PlannerTokens)
	}
	if !asg.StartedAt.IsZero() {
		fmt.Printf("  started:  %s\n", asg.StartedAt.Format("2006-01-02 15:04:05"))
	}
	if !asg.FinishedAt.IsZero() {
		fmt.Printf("  finished: %s\n", asg.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	if asg.Status == types.StatusFailed && asg.Error != "" {
		fmt.Printf("  error:    %s\n", asg.Error)
	}
}

func init() {
	statusCmd.Flags().Bool("json", false, "output status as JSON")

	rootCmd.AddCommand(statusCmd)
}
