package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/coursework-engine/internal/brief"
)

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Validate and inspect assignment brief files",
}

// --- validate subcommand ---

var briefValidateCmd = &cobra.Command{
	Use:   "validate [brief.yaml]",
	Short: "Check a brief file for structural problems",
	Long: `Validate parses a brief file and reports every structural problem at
once: missing codes, duplicate criteria, aims without a pass criterion, and
unknown tiers or grades.`,
	Args: cobra.ExactArgs(1),
	RunE: runBriefValidate,
}

func runBriefValidate(cmd *cobra.Command, args []string) error {
	snapshot, err := brief.Load(args[0])
	if err != nil {
		return err
	}
	if err := brief.Validate(snapshot); err != nil {
		return err
	}
	fmt.Printf("%s is valid\n", args[0])
	return nil
}

// --- show subcommand ---

var briefShowCmd = &cobra.Command{
	Use:   "show [brief.yaml]",
	Short: "Show a brief's structure as the planner sees it",
	Long: `Show prints the normalized brief: unit, target grade, and each learning
aim's criteria. Criteria above the target grade are marked as skipped, since
the planner excludes them from the outline.`,
	Args: cobra.ExactArgs(1),
	RunE: runBriefShow,
}

func runBriefShow(cmd *cobra.Command, args []string) error {
	snapshot, err := brief.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Unit %s: %s (level %d)\n", snapshot.UnitCode, snapshot.UnitTitle, snapshot.Level)
	fmt.Printf("Target grade: %s\n", snapshot.TargetGrade)
	if snapshot.Scenario != "" {
		fmt.Printf("Scenario: %s\n", snapshot.Scenario)
	}
	if len(snapshot.Facts) > 0 {
		fmt.Printf("Facts: %d\n", len(snapshot.Facts))
	}

	for _, aim := range snapshot.Aims {
		fmt.Printf("\nLearning Aim %s: %s\n", aim.Code, aim.Title)
		visible := make(map[string]bool)
		for _, crit := range brief.VisibleCriteria(aim, snapshot.TargetGrade) {
			visible[crit.Code] = true
		}
		for _, crit := range aim.Criteria {
			marker := " "
			if !visible[crit.Code] {
				marker = "-"
			}
			fmt.Printf("  %s %-4s [%s] %s\n", marker, crit.Code, crit.Tier, crit.Description)
		}
	}

	if err := brief.Validate(snapshot); err != nil {
		fmt.Printf("\nProblems:\n%v\n", err)
	}
	return nil
}

func init() {
	briefCmd.AddCommand(briefValidateCmd)
	briefCmd.AddCommand(briefShowCmd)

	rootCmd.AddCommand(briefCmd)
}
