package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/coursework-engine/internal/brief"
	"github.com/pdiddy/coursework-engine/internal/store"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

var assignmentCmd = &cobra.Command{
	Use:   "assignment",
	Short: "Manage assignment records (create, list)",
	Long: `Assignment manages the persisted assignment records the pipeline
operates on. Creating an assignment captures the brief as an immutable
snapshot; later edits to the brief file do not affect it.`,
}

// --- create subcommand ---

var assignmentCreateCmd = &cobra.Command{
	Use:   "create [brief.yaml]",
	Short: "Create an assignment from a brief file",
	Long: `Create validates a brief file and stores a new draft assignment with
the brief captured as a snapshot. The printed assignment id addresses the
assignment in every other command.`,
	Args: cobra.ExactArgs(1),
	RunE: runAssignmentCreate,
}

func runAssignmentCreate(cmd *cobra.Command, args []string) error {
	snapshot, err := brief.Load(args[0])
	if err != nil {
		return err
	}
	if err := brief.Validate(snapshot); err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	asg, err := st.CreateAssignment(context.Background(), actingUser(), snapshot)
	if err != nil {
		return err
	}

	fmt.Printf("Created assignment %s\n", asg.ID)
	fmt.Printf("  unit:   %s %s\n", snapshot.UnitCode, snapshot.UnitTitle)
	fmt.Printf("  target: %s, %d learning aim(s)\n", snapshot.TargetGrade, len(snapshot.Aims))
	return nil
}

// --- list subcommand ---

var assignmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assignments",
	RunE:  runAssignmentList,
}

func runAssignmentList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	userID := actingUser()
	if all, _ := cmd.Flags().GetBool("all"); all {
		userID = ""
	}

	assignments, err := st.ListAssignments(context.Background(), userID)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(assignments)
	}

	if len(assignments) == 0 {
		fmt.Println("No assignments found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-10s  %-10s  %-8s  %-6s  %s\n",
		"ID", "Status", "Grade", "Tokens", "Blocks", "Created")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for _, asg := range assignments {
		fmt.Fprintf(os.Stdout, "%-36s  %-10s  %-10s  %-8d  %-6d  %s\n",
			asg.ID, asg.Status, gradeOf(st, asg), asg.TotalTokens, asg.BlocksGenerated,
			asg.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(os.Stdout, "\n%d assignment(s)\n", len(assignments))
	return nil
}

// gradeOf looks up an assignment's target grade from its snapshot. List
// output tolerates a snapshot that cannot be read.
func gradeOf(st *store.Store, asg types.Assignment) types.GradeTier {
	snapshot, err := st.GetSnapshot(context.Background(), asg.ID)
	if err != nil {
		return "?"
	}
	return snapshot.TargetGrade
}

func init() {
	assignmentListCmd.Flags().Bool("all", false, "list every user's assignments, not just the acting user's")
	assignmentListCmd.Flags().Bool("json", false, "output assignments as JSON")

	assignmentCmd.AddCommand(assignmentCreateCmd)
	assignmentCmd.AddCommand(assignmentListCmd)

	rootCmd.AddCommand(assignmentCmd)
}
