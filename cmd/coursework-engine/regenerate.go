package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/coursework-engine/internal/orchestrate"
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate [assignment-id]",
	Short: "Reset a finished assignment back to draft",
	Long: `Regenerate discards a completed or failed assignment's plan, blocks, and
totals and returns it to draft so generate can run it again. Tokens debited
for previous runs are not refunded. An assignment that is currently
generating cannot be reset.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegenerate,
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	orc := orchestrate.New(st, nil, nil, nil, nil, nil)
	if err := orc.Regenerate(context.Background(), args[0]); err != nil {
		return err
	}

	fmt.Printf("Assignment %s reset to draft\n", args[0])
	return nil
}

func init() {
	rootCmd.AddCommand(regenerateCmd)
}
