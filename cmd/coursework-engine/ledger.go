package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage token quota accounts (balance, credit, entries)",
	Long: `Ledger manages the token quota accounts generation runs debit. Every
balance change is recorded as an audit entry; a run is debited exactly once,
after writing finishes and before the artifact is rendered.`,
}

// --- balance subcommand ---

var ledgerBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the acting user's token balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := openLedger()
		if err != nil {
			return err
		}
		defer led.Close()

		balance, err := led.Balance(context.Background(), actingUser())
		if err != nil {
			return err
		}
		fmt.Printf("%d tokens\n", balance)
		return nil
	},
}

// --- credit subcommand ---

var ledgerCreditCmd = &cobra.Command{
	Use:   "credit [amount]",
	Short: "Add tokens to the acting user's balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("amount must be an integer: %w", err)
		}

		led, err := openLedger()
		if err != nil {
			return err
		}
		defer led.Close()

		note, _ := cmd.Flags().GetString("note")
		ctx := context.Background()
		if err := led.Credit(ctx, actingUser(), amount, note); err != nil {
			return err
		}
		balance, err := led.Balance(ctx, actingUser())
		if err != nil {
			return err
		}
		fmt.Printf("Credited %d tokens, balance now %d\n", amount, balance)
		return nil
	},
}

// --- entries subcommand ---

var ledgerEntriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Show the acting user's audit trail, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := openLedger()
		if err != nil {
			return err
		}
		defer led.Close()

		entries, err := led.Entries(context.Background(), actingUser())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No entries.")
			return nil
		}

		fmt.Fprintf(os.Stdout, "%-20s  %10s  %10s  %s\n", "When", "Delta", "Balance", "Note")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 70))
		for _, e := range entries {
			fmt.Fprintf(os.Stdout, "%-20s  %+10d  %10d  %s\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"), e.Delta, e.Balance, e.Note)
		}
		return nil
	},
}

func init() {
	ledgerCreditCmd.Flags().String("note", "manual credit", "audit note for the credit entry")

	ledgerCmd.AddCommand(ledgerBalanceCmd)
	ledgerCmd.AddCommand(ledgerCreditCmd)
	ledgerCmd.AddCommand(ledgerEntriesCmd)

	rootCmd.AddCommand(ledgerCmd)
}
