package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/coursework-engine/internal/orchestrate"
	"github.com/pdiddy/coursework-engine/internal/render"
)

var contentCmd = &cobra.Command{
	Use:   "content [assignment-id]",
	Short: "Show an assignment's generated content",
	Long: `Content prints the assignment's generated material. The markdown format
assembles the blocks into the final document; json and yaml expose the raw
plan and blocks as persisted. A failed run's partial progress is shown as
far as writing got, so a failure can be inspected before regenerating.`,
	Args: cobra.ExactArgs(1),
	RunE: runContent,
}

func runContent(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	orc := orchestrate.New(st, nil, nil, nil, nil, nil)
	ctx := context.Background()

	format, _ := cmd.Flags().GetString("format")
	var data []byte
	switch format {
	case "markdown", "md", "":
		doc, err := orc.Document(ctx, args[0], actingUser())
		if err != nil {
			return err
		}
		data = []byte(render.Markdown(doc))
	case "json":
		view, err := orc.Content(ctx, args[0], actingUser())
		if err != nil {
			return err
		}
		data, err = json.MarshalIndent(view, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
	case "yaml":
		view, err := orc.Content(ctx, args[0], actingUser())
		if err != nil {
			return err
		}
		data, err = yaml.Marshal(view)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q: use markdown, json, or yaml", format)
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", output)
		return nil
	}

	_, err = os.Stdout.Write(data)
	return err
}

func init() {
	contentCmd.Flags().String("format", "markdown", "output format: markdown, json, or yaml")
	contentCmd.Flags().String("output", "", "write to a file instead of stdout")

	rootCmd.AddCommand(contentCmd)
}
