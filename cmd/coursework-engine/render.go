package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/coursework-engine/internal/orchestrate"
	"github.com/pdiddy/coursework-engine/internal/render"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

var renderCmd = &cobra.Command{
	Use:   "render [assignment-id]",
	Short: "Re-render an assignment's document to an artifact file",
	Long: `Render assembles the assignment's persisted blocks and writes the
artifact again, without re-running generation. Use it to produce a docx
from an assignment originally rendered as Markdown, or to recreate a
deleted artifact. Docx output pipes the document through a pandoc container
image and needs docker or podman on the host.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	orc := orchestrate.New(st, nil, nil, nil, nil, nil)
	doc, err := orc.Document(context.Background(), args[0], actingUser())
	if err != nil {
		return err
	}

	cfg := pipelineConfig().Render
	if format, _ := cmd.Flags().GetString("format"); format != "" {
		cfg.Format = types.RenderFormat(format)
	}
	if outputDir, _ := cmd.Flags().GetString("output-dir"); outputDir != "" {
		cfg.OutputDir = outputDir
	}

	renderer, err := render.New(cfg)
	if err != nil {
		return err
	}

	path, err := renderer.Render(doc, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Rendered %s\n", path)
	return nil
}

func init() {
	renderCmd.Flags().String("format", "", "artifact format: markdown or docx (default from config)")
	renderCmd.Flags().String("output-dir", "", "directory for the artifact (default from config)")

	rootCmd.AddCommand(renderCmd)
}
