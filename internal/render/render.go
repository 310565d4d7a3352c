// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns assembled documents into files with pluggable
// backends. Markdown is the native format; docx is produced by piping the
// markdown through a pandoc container image.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/coursework-engine/internal/container"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

const defaultOutputDir = "output/documents"

// Renderer writes one document to disk and returns the artifact path.
// Different backends (markdown file, pandoc docx) implement this interface.
type Renderer interface {
	Render(doc *types.Document, assignmentID string) (string, error)
}

// New builds the renderer for the configured format. The docx format needs
// a container runtime with the pandoc image available.
func New(cfg types.RenderConfig) (Renderer, error) {
	switch cfg.Format {
	case types.RenderMarkdown, "":
		return NewMarkdownRenderer(cfg), nil
	case types.RenderDocx:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, fmt.Errorf("docx rendering: %w", err)
		}
		return NewDocxRenderer(rt, cfg)
	default:
		return nil, fmt.Errorf("unknown render format %q", cfg.Format)
	}
}

// MarkdownRenderer writes the document's markdown fold to
// outputDir/[assignmentID].md.
type MarkdownRenderer struct {
	outputDir string
}

// NewMarkdownRenderer creates a markdown renderer.
func NewMarkdownRenderer(cfg types.RenderConfig) *MarkdownRenderer {
	dir := cfg.OutputDir
	if dir == "" {
		dir = defaultOutputDir
	}
	return &MarkdownRenderer{outputDir: dir}
}

// Render writes the markdown artifact and returns its path.
func (r *MarkdownRenderer) Render(doc *types.Document, assignmentID string) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(r.outputDir, assignmentID+".md")
	if err := os.WriteFile(path, []byte(Markdown(doc)), 0o644); err != nil {
		return "", fmt.Errorf("writing markdown: %w", err)
	}
	return path, nil
}

// Markdown folds a document into markdown text. The fold is deterministic:
// the same document always yields byte-identical output.
func Markdown(doc *types.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", doc.Title)

	for _, section := range doc.Sections {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s\n", strings.Repeat("#", section.Level+1), section.Heading)

		if section.Body != "" {
			b.WriteString("\n")
			b.WriteString(section.Body)
			b.WriteString("\n")
		}
		if section.Table != nil {
			writeTable(&b, section.Table)
		}
		if section.Figure != nil {
			fmt.Fprintf(&b, "\n*Figure %d: %s*\n", section.Figure.Number, section.Figure.Caption)
		}
		for _, ref := range section.References {
			fmt.Fprintf(&b, "\n%d. %s\n", ref.Number, formatReference(ref))
		}
	}
	return b.String()
}

// writeTable emits a captioned pipe table.
func writeTable(b *strings.Builder, table *types.DocumentTable) {
	fmt.Fprintf(b, "\nTable %d: %s\n\n", table.Number, table.Title)

	writeRow(b, table.Columns)
	separators := make([]string, len(table.Columns))
	for i := range separators {
		separators[i] = "---"
	}
	writeRow(b, separators)
	for _, row := range table.Rows {
		writeRow(b, row)
	}
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, cell := range cells {
		b.WriteString(" ")
		b.WriteString(strings.ReplaceAll(cell, "|", "\\|"))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

// formatReference prints one citation in a Harvard-like shape.
func formatReference(ref types.DocumentReference) string {
	var b strings.Builder
	if ref.Authors != "" {
		b.WriteString(ref.Authors)
		b.WriteString(" ")
	}
	if ref.Year > 0 {
		fmt.Fprintf(&b, "(%d) ", ref.Year)
	}
	fmt.Fprintf(&b, "*%s*.", ref.Title)
	if ref.Publisher != "" {
		fmt.Fprintf(&b, " %s.", ref.Publisher)
	}
	return b.String()
}
