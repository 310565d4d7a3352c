// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/coursework-engine/internal/container"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

const defaultPandocImage = "pandoc/core:latest"

// DocxRenderer produces docx artifacts by piping the markdown fold through
// a pandoc container image. It depends on a container.Runtime (docker or
// podman) injected at construction time.
type DocxRenderer struct {
	runtime   container.Runtime
	image     string
	outputDir string
}

// NewDocxRenderer creates a renderer that uses the given container runtime
// to run pandoc. It verifies that the pandoc image exists locally before
// returning.
func NewDocxRenderer(rt container.Runtime, cfg types.RenderConfig) (*DocxRenderer, error) {
	image := cfg.PandocImage
	if image == "" {
		image = defaultPandocImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("pandoc image not available in %s: %w", rt.Name(), err)
	}

	dir := cfg.OutputDir
	if dir == "" {
		dir = defaultOutputDir
	}
	return &DocxRenderer{runtime: rt, image: image, outputDir: dir}, nil
}

// Render folds the document to markdown, converts it through pandoc, and
// writes outputDir/[assignmentID].docx.
func (r *DocxRenderer) Render(doc *types.Document, assignmentID string) (string, error) {
	md := Markdown(doc)

	var out bytes.Buffer
	args := []string{"-f", "markdown", "-t", "docx", "-o", "-"}
	if err := r.runtime.Run(r.image, args, strings.NewReader(md), &out); err != nil {
		return "", fmt.Errorf("converting %s with pandoc: %w", assignmentID, err)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("pandoc produced empty output for %s", assignmentID)
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(r.outputDir, assignmentID+".docx")
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing docx: %w", err)
	}
	return path, nil
}
