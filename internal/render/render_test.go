// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/coursework-engine/pkg/types"
)

func testDoc() *types.Document {
	return &types.Document{
		Title: "Retail Business Operations",
		Sections: []types.DocumentSection{
			{Heading: "Introduction", Level: 1, Body: "The report begins."},
			{
				Heading: "P1: Explain the features", Level: 2, Body: "Criterion prose.",
				Table:  &types.DocumentTable{Number: 1, Title: "Features", Columns: []string{"Item", "Detail"}, Rows: [][]string{{"Staff", "45"}}},
				Figure: &types.DocumentFigure{Number: 1, Caption: "Store layout"},
			},
			{
				Heading: "References", Level: 1,
				References: []types.DocumentReference{
					{Number: 1, Authors: "Smith, J.", Title: "Retail Management", Year: 2019, Publisher: "Cengage"},
					{Number: 2, Authors: "Patel, A.", Title: "E-commerce Strategy", Year: 2021},
				},
			},
		},
		TableCount:  1,
		FigureCount: 1,
	}
}

const wantMarkdown = `# Retail Business Operations

## Introduction

The report begins.

### P1: Explain the features

Criterion prose.

Table 1: Features

| Item | Detail |
| --- | --- |
| Staff | 45 |

*Figure 1: Store layout*

## References

1. Smith, J. (2019) *Retail Management*. Cengage.

2. Patel, A. (2021) *E-commerce Strategy*.
`

func TestMarkdownFold(t *testing.T) {
	got := Markdown(testDoc())
	if got != wantMarkdown {
		t.Errorf("markdown fold mismatch\ngot:\n%s\nwant:\n%s", got, wantMarkdown)
	}

	// The fold is deterministic.
	if again := Markdown(testDoc()); again != got {
		t.Error("repeated fold of the same document differs")
	}
}

func TestMarkdownEscapesPipes(t *testing.T) {
	doc := &types.Document{
		Title: "Unit",
		Sections: []types.DocumentSection{{
			Heading: "P1", Level: 2,
			Table: &types.DocumentTable{Number: 1, Title: "T", Columns: []string{"a|b"}, Rows: [][]string{{"c|d"}}},
		}},
	}
	got := Markdown(doc)
	if !strings.Contains(got, `a\|b`) || !strings.Contains(got, `c\|d`) {
		t.Errorf("pipes not escaped in:\n%s", got)
	}
}

func TestMarkdownRendererWritesFile(t *testing.T) {
	dir := t.TempDir()
	r := NewMarkdownRenderer(types.RenderConfig{OutputDir: dir})

	path, err := r.Render(testDoc(), "asg-1")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if path != filepath.Join(dir, "asg-1.md") {
		t.Errorf("path = %q, want asg-1.md under the output dir", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != wantMarkdown {
		t.Error("artifact content differs from the markdown fold")
	}
}

// fakeRuntime implements container.Runtime for testing.
type fakeRuntime struct {
	name     string
	imageErr error
	runFunc  func(image string, args []string, stdin io.Reader, stdout io.Writer) error
}

func (f *fakeRuntime) Name() string                   { return f.name }
func (f *fakeRuntime) Available() bool                { return true }
func (f *fakeRuntime) ImageExists(image string) error { return f.imageErr }

func (f *fakeRuntime) Run(image string, args []string, stdin io.Reader, stdout io.Writer) error {
	if f.runFunc != nil {
		return f.runFunc(image, args, stdin, stdout)
	}
	return nil
}

func TestDocxRendererPipesThroughPandoc(t *testing.T) {
	dir := t.TempDir()
	var gotImage, gotArgs, gotStdin string

	rt := &fakeRuntime{
		name: "docker",
		runFunc: func(image string, args []string, stdin io.Reader, stdout io.Writer) error {
			gotImage = image
			gotArgs = strings.Join(args, " ")
			data, _ := io.ReadAll(stdin)
			gotStdin = string(data)
			_, _ = stdout.Write([]byte("DOCX-BYTES"))
			return nil
		},
	}

	r, err := NewDocxRenderer(rt, types.RenderConfig{OutputDir: dir})
	if err != nil {
		t.Fatalf("NewDocxRenderer: %v", err)
	}

	path, err := r.Render(testDoc(), "asg-1")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if gotImage != defaultPandocImage {
		t.Errorf("image = %q, want %q", gotImage, defaultPandocImage)
	}
	if gotArgs != "-f markdown -t docx -o -" {
		t.Errorf("args = %q", gotArgs)
	}
	if !strings.HasPrefix(gotStdin, "# Retail Business Operations") {
		t.Errorf("stdin does not start with the markdown fold: %q", gotStdin[:40])
	}

	if path != filepath.Join(dir, "asg-1.docx") {
		t.Errorf("path = %q, want asg-1.docx under the output dir", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != "DOCX-BYTES" {
		t.Errorf("artifact content = %q, want the pandoc output", data)
	}
}

func TestDocxRendererEmptyOutput(t *testing.T) {
	rt := &fakeRuntime{
		name: "docker",
		runFunc: func(string, []string, io.Reader, io.Writer) error {
			return nil // writes nothing
		},
	}
	r, err := NewDocxRenderer(rt, types.RenderConfig{OutputDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Render(testDoc(), "asg-1"); err == nil {
		t.Error("Render succeeded on empty pandoc output, want error")
	}
}

func TestNewDocxRendererMissingImage(t *testing.T) {
	rt := &fakeRuntime{name: "podman", imageErr: errors.New("image pandoc/core:latest not found")}

	_, err := NewDocxRenderer(rt, types.RenderConfig{})
	if err == nil {
		t.Fatal("NewDocxRenderer succeeded without the image, want error")
	}
	if !strings.Contains(err.Error(), "podman") {
		t.Errorf("error = %v, want the runtime named", err)
	}
}

func TestNewSelectsFormat(t *testing.T) {
	r, err := New(types.RenderConfig{Format: types.RenderMarkdown})
	if err != nil {
		t.Fatalf("New(markdown): %v", err)
	}
	if _, ok := r.(*MarkdownRenderer); !ok {
		t.Errorf("New(markdown) = %T, want *MarkdownRenderer", r)
	}

	// An empty format defaults to markdown.
	r, err = New(types.RenderConfig{})
	if err != nil {
		t.Fatalf("New(default): %v", err)
	}
	if _, ok := r.(*MarkdownRenderer); !ok {
		t.Errorf("New(default) = %T, want *MarkdownRenderer", r)
	}

	if _, err := New(types.RenderConfig{Format: "pdf"}); err == nil {
		t.Error("New accepted unknown format, want error")
	}
}
