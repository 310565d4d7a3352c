// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DocumentTable is a table placed in an assembled document, with its
// document-wide number.
type DocumentTable struct {
	// Number is the table's ordinal across the whole document, starting at 1.
	Number int `json:"number" yaml:"number"`

	// Title is the caption text printed after "Table N:".
	Title string `json:"title" yaml:"title"`

	// Columns are the header cells.
	Columns []string `json:"columns" yaml:"columns"`

	// Rows are the body cells, one slice per row.
	Rows [][]string `json:"rows" yaml:"rows"`
}

// DocumentFigure is an image placeholder in an assembled document, with its
// document-wide number.
type DocumentFigure struct {
	// Number is the figure's ordinal across the whole document, starting at 1.
	Number int `json:"number" yaml:"number"`

	// Caption is the text printed after "Figure N:".
	Caption string `json:"caption" yaml:"caption"`
}

// DocumentReference is one entry of the document's numbered reference list.
type DocumentReference struct {
	Number    int    `json:"number" yaml:"number"`
	Authors   string `json:"authors" yaml:"authors"`
	Title     string `json:"title" yaml:"title"`
	Year      int    `json:"year" yaml:"year"`
	Publisher string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
}

// DocumentSection is one rendered section of the assembled document.
type DocumentSection struct {
	// Heading is the section heading text.
	Heading string `json:"heading" yaml:"heading"`

	// Level is the heading depth: 1 for top-level sections (introduction,
	// learning aims, conclusion, references), 2 for criterion sections.
	Level int `json:"level" yaml:"level"`

	// Body is the section's prose.
	Body string `json:"body" yaml:"body"`

	// Table is the section's numbered table, if any.
	Table *DocumentTable `json:"table,omitempty" yaml:"table,omitempty"`

	// Figure is the section's numbered image placeholder, if any.
	Figure *DocumentFigure `json:"figure,omitempty" yaml:"figure,omitempty"`

	// References holds the numbered bibliography. Populated only on the
	// references section.
	References []DocumentReference `json:"references,omitempty" yaml:"references,omitempty"`
}

// Document is the assembled output: a deterministic, derived view over an
// assignment's content blocks. It carries no state of its own and can be
// recomputed from persisted blocks at any time.
type Document struct {
	// Title is the document title, taken from the brief's unit title.
	Title string `json:"title" yaml:"title"`

	// Sections are the ordered document sections.
	Sections []DocumentSection `json:"sections" yaml:"sections"`

	// TableCount is the number of tables across all sections.
	TableCount int `json:"table_count" yaml:"table_count"`

	// FigureCount is the number of figures across all sections.
	FigureCount int `json:"figure_count" yaml:"figure_count"`
}
