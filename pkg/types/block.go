// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// TableData is a generated table attached to a criterion block.
type TableData struct {
	// Title is the table caption text, without the "Table N:" prefix.
	// Numbering is assigned document-wide at assembly time.
	Title string `json:"title" yaml:"title"`

	// Columns are the header cells.
	Columns []string `json:"columns" yaml:"columns"`

	// Rows are the body cells, one slice per row. Every row has
	// len(Columns) cells.
	Rows [][]string `json:"rows" yaml:"rows"`
}

// ImagePlaceholder marks where an illustrative figure belongs. The pipeline
// produces no asset; the author replaces the placeholder by hand.
type ImagePlaceholder struct {
	// Caption is the figure caption text, without the "Figure N:" prefix.
	Caption string `json:"caption" yaml:"caption"`

	// Sequence is the figure's document-wide ordinal, starting at 1.
	Sequence int `json:"sequence" yaml:"sequence"`
}

// ReferenceEntry is one bibliography entry in the document's reference list.
type ReferenceEntry struct {
	// Sequence is the entry's position in the numbered list, starting at 1.
	Sequence int `json:"sequence" yaml:"sequence"`

	// Authors is the author string as it should print (e.g. "Tanenbaum, A.").
	Authors string `json:"authors" yaml:"authors"`

	// Title is the cited work's title.
	Title string `json:"title" yaml:"title"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`

	// Publisher is the publisher or venue.
	Publisher string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
}

// ContentBlock is the atomic unit of generated content: one block per outline
// item, persisted immediately after it is written. Blocks are append-only;
// a failed run leaves every block written before the failure in place.
type ContentBlock struct {
	// AssignmentID identifies the owning assignment.
	AssignmentID string `json:"assignment_id" yaml:"assignment_id"`

	// BlockOrder is the block's position, starting at 0 and increasing by
	// exactly one per block with no gaps.
	BlockOrder int `json:"block_order" yaml:"block_order"`

	// Item is the outline item this block realizes.
	Item OutlineItem `json:"item" yaml:"item"`

	// Content is the generated prose for the item.
	Content string `json:"content" yaml:"content"`

	// Table is the generated table for a criterion item, when the plan
	// requested one and the brief enables tables. Nil otherwise.
	Table *TableData `json:"table,omitempty" yaml:"table,omitempty"`

	// Image is the figure placeholder for a criterion item, when the plan
	// requested one and the brief enables images. Nil otherwise.
	Image *ImagePlaceholder `json:"image,omitempty" yaml:"image,omitempty"`

	// References holds the bibliography entries. Populated only on the
	// references block.
	References []ReferenceEntry `json:"references,omitempty" yaml:"references,omitempty"`

	// TokensUsed is the provider token count consumed writing this block,
	// including any augmentation call for the same item.
	TokensUsed int `json:"tokens_used" yaml:"tokens_used"`
}
