// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble folds an assignment's ordered content blocks into a
// document model. Assembly is a pure function: no I/O, no randomness, no
// completion calls, so the same blocks always produce the same document and
// a document can be rebuilt from persisted blocks at any time.
package assemble

import (
	"fmt"
	"sort"

	"github.com/pdiddy/coursework-engine/pkg/types"
)

// Assemble builds the document for one assignment from its blocks. Blocks
// must arrive in persisted order: block order strictly increasing from zero
// with no gaps. Table and figure numbers run across the whole document, not
// per section, and references are emitted as a single numbered list ordered
// by their declared sequence.
func Assemble(title string, blocks []types.ContentBlock) (*types.Document, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no blocks to assemble")
	}

	doc := &types.Document{Title: title}
	for i, block := range blocks {
		if block.BlockOrder != i {
			return nil, fmt.Errorf("block order broken at index %d: got %d", i, block.BlockOrder)
		}

		section := types.DocumentSection{
			Heading: block.Item.Title,
			Level:   headingLevel(block.Item.Kind),
			Body:    block.Content,
		}

		if block.Table != nil {
			doc.TableCount++
			section.Table = &types.DocumentTable{
				Number:  doc.TableCount,
				Title:   block.Table.Title,
				Columns: block.Table.Columns,
				Rows:    block.Table.Rows,
			}
		}
		if block.Image != nil {
			doc.FigureCount++
			section.Figure = &types.DocumentFigure{
				Number:  doc.FigureCount,
				Caption: block.Image.Caption,
			}
		}
		if block.Item.Kind == types.ItemReferences {
			section.References = numberReferences(block.References)
		}

		doc.Sections = append(doc.Sections, section)
	}
	return doc, nil
}

// headingLevel maps an item kind to its heading depth. Criterion sections
// nest under their learning aim; everything else is top level.
func headingLevel(kind types.OutlineItemKind) int {
	if kind == types.ItemCriterion {
		return 2
	}
	return 1
}

// numberReferences orders entries by declared sequence and assigns the
// printed list numbers.
func numberReferences(entries []types.ReferenceEntry) []types.DocumentReference {
	ordered := make([]types.ReferenceEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	refs := make([]types.DocumentReference, len(ordered))
	for i, entry := range ordered {
		refs[i] = types.DocumentReference{
			Number:    i + 1,
			Authors:   entry.Authors,
			Title:     entry.Title,
			Year:      entry.Year,
			Publisher: entry.Publisher,
		}
	}
	return refs
}

// Section is the older nested input shape: a top-level block together with
// the criterion blocks written under it. Introductions, conclusions, and
// references are sections with no children.
type Section struct {
	Block    types.ContentBlock
	Criteria []types.ContentBlock
}

// FromSections flattens the nested shape into the flat ordered list,
// reassigning block order by position. Assembling the flattened list yields
// the same document the flat shape would.
func FromSections(sections []Section) []types.ContentBlock {
	var blocks []types.ContentBlock
	for _, section := range sections {
		blocks = append(blocks, section.Block)
		blocks = append(blocks, section.Criteria...)
	}
	for i := range blocks {
		blocks[i].BlockOrder = i
	}
	return blocks
}
