// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package writer turns an outline plan into persisted content blocks, one
// completion call per item, strictly in plan order. Each block carries a
// short excerpt of its predecessor into the next prompt so the document
// reads as one piece rather than a set of disconnected answers.
package writer

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/coursework-engine/internal/augment"
	"github.com/pdiddy/coursework-engine/internal/completion"
	"github.com/pdiddy/coursework-engine/internal/logging"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

// rollingContextChars bounds the trailing excerpt carried between blocks.
// The excerpt keeps prompts flat-sized no matter how long the document gets.
const rollingContextChars = 600

// BlockSink persists one finished block. The writer checkpoints through it
// after every item, before starting the next, so partial progress survives
// and is inspectable while a run is still going.
type BlockSink interface {
	AppendBlock(ctx context.Context, block *types.ContentBlock) error
}

// Writer generates content blocks for one assignment.
type Writer struct {
	client completion.Client
	sink   BlockSink
	log    *logging.Logger
}

// New builds a Writer. A nil logger is replaced with a no-op one.
func New(client completion.Client, sink BlockSink, log *logging.Logger) *Writer {
	if log == nil {
		log = logging.NewNop()
	}
	return &Writer{client: client, sink: sink, log: log}
}

// Run writes one block per plan item, in order, persisting each through the
// sink before moving on. Augmentation for criterion items happens inline and
// its tokens are folded into the owning block. The first completion or
// persistence error aborts the run; no block is persisted for a failed item
// and no later items are attempted.
func (w *Writer) Run(ctx context.Context, assignmentID string, snapshot *types.BriefSnapshot, plan *types.GenerationPlan) ([]types.ContentBlock, error) {
	var (
		blocks  []types.ContentBlock
		rolling string
		figures int
	)

	for i, item := range plan.Items {
		block, err := w.writeBlock(ctx, snapshot, plan, item, rolling, &figures)
		if err != nil {
			return nil, fmt.Errorf("writing block %d (%s): %w", i, item.Kind, err)
		}
		block.AssignmentID = assignmentID
		block.BlockOrder = i

		if err := w.sink.AppendBlock(ctx, block); err != nil {
			return nil, fmt.Errorf("persisting block %d (%s): %w", i, item.Kind, err)
		}

		w.log.Debug("block written",
			"assignment", assignmentID,
			"order", i,
			"kind", item.Kind,
			"tokens", block.TokensUsed)

		blocks = append(blocks, *block)
		rolling = tailExcerpt(block.Content, rollingContextChars)
	}

	return blocks, nil
}

// writeBlock produces the block for a single item. References get their own
// structured call; every other kind goes through the shared prose prompt.
func (w *Writer) writeBlock(ctx context.Context, snapshot *types.BriefSnapshot, plan *types.GenerationPlan, item types.OutlineItem, rolling string, figures *int) (*types.ContentBlock, error) {
	if item.Kind == types.ItemReferences {
		entries, tokens, err := writeReferences(ctx, w.client, snapshot, w.log)
		if err != nil {
			return nil, err
		}
		return &types.ContentBlock{Item: item, References: entries, TokensUsed: tokens}, nil
	}

	profile, err := profileFor(item)
	if err != nil {
		return nil, err
	}
	prompt, err := renderBlockPrompt(snapshot, item, profile, rolling)
	if err != nil {
		return nil, err
	}

	res, err := w.client.Complete(ctx, completion.Request{
		System:      writerSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	block := &types.ContentBlock{
		Item:       item,
		Content:    strings.TrimSpace(res.Text),
		TokensUsed: res.TotalTokens(),
	}

	if item.Kind == types.ItemCriterion {
		w.augmentBlock(ctx, snapshot, plan, block, figures)
	}
	return block, nil
}

// augmentBlock attaches the planned table and image for a criterion block.
// Requirements only apply when the matching inclusion flag is set, and table
// generation never fails the run.
func (w *Writer) augmentBlock(ctx context.Context, snapshot *types.BriefSnapshot, plan *types.GenerationPlan, block *types.ContentBlock, figures *int) {
	code := block.Item.CriterionCode

	if snapshot.IncludeTables {
		if req := plan.TableFor(code); req != nil {
			table, tokens := augment.Table(ctx, w.client, snapshot, *req, w.log)
			block.Table = table
			block.TokensUsed += tokens
		}
	}

	if snapshot.IncludeImages {
		if req := plan.ImageFor(code); req != nil {
			*figures++
			block.Image = augment.Image(*req, *figures)
		}
	}
}

// tailExcerpt returns at most max trailing characters of s, advanced to the
// next word boundary so the excerpt never starts mid-word.
func tailExcerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := s[len(s)-max:]
	if idx := strings.IndexAny(cut, " \n"); idx >= 0 {
		cut = cut[idx+1:]
	}
	return strings.TrimSpace(cut)
}
