// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/pdiddy/coursework-engine/internal/completion"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

// recordingSink captures appended blocks and can fail at a chosen index.
type recordingSink struct {
	mu     sync.Mutex
	blocks []types.ContentBlock
	failAt int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{failAt: -1}
}

func (s *recordingSink) AppendBlock(_ context.Context, block *types.ContentBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt >= 0 && len(s.blocks) == s.failAt {
		return fmt.Errorf("sink unavailable")
	}
	s.blocks = append(s.blocks, *block)
	return nil
}

func testSnapshot() *types.BriefSnapshot {
	return &types.BriefSnapshot{
		UnitCode:      "U12",
		UnitTitle:     "Retail Business Operations",
		Level:         3,
		Scenario:      "Harlow Fencing Ltd is a fencing supplier expanding into e-commerce.",
		Facts:         []string{"Head office: 45 staff"},
		TargetGrade:   types.TierMerit,
		IncludeTables: true,
		IncludeImages: true,
	}
}

func testPlan() *types.GenerationPlan {
	return &types.GenerationPlan{
		Items: []types.OutlineItem{
			{Kind: types.ItemIntroduction, Title: "Introduction"},
			{Kind: types.ItemLearningAim, AimCode: "A", Title: "Learning Aim A: Explore the business"},
			{Kind: types.ItemCriterion, AimCode: "A", CriterionCode: "P1", CriterionTier: types.TierPass,
				CriterionDescription: "Explain the features of the business", Title: "P1: Explain the features of the business"},
			{Kind: types.ItemCriterion, AimCode: "A", CriterionCode: "M1", CriterionTier: types.TierMerit,
				CriterionDescription: "Compare costing approaches", Title: "M1: Compare costing approaches"},
			{Kind: types.ItemConclusion, Title: "Conclusion"},
			{Kind: types.ItemReferences, Title: "References"},
		},
		Tables: []types.TableRequirement{{CriterionCode: "M1", Topic: "Costing comparison"}},
		Images: []types.ImageRequirement{{CriterionCode: "P1", Caption: "Store layout"}},
	}
}

const validTableJSON = `{"title":"Costing comparison","columns":["Approach","Cost","Risk"],"rows":[["In-house","High","Low"],["Outsourced","Low","Medium"],["Hybrid","Medium","Low"]]}`

const validReferencesJSON = `[
  {"authors": "Smith, J.", "title": "Retail Management", "year": 2019, "publisher": "Cengage"},
  {"authors": "Patel, A.", "title": "E-commerce Strategy", "year": 2021, "publisher": "Kogan Page"}
]`

// fullScript returns one response per call the writer makes for testPlan with
// both augmentation flags on: five prose or reference calls plus one table
// call after the M1 content call.
func fullScript() []completion.Result {
	return []completion.Result{
		{Text: "Intro prose.", PromptTokens: 100, CompletionTokens: 50},
		{Text: "Aim prose.", PromptTokens: 100, CompletionTokens: 30},
		{Text: "P1 prose.", PromptTokens: 100, CompletionTokens: 80},
		{Text: "M1 prose.", PromptTokens: 100, CompletionTokens: 90},
		{Text: validTableJSON, PromptTokens: 60, CompletionTokens: 40},
		{Text: "Conclusion prose.", PromptTokens: 100, CompletionTokens: 50},
		{Text: validReferencesJSON, PromptTokens: 50, CompletionTokens: 60},
	}
}

func TestRunWritesOneBlockPerItem(t *testing.T) {
	client := &completion.ScriptedClient{Responses: fullScript()}
	sink := newRecordingSink()
	plan := testPlan()

	blocks, err := New(client, sink, nil).Run(context.Background(), "asg-1", testSnapshot(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(blocks) != len(plan.Items) {
		t.Fatalf("len(blocks) = %d, want %d", len(blocks), len(plan.Items))
	}
	if len(sink.blocks) != len(plan.Items) {
		t.Fatalf("sink holds %d blocks, want %d", len(sink.blocks), len(plan.Items))
	}
	for i, block := range blocks {
		if block.BlockOrder != i {
			t.Errorf("blocks[%d].BlockOrder = %d, want %d", i, block.BlockOrder, i)
		}
		if block.AssignmentID != "asg-1" {
			t.Errorf("blocks[%d].AssignmentID = %q, want asg-1", i, block.AssignmentID)
		}
		if block.Item.Kind != plan.Items[i].Kind {
			t.Errorf("blocks[%d].Item.Kind = %q, want %q", i, block.Item.Kind, plan.Items[i].Kind)
		}
	}
	if blocks[0].Content != "Intro prose." {
		t.Errorf("intro content = %q", blocks[0].Content)
	}
	if client.Calls() != 7 {
		t.Errorf("client calls = %d, want 7", client.Calls())
	}
}

func TestRunAugmentsCriterionBlocks(t *testing.T) {
	client := &completion.ScriptedClient{Responses: fullScript()}
	sink := newRecordingSink()

	blocks, err := New(client, sink, nil).Run(context.Background(), "asg-1", testSnapshot(), testPlan())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	p1 := blocks[2]
	if p1.Image == nil {
		t.Fatal("P1 block has no image placeholder")
	}
	if p1.Image.Sequence != 1 || p1.Image.Caption != "Store layout" {
		t.Errorf("P1 image = %+v, want sequence 1 with planned caption", p1.Image)
	}
	if p1.Table != nil {
		t.Error("P1 block has a table, want none")
	}

	m1 := blocks[3]
	if m1.Table == nil {
		t.Fatal("M1 block has no table")
	}
	if m1.Table.Title != "Costing comparison" {
		t.Errorf("M1 table title = %q", m1.Table.Title)
	}
	// 190 content tokens plus 100 table tokens.
	if m1.TokensUsed != 290 {
		t.Errorf("M1 TokensUsed = %d, want 290", m1.TokensUsed)
	}

	refs := blocks[5]
	if len(refs.References) != 2 {
		t.Fatalf("references block has %d entries, want 2", len(refs.References))
	}
	if refs.References[0].Sequence != 1 || refs.References[1].Sequence != 2 {
		t.Errorf("reference sequences = %d, %d, want 1, 2", refs.References[0].Sequence, refs.References[1].Sequence)
	}
	if refs.Content != "" {
		t.Errorf("references block content = %q, want empty", refs.Content)
	}
}

func TestRunSkipsAugmentWhenFlagsOff(t *testing.T) {
	script := fullScript()
	// Without the table call the script is one shorter.
	script = append(script[:4], script[5:]...)
	client := &completion.ScriptedClient{Responses: script}
	sink := newRecordingSink()

	snapshot := testSnapshot()
	snapshot.IncludeTables = false
	snapshot.IncludeImages = false

	blocks, err := New(client, sink, nil).Run(context.Background(), "asg-1", snapshot, testPlan())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if blocks[2].Image != nil {
		t.Error("image attached with IncludeImages off")
	}
	if blocks[3].Table != nil {
		t.Error("table attached with IncludeTables off")
	}
	if client.Calls() != 6 {
		t.Errorf("client calls = %d, want 6", client.Calls())
	}
}

func TestRunCarriesRollingContext(t *testing.T) {
	long := "HEADMARK " + strings.Repeat("filler words to pad this out nicely ", 30) + "TAILMARK closing words."
	script := fullScript()
	script[0].Text = long
	client := &completion.ScriptedClient{Responses: script}

	_, err := New(client, newRecordingSink(), nil).Run(context.Background(), "asg-1", testSnapshot(), testPlan())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	reqs := client.Requests()
	if strings.Contains(reqs[0].Prompt, "The document so far ends with") {
		t.Error("first prompt carries context, want none")
	}
	if !strings.Contains(reqs[1].Prompt, "TAILMARK") {
		t.Error("second prompt is missing the trailing excerpt of the first block")
	}
	if strings.Contains(reqs[1].Prompt, "HEADMARK") {
		t.Error("second prompt carries the head of the first block, want only the tail")
	}
}

func TestRunAbortsOnProviderError(t *testing.T) {
	client := &completion.ScriptedClient{
		Responses: fullScript(),
		Errs:      map[int]error{2: &completion.ProviderError{Kind: completion.KindSentinel, Message: "model reported failure"}},
	}
	sink := newRecordingSink()

	blocks, err := New(client, sink, nil).Run(context.Background(), "asg-1", testSnapshot(), testPlan())
	if err == nil {
		t.Fatal("Run succeeded, want error")
	}
	var provErr *completion.ProviderError
	if !errors.As(err, &provErr) {
		t.Errorf("error %v does not unwrap to ProviderError", err)
	}
	if blocks != nil {
		t.Errorf("Run returned %d blocks on failure, want nil", len(blocks))
	}
	if len(sink.blocks) != 2 {
		t.Errorf("sink holds %d blocks, want the 2 before the failure", len(sink.blocks))
	}
	if client.Calls() != 3 {
		t.Errorf("client calls = %d, want 3 (no calls after the failure)", client.Calls())
	}
}

func TestRunAbortsOnSinkError(t *testing.T) {
	client := &completion.ScriptedClient{Responses: fullScript()}
	sink := newRecordingSink()
	sink.failAt = 1

	_, err := New(client, sink, nil).Run(context.Background(), "asg-1", testSnapshot(), testPlan())
	if err == nil {
		t.Fatal("Run succeeded, want error")
	}
	if !strings.Contains(err.Error(), "persisting block 1") {
		t.Errorf("error = %v, want persistence failure for block 1", err)
	}
	if len(sink.blocks) != 1 {
		t.Errorf("sink holds %d blocks, want 1", len(sink.blocks))
	}
	if client.Calls() != 2 {
		t.Errorf("client calls = %d, want 2", client.Calls())
	}
}

func TestRunReferencesDegradeToDefaults(t *testing.T) {
	script := fullScript()
	script[6] = completion.Result{Text: "Sources: various textbooks.", PromptTokens: 50, CompletionTokens: 10}
	client := &completion.ScriptedClient{Responses: script}

	blocks, err := New(client, newRecordingSink(), nil).Run(context.Background(), "asg-1", testSnapshot(), testPlan())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	refs := blocks[5]
	want := defaultReferences()
	if len(refs.References) != len(want) {
		t.Fatalf("references = %d entries, want %d defaults", len(refs.References), len(want))
	}
	if refs.References[0].Title != want[0].Title {
		t.Errorf("References[0].Title = %q, want default", refs.References[0].Title)
	}
	if refs.TokensUsed != 60 {
		t.Errorf("TokensUsed = %d, want the rejected call still counted", refs.TokensUsed)
	}
}

func TestProfileFor(t *testing.T) {
	tests := []struct {
		name     string
		item     types.OutlineItem
		wantVerb string
		wantMin  int
		wantMax  int
	}{
		{
			name:     "introduction",
			item:     types.OutlineItem{Kind: types.ItemIntroduction},
			wantVerb: "Introduce",
			wantMin:  120, wantMax: 180,
		},
		{
			name:     "learning aim",
			item:     types.OutlineItem{Kind: types.ItemLearningAim},
			wantVerb: "Introduce",
			wantMin:  80, wantMax: 120,
		},
		{
			name:     "pass criterion",
			item:     types.OutlineItem{Kind: types.ItemCriterion, CriterionTier: types.TierPass, CriterionDescription: "x"},
			wantVerb: "Explain",
			wantMin:  200, wantMax: 350,
		},
		{
			name:     "merit criterion",
			item:     types.OutlineItem{Kind: types.ItemCriterion, CriterionTier: types.TierMerit, CriterionDescription: "x"},
			wantVerb: "Compare",
			wantMin:  300, wantMax: 450,
		},
		{
			name:     "distinction criterion",
			item:     types.OutlineItem{Kind: types.ItemCriterion, CriterionTier: types.TierDistinction, CriterionDescription: "x"},
			wantVerb: "Evaluate",
			wantMin:  400, wantMax: 550,
		},
		{
			name:     "conclusion",
			item:     types.OutlineItem{Kind: types.ItemConclusion},
			wantVerb: "Summarise",
			wantMin:  120, wantMax: 180,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := profileFor(tt.item)
			if err != nil {
				t.Fatalf("profileFor: %v", err)
			}
			if !strings.HasPrefix(profile.Instruction, tt.wantVerb) {
				t.Errorf("Instruction = %q, want prefix %q", profile.Instruction, tt.wantVerb)
			}
			if profile.Words.Min != tt.wantMin || profile.Words.Max != tt.wantMax {
				t.Errorf("Words = %d-%d, want %d-%d", profile.Words.Min, profile.Words.Max, tt.wantMin, tt.wantMax)
			}
		})
	}

	if _, err := profileFor(types.OutlineItem{Kind: types.ItemReferences}); err == nil {
		t.Error("profileFor accepted references kind, want error")
	}
	if _, err := profileFor(types.OutlineItem{Kind: types.ItemCriterion, CriterionTier: "epic"}); err == nil {
		t.Error("profileFor accepted unknown tier, want error")
	}
}

func TestReferenceCountFor(t *testing.T) {
	if got := referenceCountFor(types.TierPass); got != 3 {
		t.Errorf("pass count = %d, want 3", got)
	}
	if got := referenceCountFor(types.TierMerit); got != 5 {
		t.Errorf("merit count = %d, want 5", got)
	}
	if got := referenceCountFor(types.TierDistinction); got != 8 {
		t.Errorf("distinction count = %d, want 8", got)
	}
}

func TestDecodeReferences(t *testing.T) {
	entries, err := decodeReferences("```json\n" + validReferencesJSON + "\n```")
	if err != nil {
		t.Fatalf("decodeReferences: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[1].Sequence != 2 || entries[1].Title != "E-commerce Strategy" {
		t.Errorf("entries[1] = %+v", entries[1])
	}

	entries, err = decodeReferences(`[{"authors":"A","title":""},{"authors":"B","title":"Kept"}]`)
	if err != nil {
		t.Fatalf("decodeReferences: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "Kept" || entries[0].Sequence != 1 {
		t.Errorf("entries = %+v, want the untitled entry dropped and sequences renumbered", entries)
	}

	if _, err := decodeReferences(`[{"title":""}]`); err == nil {
		t.Error("decodeReferences accepted an all-empty list, want error")
	}
	if _, err := decodeReferences("not json"); err == nil {
		t.Error("decodeReferences accepted prose, want error")
	}
}

func TestTailExcerpt(t *testing.T) {
	if got := tailExcerpt("short text", 600); got != "short text" {
		t.Errorf("tailExcerpt(short) = %q, want unchanged", got)
	}

	long := strings.Repeat("paddingword ", 100)
	got := tailExcerpt(long, 600)
	if len(got) > 600 {
		t.Errorf("len(excerpt) = %d, want <= 600", len(got))
	}
	if !strings.HasPrefix(got, "paddingword") {
		t.Errorf("excerpt starts %q, want a word boundary", got[:20])
	}

	if got := tailExcerpt("", 600); got != "" {
		t.Errorf("tailExcerpt(empty) = %q, want empty", got)
	}
}
