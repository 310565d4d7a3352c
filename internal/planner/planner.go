// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package planner produces the generation plan for an assignment: one
// ordered outline item per criterion visible at the target grade, grouped
// under its learning aim between the introduction and conclusion/references
// bookends, plus the table and image requirements the augmenter serves.
//
// Planning issues exactly one completion call. If the model's output is
// rejected at any stage (provider error, malformed JSON, structure that does
// not match the brief) the deterministic fallback builder reconstructs the
// outline from the snapshot alone, so planning never blocks the pipeline on
// the model.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/coursework-engine/internal/brief"
	"github.com/pdiddy/coursework-engine/internal/completion"
	"github.com/pdiddy/coursework-engine/internal/logging"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

// maxImages caps image requirements per document, model-planned or fallback.
const maxImages = 3

// PlanningError reports a snapshot that cannot be planned at all. Nothing is
// generated or persisted for such an assignment.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("brief cannot be planned: %v", e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// skeletonItem is the structural identity of an outline position: its kind
// and owning codes, independent of the display title.
type skeletonItem struct {
	kind          types.OutlineItemKind
	aimCode       string
	criterionCode string
}

// skeleton derives the canonical outline structure from a snapshot:
// introduction, then each aim header followed by its tier-visible criteria
// in author order, then conclusion and references. Both the fallback builder
// and model-plan validation use it, so a valid model plan and the fallback
// agree on structure by construction.
func skeleton(snapshot *types.BriefSnapshot) []skeletonItem {
	items := []skeletonItem{{kind: types.ItemIntroduction}}
	for _, aim := range snapshot.Aims {
		items = append(items, skeletonItem{kind: types.ItemLearningAim, aimCode: aim.Code})
		for _, crit := range brief.VisibleCriteria(aim, snapshot.TargetGrade) {
			items = append(items, skeletonItem{
				kind:          types.ItemCriterion,
				aimCode:       aim.Code,
				criterionCode: crit.Code,
			})
		}
	}
	items = append(items,
		skeletonItem{kind: types.ItemConclusion},
		skeletonItem{kind: types.ItemReferences},
	)
	return items
}

// planResponse is the JSON contract the planning prompt demands.
type planResponse struct {
	Items  []planResponseItem  `json:"items"`
	Tables []planResponseTable `json:"tables"`
	Images []planResponseImage `json:"images"`
}

type planResponseItem struct {
	Kind          string `json:"kind"`
	AimCode       string `json:"aim_code"`
	CriterionCode string `json:"criterion_code"`
	Title         string `json:"title"`
}

type planResponseTable struct {
	CriterionCode string `json:"criterion_code"`
	Topic         string `json:"topic"`
}

type planResponseImage struct {
	CriterionCode string `json:"criterion_code"`
	Caption       string `json:"caption"`
}

// Plan validates the snapshot and produces its generation plan. The returned
// plan's TokensUsed carries the planning call's cost, including calls whose
// output was rejected in favor of the fallback outline; it is zero when the
// call itself failed.
func Plan(ctx context.Context, client completion.Client, snapshot *types.BriefSnapshot, log *logging.Logger) (*types.GenerationPlan, error) {
	if log == nil {
		log = logging.NewNop()
	}
	if err := brief.Validate(snapshot); err != nil {
		return nil, &PlanningError{Err: err}
	}

	prompt, err := renderPlanPrompt(snapshot)
	if err != nil {
		return nil, fmt.Errorf("rendering plan prompt: %w", err)
	}

	res, err := client.Complete(ctx, completion.Request{
		System:      planSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.2,
	})
	if err != nil {
		log.Warn("planning call failed, using fallback outline", "error", err)
		return Fallback(snapshot), nil
	}

	plan, problems := decodePlan(res.Text, snapshot)
	if len(problems) > 0 {
		log.Warn("model plan rejected, using fallback outline",
			"problems", strings.Join(problems, "; "))
		fb := Fallback(snapshot)
		fb.TokensUsed = res.TotalTokens()
		return fb, nil
	}

	plan.TokensUsed = res.TotalTokens()
	return plan, nil
}

// decodePlan parses and validates model output against the snapshot's
// canonical skeleton. It returns the converted plan, or the list of
// structural problems that disqualify it.
func decodePlan(text string, snapshot *types.BriefSnapshot) (*types.GenerationPlan, []string) {
	var resp planResponse
	if err := json.Unmarshal([]byte(stripFences(text)), &resp); err != nil {
		return nil, []string{fmt.Sprintf("decoding plan JSON: %v", err)}
	}

	expected := skeleton(snapshot)
	var problems []string

	if len(resp.Items) != len(expected) {
		problems = append(problems,
			fmt.Sprintf("plan has %d items, brief requires %d", len(resp.Items), len(expected)))
		return nil, problems
	}

	items := make([]types.OutlineItem, 0, len(expected))
	for i, want := range expected {
		got := resp.Items[i]
		if types.OutlineItemKind(got.Kind) != want.kind {
			problems = append(problems, fmt.Sprintf("item %d: kind %q, want %q", i, got.Kind, want.kind))
			continue
		}
		if got.AimCode != want.aimCode {
			problems = append(problems, fmt.Sprintf("item %d: aim %q, want %q", i, got.AimCode, want.aimCode))
			continue
		}
		if got.CriterionCode != want.criterionCode {
			problems = append(problems, fmt.Sprintf("item %d: criterion %q, want %q", i, got.CriterionCode, want.criterionCode))
			continue
		}

		item := buildItem(want, snapshot)
		if title := strings.TrimSpace(got.Title); title != "" {
			item.Title = title
		}
		items = append(items, item)
	}

	visible := visibleCriterionSet(snapshot)
	var tables []types.TableRequirement
	for _, tr := range resp.Tables {
		if !visible[tr.CriterionCode] {
			problems = append(problems, fmt.Sprintf("table references unknown criterion %q", tr.CriterionCode))
			continue
		}
		topic := strings.TrimSpace(tr.Topic)
		if topic == "" {
			topic = criterionDescription(snapshot, tr.CriterionCode)
		}
		tables = append(tables, types.TableRequirement{CriterionCode: tr.CriterionCode, Topic: topic})
	}

	var images []types.ImageRequirement
	for _, ir := range resp.Images {
		if !visible[ir.CriterionCode] {
			problems = append(problems, fmt.Sprintf("image references unknown criterion %q", ir.CriterionCode))
			continue
		}
		caption := strings.TrimSpace(ir.Caption)
		if caption == "" {
			caption = defaultImageCaption(criterionDescription(snapshot, ir.CriterionCode))
		}
		images = append(images, types.ImageRequirement{CriterionCode: ir.CriterionCode, Caption: caption})
	}
	if len(images) > maxImages {
		images = images[:maxImages]
	}

	if len(problems) > 0 {
		return nil, problems
	}
	return &types.GenerationPlan{Items: items, Tables: tables, Images: images}, nil
}

// buildItem fills an outline item from its skeleton position, with the
// snapshot supplying criterion tier and description. Titles are defaults;
// a model plan may override them.
func buildItem(sk skeletonItem, snapshot *types.BriefSnapshot) types.OutlineItem {
	item := types.OutlineItem{
		Kind:          sk.kind,
		AimCode:       sk.aimCode,
		CriterionCode: sk.criterionCode,
	}
	switch sk.kind {
	case types.ItemIntroduction:
		item.Title = "Introduction"
	case types.ItemConclusion:
		item.Title = "Conclusion"
	case types.ItemReferences:
		item.Title = "References"
	case types.ItemLearningAim:
		for _, aim := range snapshot.Aims {
			if aim.Code == sk.aimCode {
				item.Title = fmt.Sprintf("Learning Aim %s: %s", aim.Code, aim.Title)
				break
			}
		}
	case types.ItemCriterion:
		for _, aim := range snapshot.Aims {
			if aim.Code != sk.aimCode {
				continue
			}
			for _, crit := range aim.Criteria {
				if crit.Code == sk.criterionCode {
					item.CriterionTier = crit.Tier
					item.CriterionDescription = crit.Description
					item.Title = fmt.Sprintf("%s: %s", crit.Code, crit.Description)
					break
				}
			}
		}
	}
	return item
}

// visibleCriterionSet returns the codes of criteria visible at the
// snapshot's target grade.
func visibleCriterionSet(snapshot *types.BriefSnapshot) map[string]bool {
	set := make(map[string]bool)
	for _, aim := range snapshot.Aims {
		for _, crit := range brief.VisibleCriteria(aim, snapshot.TargetGrade) {
			set[crit.Code] = true
		}
	}
	return set
}

func criterionDescription(snapshot *types.BriefSnapshot, code string) string {
	for _, aim := range snapshot.Aims {
		for _, crit := range aim.Criteria {
			if crit.Code == code {
				return crit.Description
			}
		}
	}
	return ""
}

// stripFences removes a surrounding Markdown code fence, with or without a
// language tag, from model output.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
