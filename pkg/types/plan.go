// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// OutlineItemKind categorizes an outline item. The writer selects its prompt
// profile from the kind.
type OutlineItemKind string

const (
	ItemIntroduction OutlineItemKind = "introduction"
	ItemLearningAim  OutlineItemKind = "learning_aim"
	ItemCriterion    OutlineItemKind = "criterion"
	ItemConclusion   OutlineItemKind = "conclusion"
	ItemReferences   OutlineItemKind = "references"
)

// OutlineItem is one planned unit of the document. Items are ordered; the
// writer processes them strictly in sequence and the assembler maps each to
// a document section.
type OutlineItem struct {
	// Kind selects the item's role: introduction, learning_aim, criterion,
	// conclusion, or references.
	Kind OutlineItemKind `json:"kind" yaml:"kind"`

	// AimCode is the owning learning aim's letter. Set for learning_aim and
	// criterion items, empty otherwise.
	AimCode string `json:"aim_code,omitempty" yaml:"aim_code,omitempty"`

	// CriterionCode is the criterion label (e.g. "M1"). Set for criterion items only.
	CriterionCode string `json:"criterion_code,omitempty" yaml:"criterion_code,omitempty"`

	// CriterionTier is the criterion's achievement tier. Set for criterion
	// items only; the writer picks depth and word count from it.
	CriterionTier GradeTier `json:"criterion_tier,omitempty" yaml:"criterion_tier,omitempty"`

	// CriterionDescription is the full criterion text the writer must address.
	// Set for criterion items only.
	CriterionDescription string `json:"criterion_description,omitempty" yaml:"criterion_description,omitempty"`

	// Title is the section heading for the item.
	Title string `json:"title" yaml:"title"`
}

// TableRequirement asks the augmenter to attach a table to one criterion's
// section.
type TableRequirement struct {
	// CriterionCode names the criterion the table belongs to.
	CriterionCode string `json:"criterion_code" yaml:"criterion_code"`

	// Topic is a short hint describing what the table should show
	// (e.g. "IP addressing scheme for the three offices").
	Topic string `json:"topic" yaml:"topic"`
}

// ImageRequirement asks the augmenter to attach an image placeholder to one
// criterion's section. No asset is generated; the document carries a captioned
// placeholder the author replaces by hand.
type ImageRequirement struct {
	// CriterionCode names the criterion the figure belongs to.
	CriterionCode string `json:"criterion_code" yaml:"criterion_code"`

	// Caption is the figure caption text.
	Caption string `json:"caption" yaml:"caption"`
}

// GenerationPlan is the planner's output for one assignment: the ordered
// outline plus table and image requirements. The plan is persisted once,
// before writing starts, and is immutable afterwards.
type GenerationPlan struct {
	// Items is the ordered outline. The first item is always the
	// introduction and the last is always the references list.
	Items []OutlineItem `json:"items" yaml:"items"`

	// Tables lists requested tables. Each entry references exactly one
	// criterion item in Items.
	Tables []TableRequirement `json:"tables,omitempty" yaml:"tables,omitempty"`

	// Images lists requested image placeholders. Each entry references
	// exactly one criterion item in Items.
	Images []ImageRequirement `json:"images,omitempty" yaml:"images,omitempty"`

	// TokensUsed is the provider token count consumed by the planning call.
	// A rejected planner response still counts its tokens; TokensUsed is zero
	// only when the call itself failed and the fallback built the outline.
	TokensUsed int `json:"tokens_used" yaml:"tokens_used"`
}

// TableFor returns the table requirement for a criterion code, or nil.
func (p *GenerationPlan) TableFor(criterionCode string) *TableRequirement {
	for i := range p.Tables {
		if p.Tables[i].CriterionCode == criterionCode {
			return &p.Tables[i]
		}
	}
	return nil
}

// ImageFor returns the image requirement for a criterion code, or nil.
func (p *GenerationPlan) ImageFor(criterionCode string) *ImageRequirement {
	for i := range p.Images {
		if p.Images[i].CriterionCode == criterionCode {
			return &p.Images[i]
		}
	}
	return nil
}
