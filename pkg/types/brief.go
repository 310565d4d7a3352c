// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// GradeTier identifies the achievement tier a criterion belongs to, and the
// tier a learner is aiming for. Tiers are cumulative: a merit document covers
// pass criteria too, and a distinction document covers all three.
type GradeTier string

const (
	TierPass        GradeTier = "pass"
	TierMerit       GradeTier = "merit"
	TierDistinction GradeTier = "distinction"
)

// Rank returns the tier's position in the cumulative ordering: pass 0,
// merit 1, distinction 2. Unknown tiers rank -1.
func (g GradeTier) Rank() int {
	switch g {
	case TierPass:
		return 0
	case TierMerit:
		return 1
	case TierDistinction:
		return 2
	}
	return -1
}

// Covers reports whether a document targeting g must address a criterion of
// tier other. A higher tier always covers the tiers below it.
func (g GradeTier) Covers(other GradeTier) bool {
	return g.Rank() >= 0 && other.Rank() >= 0 && g.Rank() >= other.Rank()
}

// Criterion is a single assessment criterion within a learning aim.
type Criterion struct {
	// Code is the criterion label as it appears in the brief (e.g. "P1", "M2", "D1").
	Code string `json:"code" yaml:"code"`

	// Description is the full criterion text (e.g. "Explain the role of DHCP in a LAN").
	Description string `json:"description" yaml:"description"`

	// Tier is the achievement tier: pass, merit, or distinction.
	Tier GradeTier `json:"tier" yaml:"tier"`
}

// LearningAim is an ordered, lettered unit of the brief grouping related criteria.
type LearningAim struct {
	// Code is the aim letter as it appears in the brief (e.g. "A", "B").
	Code string `json:"code" yaml:"code"`

	// Title is the aim's heading text.
	Title string `json:"title" yaml:"title"`

	// Criteria lists the aim's assessment criteria in author order.
	Criteria []Criterion `json:"criteria" yaml:"criteria"`
}

// BriefSnapshot is the read-only view of an assignment brief that the
// generation pipeline consumes. It is captured when the assignment is created
// and never changes afterwards, so a run always sees one consistent brief
// even if the source template is edited mid-generation.
type BriefSnapshot struct {
	// UnitCode identifies the unit (e.g. "U12").
	UnitCode string `json:"unit_code" yaml:"unit_code"`

	// UnitTitle is the unit's full title.
	UnitTitle string `json:"unit_title" yaml:"unit_title"`

	// Level is the qualification level (e.g. 3).
	Level int `json:"level" yaml:"level"`

	// Scenario is the vocational scenario the document must be framed in.
	Scenario string `json:"scenario" yaml:"scenario"`

	// Facts are author-declared project facts (names, figures, constraints)
	// used to seed scenario-specific tables.
	Facts []string `json:"facts,omitempty" yaml:"facts,omitempty"`

	// Aims lists the learning aims in author order.
	Aims []LearningAim `json:"aims" yaml:"aims"`

	// Language is the output language (e.g. "en-GB").
	Language string `json:"language,omitempty" yaml:"language,omitempty"`

	// TargetGrade is the tier the learner is aiming for. It gates which
	// criteria appear in the document.
	TargetGrade GradeTier `json:"target_grade" yaml:"target_grade"`

	// IncludeTables enables table augmentation for criteria the planner
	// flags as table-worthy.
	IncludeTables bool `json:"include_tables" yaml:"include_tables"`

	// IncludeImages enables image placeholder insertion for criteria the
	// planner flags as figure-worthy.
	IncludeImages bool `json:"include_images" yaml:"include_images"`
}

// CriterionCount returns the number of criteria across all aims, regardless
// of tier visibility.
func (b *BriefSnapshot) CriterionCount() int {
	n := 0
	for _, aim := range b.Aims {
		n += len(aim.Criteria)
	}
	return n
}
