// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package brief loads assignment briefs from YAML and normalizes them into
// the canonical snapshot form the pipeline consumes. Brief authors write
// criteria either as plain strings ("P1: Explain ...") or as code/description
// mappings; both normalize at ingestion so nothing downstream branches on the
// authored shape.
package brief

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/coursework-engine/pkg/types"
)

// briefFile mirrors the authored YAML layout. Criteria use the dynamic
// rawCriterion form; everything else maps straight onto the snapshot.
type briefFile struct {
	UnitCode      string   `yaml:"unit_code"`
	UnitTitle     string   `yaml:"unit_title"`
	Level         int      `yaml:"level"`
	Scenario      string   `yaml:"scenario"`
	Facts         []string `yaml:"facts"`
	Language      string   `yaml:"language"`
	TargetGrade   string   `yaml:"target_grade"`
	IncludeTables bool     `yaml:"include_tables"`
	IncludeImages bool     `yaml:"include_images"`
	Aims          []rawAim `yaml:"aims"`
}

type rawAim struct {
	Code     string         `yaml:"code"`
	Title    string         `yaml:"title"`
	Criteria []rawCriterion `yaml:"criteria"`
}

// rawCriterion accepts both authored criterion shapes.
type rawCriterion struct {
	Code        string
	Description string
	Tier        string
}

// UnmarshalYAML decodes a criterion from either a scalar "CODE: description"
// string or a code/description/tier mapping.
func (rc *rawCriterion) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		code, desc, ok := splitCriterionString(s)
		if !ok {
			// Keep the text as description; validation reports the
			// missing code with context.
			rc.Description = strings.TrimSpace(s)
			return nil
		}
		rc.Code = code
		rc.Description = desc
		return nil
	case yaml.MappingNode:
		var m struct {
			Code        string `yaml:"code"`
			Description string `yaml:"description"`
			Tier        string `yaml:"tier"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		rc.Code = strings.TrimSpace(m.Code)
		rc.Description = strings.TrimSpace(m.Description)
		rc.Tier = strings.TrimSpace(m.Tier)
		return nil
	}
	return fmt.Errorf("criterion must be a string or a mapping, got YAML kind %d", node.Kind)
}

// splitCriterionString splits "P1: Explain the role of DHCP" into code and
// description. The code must look like a criterion label: one letter then
// digits.
func splitCriterionString(s string) (code, desc string, ok bool) {
	before, after, found := strings.Cut(s, ":")
	if !found {
		return "", "", false
	}
	code = strings.TrimSpace(before)
	desc = strings.TrimSpace(after)
	if !looksLikeCriterionCode(code) || desc == "" {
		return "", "", false
	}
	return code, desc, true
}

// looksLikeCriterionCode reports whether s is a letter followed by digits
// (e.g. "P1", "M2", "D10").
func looksLikeCriterionCode(s string) bool {
	if len(s) < 2 {
		return false
	}
	first := s[0]
	if (first < 'A' || first > 'Z') && (first < 'a' || first > 'z') {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// tierFromCode infers the achievement tier from a criterion code's leading
// letter: P is pass, M is merit, D is distinction.
func tierFromCode(code string) types.GradeTier {
	if code == "" {
		return ""
	}
	switch code[0] {
	case 'P', 'p':
		return types.TierPass
	case 'M', 'm':
		return types.TierMerit
	case 'D', 'd':
		return types.TierDistinction
	}
	return ""
}

// Load reads and normalizes a brief YAML file into a snapshot. The snapshot
// is not validated; callers run Validate before handing it to the pipeline.
func Load(path string) (*types.BriefSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading brief: %w", err)
	}
	return Parse(data)
}

// Parse normalizes brief YAML bytes into a snapshot.
func Parse(data []byte) (*types.BriefSnapshot, error) {
	var file briefFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing brief: %w", err)
	}
	return normalize(&file), nil
}

// normalize converts the authored file form into the canonical snapshot,
// inferring missing tiers from criterion codes.
func normalize(file *briefFile) *types.BriefSnapshot {
	snapshot := &types.BriefSnapshot{
		UnitCode:      strings.TrimSpace(file.UnitCode),
		UnitTitle:     strings.TrimSpace(file.UnitTitle),
		Level:         file.Level,
		Scenario:      strings.TrimSpace(file.Scenario),
		Facts:         file.Facts,
		Language:      strings.TrimSpace(file.Language),
		TargetGrade:   types.GradeTier(strings.ToLower(strings.TrimSpace(file.TargetGrade))),
		IncludeTables: file.IncludeTables,
		IncludeImages: file.IncludeImages,
	}

	for _, ra := range file.Aims {
		aim := types.LearningAim{
			Code:  strings.ToUpper(strings.TrimSpace(ra.Code)),
			Title: strings.TrimSpace(ra.Title),
		}
		for _, rc := range ra.Criteria {
			crit := types.Criterion{
				Code:        strings.ToUpper(rc.Code),
				Description: rc.Description,
				Tier:        types.GradeTier(strings.ToLower(rc.Tier)),
			}
			if crit.Tier == "" {
				crit.Tier = tierFromCode(crit.Code)
			}
			aim.Criteria = append(aim.Criteria, crit)
		}
		snapshot.Aims = append(snapshot.Aims, aim)
	}

	return snapshot
}

// Validate checks a snapshot's structure: at least one aim, unique codes,
// every aim carrying at least one pass criterion, known tiers, and a known
// target grade. All problems are collected and reported together.
func Validate(b *types.BriefSnapshot) error {
	var problems []string

	if b.UnitTitle == "" {
		problems = append(problems, "unit_title is empty")
	}
	if b.TargetGrade.Rank() < 0 {
		problems = append(problems, fmt.Sprintf("unknown target_grade %q", b.TargetGrade))
	}
	if len(b.Aims) == 0 {
		problems = append(problems, "brief has no learning aims")
	}

	seenAims := make(map[string]bool)
	seenCriteria := make(map[string]bool)
	for i, aim := range b.Aims {
		if aim.Code == "" {
			problems = append(problems, fmt.Sprintf("aim %d: missing code", i))
		} else if seenAims[aim.Code] {
			problems = append(problems, fmt.Sprintf("duplicate aim code %q", aim.Code))
		}
		seenAims[aim.Code] = true

		hasPass := false
		for j, crit := range aim.Criteria {
			where := fmt.Sprintf("aim %s criterion %d", aim.Code, j)
			if crit.Code == "" {
				problems = append(problems, where+": missing code")
			} else if seenCriteria[crit.Code] {
				problems = append(problems, fmt.Sprintf("duplicate criterion code %q", crit.Code))
			}
			seenCriteria[crit.Code] = true

			if crit.Description == "" {
				problems = append(problems, where+": empty description")
			}
			if crit.Tier.Rank() < 0 {
				problems = append(problems, fmt.Sprintf("%s: unknown tier %q", where, crit.Tier))
			}
			if crit.Tier == types.TierPass {
				hasPass = true
			}
		}
		if len(aim.Criteria) == 0 {
			problems = append(problems, fmt.Sprintf("aim %s has no criteria", aim.Code))
		} else if !hasPass {
			problems = append(problems, fmt.Sprintf("aim %s has no pass-tier criterion", aim.Code))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid brief: %s", strings.Join(problems, "; "))
	}
	return nil
}

// VisibleCriteria returns the aim's criteria visible at the given target
// grade, in author order. Pass shows pass criteria only; merit adds merit;
// distinction shows everything. Raising the grade never removes a criterion.
func VisibleCriteria(aim types.LearningAim, grade types.GradeTier) []types.Criterion {
	var visible []types.Criterion
	for _, crit := range aim.Criteria {
		if grade.Covers(crit.Tier) {
			visible = append(visible, crit)
		}
	}
	return visible
}
