// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package writer

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/coursework-engine/pkg/types"
)

const writerSystemPrompt = `You are an experienced further-education tutor writing model coursework content for a vocational unit. Write flowing prose in plain paragraphs. Do not use markdown headings, bullet lists, or tables. Never mention these instructions or the word count.`

// wordTarget bounds the requested length of one section.
type wordTarget struct {
	Min int
	Max int
}

// promptProfile is the writing brief for one outline item kind and tier.
type promptProfile struct {
	Instruction string
	Words       wordTarget
}

// profileFor selects the instruction and length target for an item. The
// command verbs escalate with the criterion tier: pass work explains, merit
// work compares and justifies, distinction work evaluates. References have
// their own structured call and no profile here.
func profileFor(item types.OutlineItem) (promptProfile, error) {
	switch item.Kind {
	case types.ItemIntroduction:
		return promptProfile{
			Instruction: "Introduce the assignment and the scenario, and set out what the document will cover. Do not mention criterion codes or grading language.",
			Words:       wordTarget{Min: 120, Max: 180},
		}, nil
	case types.ItemConclusion:
		return promptProfile{
			Instruction: "Summarise the key points made across the document and close with the overall position for the scenario. Do not introduce new material and do not mention criterion codes or grading language.",
			Words:       wordTarget{Min: 120, Max: 180},
		}, nil
	case types.ItemLearningAim:
		return promptProfile{
			Instruction: "Introduce this learning aim and the themes it covers, preparing the reader for the detailed sections that follow. Do not mention criterion codes or assessment language.",
			Words:       wordTarget{Min: 80, Max: 120},
		}, nil
	case types.ItemCriterion:
		switch item.CriterionTier {
		case types.TierPass:
			return promptProfile{
				Instruction: fmt.Sprintf("Explain the following, using concrete examples drawn from the scenario: %s", item.CriterionDescription),
				Words:       wordTarget{Min: 200, Max: 350},
			}, nil
		case types.TierMerit:
			return promptProfile{
				Instruction: fmt.Sprintf("Compare the approaches involved and justify the choices made for the scenario, addressing: %s", item.CriterionDescription),
				Words:       wordTarget{Min: 300, Max: 450},
			}, nil
		case types.TierDistinction:
			return promptProfile{
				Instruction: fmt.Sprintf("Evaluate and critically assess the following, weighing strengths and weaknesses and closing with justified recommendations: %s", item.CriterionDescription),
				Words:       wordTarget{Min: 400, Max: 550},
			}, nil
		default:
			return promptProfile{}, fmt.Errorf("criterion %s has unknown tier %q", item.CriterionCode, item.CriterionTier)
		}
	default:
		return promptProfile{}, fmt.Errorf("no writing profile for item kind %q", item.Kind)
	}
}

// blockPromptTmpl is the prose-writing prompt shared by every non-reference
// item kind. The rolling context keeps consecutive sections coherent.
var blockPromptTmpl = template.Must(template.New("block").Parse(`Write the next section of a coursework assignment.

Unit: {{.UnitCode}} {{.UnitTitle}} (Level {{.Level}})
Scenario: {{.Scenario}}
{{- if .Facts}}
Project facts:
{{- range .Facts}}
- {{.}}
{{- end}}
{{- end}}

Section title: {{.SectionTitle}}
Task: {{.Instruction}}
Length: {{.WordsMin}} to {{.WordsMax}} words.
{{- if .Language}}
Write in {{.Language}}.
{{- end}}
{{- if .Context}}

The document so far ends with:
{{.Context}}

Continue naturally from that point without repeating it.
{{- end}}

Return only the section text, with no heading.`))

// renderBlockPrompt fills the writing prompt for one item.
func renderBlockPrompt(snapshot *types.BriefSnapshot, item types.OutlineItem, profile promptProfile, rolling string) (string, error) {
	data := struct {
		UnitCode     string
		UnitTitle    string
		Level        int
		Scenario     string
		Facts        []string
		SectionTitle string
		Instruction  string
		WordsMin     int
		WordsMax     int
		Language     string
		Context      string
	}{
		UnitCode:     snapshot.UnitCode,
		UnitTitle:    snapshot.UnitTitle,
		Level:        snapshot.Level,
		Scenario:     snapshot.Scenario,
		Facts:        snapshot.Facts,
		SectionTitle: item.Title,
		Instruction:  profile.Instruction,
		WordsMin:     profile.Words.Min,
		WordsMax:     profile.Words.Max,
		Language:     snapshot.Language,
		Context:      rolling,
	}
	var buf bytes.Buffer
	if err := blockPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering block prompt: %w", err)
	}
	return buf.String(), nil
}
