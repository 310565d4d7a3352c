// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package planner

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/coursework-engine/internal/brief"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

// planSystemPrompt frames the planning call.
const planSystemPrompt = `You are a curriculum planning assistant for vocational coursework. You produce document outlines as strict JSON and nothing else.`

// planPromptTmpl is the planning prompt. The outline contract is rigid: one
// item per listed criterion, in the listed order, between the fixed bookends.
// Only section titles are the model's to choose.
var planPromptTmpl = template.Must(template.New("plan").Parse(`Plan the outline for a coursework document.

Unit: {{.Unit}}
Target grade: {{.Grade}}
Scenario: {{.Scenario}}

The document must contain, in exactly this order:
1. one "introduction" item
{{- range .Aims}}
- one "learning_aim" item with aim_code "{{.Code}}" ({{.Title}})
{{- range .Criteria}}
- one "criterion" item with aim_code "{{.AimCode}}" and criterion_code "{{.Code}}": {{.Description}}
{{- end}}
{{- end}}
2. one "conclusion" item
3. one "references" item

Respond with a JSON object:
{"items": [{"kind": "...", "aim_code": "...", "criterion_code": "...", "title": "..."}], "tables": [{"criterion_code": "...", "topic": "..."}], "images": [{"criterion_code": "...", "caption": "..."}]}

Every item needs a concise title. Do not add, remove, or reorder items.
{{- if .WantTables}}
Propose tables for criteria where tabulated data strengthens the answer; reference listed criterion codes only.
{{- else}}
Return an empty "tables" array.
{{- end}}
{{- if .WantImages}}
Propose at most {{.MaxImages}} images for criteria a figure would support; reference listed criterion codes only.
{{- else}}
Return an empty "images" array.
{{- end}}
Return only the JSON object.`))

type planPromptAim struct {
	Code     string
	Title    string
	Criteria []planPromptCriterion
}

type planPromptCriterion struct {
	AimCode     string
	Code        string
	Description string
}

// renderPlanPrompt executes the planning template for a snapshot, listing
// only the criteria visible at the target grade.
func renderPlanPrompt(snapshot *types.BriefSnapshot) (string, error) {
	data := struct {
		Unit       string
		Grade      types.GradeTier
		Scenario   string
		Aims       []planPromptAim
		WantTables bool
		WantImages bool
		MaxImages  int
	}{
		Unit:       snapshot.UnitCode + " " + snapshot.UnitTitle,
		Grade:      snapshot.TargetGrade,
		Scenario:   snapshot.Scenario,
		WantTables: snapshot.IncludeTables,
		WantImages: snapshot.IncludeImages,
		MaxImages:  maxImages,
	}

	for _, aim := range snapshot.Aims {
		pa := planPromptAim{Code: aim.Code, Title: aim.Title}
		for _, crit := range brief.VisibleCriteria(aim, snapshot.TargetGrade) {
			pa.Criteria = append(pa.Criteria, planPromptCriterion{
				AimCode:     aim.Code,
				Code:        crit.Code,
				Description: crit.Description,
			})
		}
		data.Aims = append(data.Aims, pa)
	}

	var buf bytes.Buffer
	if err := planPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
