package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/coursework-engine/internal/completion"
	"github.com/pdiddy/coursework-engine/internal/logging"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

const referencesSystemPrompt = `You compile reference lists for vocational coursework as strict JSON and nothing else.`

var referencesPromptTmpl = template.Must(template.New("references").Parse(`List {{.Count}} published sources a student could cite for this unit.

Unit: {{.UnitCode}} {{.UnitTitle}} (Level {{.Level}})
Scenario: {{.Scenario}}

Respond with a JSON array of objects: [{"authors": "...", "title": "...", "year": 2020, "publisher": "..."}]
Prefer textbooks and industry publications relevant to the unit. Return only the JSON array.`))

// referenceCountFor sizes the reference list by the grade being attempted.
func referenceCountFor(grade types.GradeTier) int {
	switch grade {
	case types.TierDistinction:
		return 8
	case types.TierMerit:
		return 5
	default:
		return 3
	}
}

// referenceEntry is the JSON contract for one citation.
type referenceEntry struct {
	Authors   string `json:"authors"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Publisher string `json:"publisher"`
}

// writeReferences issues the citation call and decodes the result. A failed
// call aborts like any other writing call, but a response that cannot be
// decoded degrades to the fixed default list with the call's tokens still
// counted.
func writeReferences(ctx context.Context, client completion.Client, snapshot *types.BriefSnapshot, log *logging.Logger) ([]types.ReferenceEntry, int, error) {
	prompt, err := renderReferencesPrompt(snapshot)
	if err != nil {
		return nil, 0, err
	}

	res, err := client.Complete(ctx, completion.Request{
		System:      referencesSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, 0, err
	}

	entries, err := decodeReferences(res.Text)
	if err != nil {
		log.Warn("reference response rejected, using default list", "error", err)
		return defaultReferences(), res.TotalTokens(), nil
	}
	return entries, res.TotalTokens(), nil
}

// decodeReferences parses the citation array and assigns sequence numbers in
// listed order. Entries without a title are dropped; an empty result is an
// error so the caller can substitute the default list.
func decodeReferences(text string) ([]types.ReferenceEntry, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}

	var raw []referenceEntry
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("decoding reference JSON: %w", err)
	}

	var entries []types.ReferenceEntry
	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		entries = append(entries, types.ReferenceEntry{
			Sequence:  len(entries) + 1,
			Authors:   strings.TrimSpace(r.Authors),
			Title:     title,
			Year:      r.Year,
			Publisher: strings.TrimSpace(r.Publisher),
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("reference list has no usable entries")
	}
	return entries, nil
}

// defaultReferences is the fixed list substituted when the model's citations
// cannot be decoded.
func defaultReferences() []types.ReferenceEntry {
	return []types.ReferenceEntry{
		{Sequence: 1, Authors: "Dransfield, R.", Title: "BTEC National Business Student Book 1", Year: 2010, Publisher: "Pearson Education"},
		{Sequence: 2, Authors: "Hall, D., Jones, R. and Raffo, C.", Title: "Business Studies", Year: 2008, Publisher: "Pearson Education"},
		{Sequence: 3, Authors: "Marcouse, I.", Title: "The Business Book", Year: 2014, Publisher: "Dorling Kindersley"},
	}
}

func renderReferencesPrompt(snapshot *types.BriefSnapshot) (string, error) {
	data := struct {
		Count     int
		UnitCode  string
		UnitTitle string
		Level     int
		Scenario  string
	}{
		Count:     referenceCountFor(snapshot.TargetGrade),
		UnitCode:  snapshot.UnitCode,
		UnitTitle: snapshot.UnitTitle,
		Level:     snapshot.Level,
		Scenario:  snapshot.Scenario,
	}
	var buf bytes.Buffer
	if err := referencesPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering references prompt: %w", err)
	}
	return buf.String(), nil
}
