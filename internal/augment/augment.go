// Package augment attaches structured extras to criterion sections: small
// data tables generated by the completion service, and image placeholders.
// Augmentation is best-effort. A failed or malformed table call degrades to
// a templated table seeded with the brief's project facts; nothing in this
// package ever fails a generation run.
package augment

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

const (
	minTableColumns = 2
	maxTableColumns = 6
	maxTableRows    = 8
)

const tableSystemPrompt = `You produce small data tables for vocational coursework as strict JSON and nothing else.`

// tablePromptTmpl asks for a compact scenario-grounded table.
var tablePromptTmpl = template.Must(template.New("table").Parse(`Produce one small table for a coursework section.

Topic: {{.Topic}}
Scenario: {{.Scenario}}
{{- if .Facts}}
Project facts to draw on:
{{- range .Facts}}
- {{.}}
{{- end}}
{{- end}}

Respond with a JSON object: {"title": "...", "columns": ["..."], "rows": [["..."]]}
Use 3 to 5 columns and 3 to 5 rows. Every row must have one cell per column.
Return only the JSON object.`))

// tableResponse is the JSON contract for the table call.
type tableResponse struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Table generates the table for one requirement. It returns the table and
// the provider tokens consumed; the caller folds the tokens into the owning
// block's count. Any failure, from the call itself to a malformed or
// misshapen response, yields the templated fallback table instead of an
// error.
func Table(ctx context.Context, client completion.Client, snapshot *types.BriefSnapshot, req types.TableRequirement, log *logging.Logger) (*types.TableData, int) {
	if log == nil {
		log = logging.NewNop()
	}

	prompt, err := renderTablePrompt(snapshot, req)
	if err != nil {
		log.Warn("table prompt failed, using fallback table", "criterion", req.CriterionCode, "error", err)
		return fallbackTable(snapshot, req), 0
	}

	res, err := client.Complete(ctx, completion.Request{
		System:      tableSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.3,
	})
	if err != nil {
		log.Warn("table call failed, using fallback table", "criterion", req.CriterionCode, "error", err)
		return fallbackTable(snapshot, req), 0
	}

	table, err := decodeTable(res.Text)
	if err != nil {
		log.Warn("table response rejected, using fallback table", "criterion", req.CriterionCode, "error", err)
		return fallbackTable(snapshot, req), res.TotalTokens()
	}

	if table.Title == "" {
		table.Title = req.Topic
	}
	return table, res.TotalTokens()
}

// decodeTable parses and shape-checks a table response.
func decodeTable(text string) (*types.TableData, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}

	var resp tableResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("decoding table JSON: %w", err)
	}

	cols := len(resp.Columns)
	if cols < minTableColumns || cols > maxTableColumns {
		return nil, fmt.Errorf("table has %d columns, want %d to %d", cols, minTableColumns, maxTableColumns)
	}
	if len(resp.Rows) == 0 {
		return nil, fmt.Errorf("table has no rows")
	}
	if len(resp.Rows) > maxTableRows {
		resp.Rows = resp.Rows[:maxTableRows]
	}
	for i, row := range resp.Rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), cols)
		}
	}

	return &types.TableData{
		Title:   strings.TrimSpace(resp.Title),
		Columns: resp.Columns,
		Rows:    resp.Rows,
	}, nil
}

// fallbackTable builds a two-column table from the brief's project facts.
// Facts written as "name: value" split across the columns; a brief without
// facts still yields a minimal scaffold the author can fill in.
func fallbackTable(snapshot *types.BriefSnapshot, req types.TableRequirement) *types.TableData {
	title := req.Topic
	if title == "" {
		title = "Supporting data for " + req.CriterionCode
	}

	table := &types.TableData{
		Title:   title,
		Columns: []string{"Item", "Detail"},
	}

	for _, fact := range snapshot.Facts {
		name, value, found := strings.Cut(fact, ":")
		if !found {
			name, value = "Fact", fact
		}
		table.Rows = append(table.Rows, []string{strings.TrimSpace(name), strings.TrimSpace(value)})
		if len(table.Rows) == maxTableRows {
			break
		}
	}

	if len(table.Rows) == 0 {
		table.Rows = [][]string{
			{"Requirement", req.Topic},
			{"Detail", "To be completed"},
		}
	}
	return table
}

// Image builds the placeholder for one image requirement. The sequence is
// the figure's document-wide ordinal, assigned by the caller. No asset is
// produced and no provider call is made.
func Image(req types.ImageRequirement, sequence int) *types.ImagePlaceholder {
	caption := strings.TrimSpace(req.Caption)
	if caption == "" {
		caption = "Illustration for " + req.CriterionCode
	}
	return &types.ImagePlaceholder{Caption: caption, Sequence: sequence}
}

// renderTablePrompt executes the table template for one requirement.
func renderTablePrompt(snapshot *types.BriefSnapshot, req types.TableRequirement) (string, error) {
	data := struct {
		Topic    string
		Scenario string
		Facts    []string
	}{
		Topic:    req.Topic,
		Scenario: snapshot.Scenario,
		Facts:    snapshot.Facts,
	}
	var buf bytes.Buffer
	if err := tablePromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
