// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package planner

import (
	"fmt"
	"strings"

	"github.com/pdiddy/coursework-engine/internal/brief"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

// Fallback builds a generation plan deterministically from the snapshot,
// without any model involvement. Requirements are assigned heuristically:
// tables go to merit-tier criteria (or the first pass criterion when no
// merit criterion is visible), image placeholders go to pass-tier criteria
// up to the document cap. Inclusion flags that are off suppress the
// corresponding requirement list entirely.
func Fallback(snapshot *types.BriefSnapshot) *types.GenerationPlan {
	sk := skeleton(snapshot)
	items := make([]types.OutlineItem, 0, len(sk))
	for _, s := range sk {
		items = append(items, buildItem(s, snapshot))
	}

	plan := &types.GenerationPlan{Items: items}

	if snapshot.IncludeTables {
		plan.Tables = fallbackTables(snapshot)
	}
	if snapshot.IncludeImages {
		plan.Images = fallbackImages(snapshot)
	}
	return plan
}

// fallbackTables picks the visible merit-tier criteria as table carriers.
// A pass-only document still gets one table, on its first criterion.
func fallbackTables(snapshot *types.BriefSnapshot) []types.TableRequirement {
	var tables []types.TableRequirement
	var firstVisible *types.Criterion

	for _, aim := range snapshot.Aims {
		for _, crit := range brief.VisibleCriteria(aim, snapshot.TargetGrade) {
			if firstVisible == nil {
				c := crit
				firstVisible = &c
			}
			if crit.Tier == types.TierMerit {
				tables = append(tables, types.TableRequirement{
					CriterionCode: crit.Code,
					Topic:         crit.Description,
				})
			}
		}
	}

	if len(tables) == 0 && firstVisible != nil {
		tables = append(tables, types.TableRequirement{
			CriterionCode: firstVisible.Code,
			Topic:         firstVisible.Description,
		})
	}
	return tables
}

// fallbackImages picks visible pass-tier criteria as figure carriers, capped
// at maxImages across the document.
func fallbackImages(snapshot *types.BriefSnapshot) []types.ImageRequirement {
	var images []types.ImageRequirement
	for _, aim := range snapshot.Aims {
		for _, crit := range brief.VisibleCriteria(aim, snapshot.TargetGrade) {
			if crit.Tier != types.TierPass {
				continue
			}
			images = append(images, types.ImageRequirement{
				CriterionCode: crit.Code,
				Caption:       defaultImageCaption(crit.Description),
			})
			if len(images) == maxImages {
				return images
			}
		}
	}
	return images
}

// defaultImageCaption derives a figure caption from a criterion description,
// trimmed to its first few words.
func defaultImageCaption(description string) string {
	words := strings.Fields(description)
	if len(words) > 8 {
		words = words[:8]
	}
	if len(words) == 0 {
		return "Supporting illustration"
	}
	return fmt.Sprintf("Illustration: %s", strings.Join(words, " "))
}
