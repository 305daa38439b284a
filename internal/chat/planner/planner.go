// internal/chat/planner/planner.go
package planner

import (
	"strings"

	"commerce-chat/internal/chat/components"
	"commerce-chat/internal/chat/lexical"
)

// Input carries everything the plan decision table reads. The planner is a
// pure function over this struct, no I/O and no model calls, so component
// choice stays reproducible.
type Input struct {
	UserText        string
	Intent          string
	SKUCount        int
	ProductCount    int
	IsDetailMode    bool
	IsAmbiguous     bool
	AmbiguityReason string
}

var knowledgeIntents = map[string]bool{
	"knowledge_query": true,
	"knowledge":       true,
	"faq":             true,
	"off_topic":       true,
}

var productIntents = map[string]bool{
	"browse_products": true,
	"search_specific": true,
}

// Plan maps the request shape to an ordered component list. Rules apply in
// order; the first terminal rule wins. The returned list is deduplicated
// preserving first occurrence.
func Plan(in Input) []components.ComponentType {
	norm := lexical.Normalize(in.UserText)

	if norm == "" {
		return []components.ComponentType{components.TypeError}
	}
	if in.IsAmbiguous {
		return dedup([]components.ComponentType{components.TypeQuerySummary, components.TypeClarify})
	}
	if knowledgeIntents[strings.ToLower(in.Intent)] {
		return dedup([]components.ComponentType{components.TypeQuerySummary, components.TypeKnowledgeAnswer})
	}
	if lexical.HasCompareCue(norm) {
		if in.SKUCount < 2 {
			return dedup([]components.ComponentType{components.TypeQuerySummary, components.TypeClarify})
		}
		return dedup([]components.ComponentType{
			components.TypeQuerySummary, components.TypeCompare, components.TypeResultCount,
		})
	}

	plan := []components.ComponentType{components.TypeQuerySummary}

	if productIntents[strings.ToLower(in.Intent)] && in.ProductCount == 0 {
		plan = append(plan, components.TypeClarify)
		return dedup(plan)
	}

	switch {
	case in.IsDetailMode:
		plan = append(plan, components.TypeProductDetail)
	case lexical.HasTableCue(norm):
		plan = append(plan, components.TypeResultCount, components.TypeProductTable)
	case lexical.HasBulletCue(norm):
		plan = append(plan, components.TypeResultCount, components.TypeProductBullets)
	default:
		plan = append(plan, components.TypeResultCount, components.TypeProductCards)
	}

	if lexical.HasCountCue(norm) {
		plan = append(plan, components.TypeResultCount)
	}
	if lexical.HasRecommendCue(norm) {
		plan = append(plan, components.TypeRecommendations)
	}

	return dedup(plan)
}

// dedup removes repeated types keeping the first occurrence's position.
func dedup(types []components.ComponentType) []components.ComponentType {
	seen := make(map[components.ComponentType]bool, len(types))
	out := types[:0]
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
