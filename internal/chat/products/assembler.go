// internal/chat/products/assembler.go
package products

import (
	"fmt"
	"strings"

	"commerce-chat/internal/chat/intent"
	"commerce-chat/internal/models"
)

// Thresholds holds distance thresholds for primary product selection.
// Browsing tolerates weaker matches than a specific search.
type Thresholds struct {
	Default           float64
	Browse            float64
	Search            float64
	FallbackRelevance float64
	Limit             int
}

// Selection is the assembled product context for one request.
type Selection struct {
	Top          []models.ProductCard
	Sources      []models.Citation
	FallbackUsed bool
}

// SelectPrimaryProducts shapes raw vector-search hits into the request's
// product candidates and citation sources.
//
// When the best distance clears the intent-dependent threshold the top hits
// are attached with a high-relevance citation. When it does not but the
// classifier asked to show products anyway, the hits still surface under a
// fixed low relevance so the UI never silently drops visible product
// signals; callers must down-weight the textual reply in that case.
func SelectPrimaryProducts(cards []models.ProductCard, bestDistance float64, showProducts bool, intentLabel string, t Thresholds) Selection {
	limit := t.Limit
	if limit <= 0 {
		limit = 10
	}

	threshold := t.Default
	if showProducts {
		switch intentLabel {
		case intent.IntentBrowseProducts:
			threshold = t.Browse
		case intent.IntentSearchSpecific:
			threshold = t.Search
		}
	}

	if len(cards) > 0 && bestDistance < threshold {
		top := topN(cards, limit)
		return Selection{
			Top: top,
			Sources: []models.Citation{{
				Title:      "Catalog matches",
				Snippet:    summarize(top, 3),
				SourceType: "catalog",
				Relevance:  1 - bestDistance,
			}},
		}
	}

	if showProducts && len(cards) > 0 {
		top := topN(cards, limit)
		return Selection{
			Top: top,
			Sources: []models.Citation{{
				Title:      "Possible catalog matches",
				Snippet:    summarize(top, 3),
				SourceType: "catalog",
				Relevance:  t.FallbackRelevance,
			}},
			FallbackUsed: true,
		}
	}

	return Selection{}
}

func topN(cards []models.ProductCard, n int) []models.ProductCard {
	if len(cards) <= n {
		return cards
	}
	return cards[:n]
}

// summarize renders the first n cards as "category: title (sku, price)" lines.
func summarize(cards []models.ProductCard, n int) string {
	if len(cards) < n {
		n = len(cards)
	}
	lines := make([]string, 0, n)
	for _, c := range cards[:n] {
		line := c.Title
		if c.Category != "" {
			line = c.Category + ": " + line
		}
		details := c.SKU
		if c.Price != "" {
			details = fmt.Sprintf("%s, %s %s", details, c.Price, c.Currency)
		}
		if details != "" {
			line = fmt.Sprintf("%s (%s)", line, strings.TrimSuffix(details, " "))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "; ")
}
