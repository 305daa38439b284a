// Package intent normalizes raw classifier output and lexical signals into a
// single IntentDecision per request.
package intent

import (
	"strings"

	"commerce-chat/internal/chat/lexical"
)

// Known intent labels.
const (
	IntentBrowseProducts = "browse_products"
	IntentSearchSpecific = "search_specific"
	IntentKnowledgeQuery = "knowledge_query"
	IntentOffTopic       = "off_topic"
	IntentSmalltalk      = "smalltalk"
	IntentOther          = "other"
)

// ClassifierOutput is the schema-validated result of the NLU call.
type ClassifierOutput struct {
	Language     string `json:"language"`
	Locale       string `json:"locale"`
	Intent       string `json:"intent"`
	ShowProducts bool   `json:"showProducts"`
	Currency     string `json:"currency"`
	RefinedQuery string `json:"refinedQuery"`
	ProductCode  string `json:"productCode,omitempty"`
}

// Decision is the normalized intent for one request.
type Decision struct {
	Intent          string
	SearchQuery     string
	ShowProducts    bool
	SKUToken        string
	SKUTokens       []string
	IsProductIntent bool
}

// Resolve merges classifier output with lexical evidence. Lexical SKU
// extraction runs independently of the classifier and takes precedence over
// a classifier-proposed product code; a non-empty SKU token forces
// IsProductIntent regardless of the classifier label.
func Resolve(nlu ClassifierOutput, userText string) Decision {
	searchQuery := strings.TrimSpace(nlu.RefinedQuery)
	if searchQuery == "" {
		searchQuery = strings.TrimSpace(userText)
	}

	intentLabel := strings.ToLower(strings.TrimSpace(nlu.Intent))
	if intentLabel == "" {
		intentLabel = IntentKnowledgeQuery
	}

	skuTokens := lexical.ExtractSKUs(userText)
	skuToken := ""
	if len(skuTokens) > 0 {
		skuToken = skuTokens[0]
	} else if nlu.ProductCode != "" {
		// A classifier-proposed code is only trusted when it actually has
		// code shape.
		cleaned := lexical.CleanCode(nlu.ProductCode)
		if lexical.LooksLikeCode(cleaned) {
			skuToken = cleaned
			skuTokens = []string{cleaned}
		}
	}

	isProduct := intentLabel == IntentBrowseProducts ||
		intentLabel == IntentSearchSpecific ||
		nlu.ShowProducts ||
		skuToken != ""

	return Decision{
		Intent:          intentLabel,
		SearchQuery:     searchQuery,
		ShowProducts:    nlu.ShowProducts,
		SKUToken:        skuToken,
		SKUTokens:       skuTokens,
		IsProductIntent: isProduct,
	}
}
