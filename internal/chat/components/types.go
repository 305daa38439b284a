// internal/chat/components/types.go
package components

import "commerce-chat/internal/models"

// ComponentType identifies one renderable UI block in a chat reply.
type ComponentType string

const (
	TypeQuerySummary    ComponentType = "query_summary"
	TypeResultCount     ComponentType = "result_count"
	TypeProductCards    ComponentType = "product_cards"
	TypeProductTable    ComponentType = "product_table"
	TypeProductBullets  ComponentType = "product_bullets"
	TypeProductDetail   ComponentType = "product_detail"
	TypeCompare         ComponentType = "compare"
	TypeRecommendations ComponentType = "recommendations"
	TypeClarify         ComponentType = "clarify"
	TypeKnowledgeAnswer ComponentType = "knowledge_answer"
	TypeActionResult    ComponentType = "action_result"
	TypeError           ComponentType = "error"
)

// AllTypes lists every component type the planner may emit. The registry
// validates itself against this list at construction time.
var AllTypes = []ComponentType{
	TypeQuerySummary,
	TypeResultCount,
	TypeProductCards,
	TypeProductTable,
	TypeProductBullets,
	TypeProductDetail,
	TypeCompare,
	TypeRecommendations,
	TypeClarify,
	TypeKnowledgeAnswer,
	TypeActionResult,
	TypeError,
}

// requiredFields maps each component type to the canonical-product fields its
// builder reads. The field resolver unions these to decide whether the base
// rows are enough or an enrichment lookup is needed.
var requiredFields = map[ComponentType][]string{
	TypeQuerySummary:    nil,
	TypeResultCount:     nil,
	TypeProductCards:    {"id", "sku", "title", "price", "in_stock", "image_url", "product_url"},
	TypeProductTable:    {"sku", "title", "price", "in_stock", "material", "gauge"},
	TypeProductBullets:  {"title", "price", "sku"},
	TypeProductDetail:   {"id", "sku", "title", "price", "in_stock", "material", "gauge", "image_url", "product_url", "attributes"},
	TypeCompare:         {"sku", "title", "price", "attributes"},
	TypeRecommendations: {"title", "sku", "price"},
	TypeClarify:         nil,
	TypeKnowledgeAnswer: nil,
	TypeActionResult:    nil,
	TypeError:           nil,
}

// RequiredFields returns the fields a component type's builder reads.
func RequiredFields(t ComponentType) []string {
	return requiredFields[t]
}

// FieldUnion computes the deduplicated union of required fields across the
// planned component types, in first-occurrence order.
func FieldUnion(types []ComponentType) []string {
	seen := make(map[string]bool)
	var union []string
	for _, t := range types {
		for _, f := range requiredFields[t] {
			if !seen[f] {
				seen[f] = true
				union = append(union, f)
			}
		}
	}
	return union
}

// ChatComponent is one typed, self-contained UI payload.
type ChatComponent struct {
	Type ComponentType `json:"type"`
	Data interface{}   `json:"data"`
}

// Context is the per-request accumulator every builder reads from. It is
// created after retrieval completes and passed by reference into each
// builder; builders never mutate it.
type Context struct {
	UserText         string
	RefinedQuery     string
	Locale           string
	Intent           string
	Products         []models.CanonicalProduct
	Recommendations  []models.CanonicalProduct
	KnowledgeSources []models.KnowledgeSource
	KnowledgeAnswer  string
	AttributeFilters map[string]string
	SKUTokens        []string
	AmbiguityReason  string
	ActionStatus     string
	ActionMessage    string
	ErrorMessage     string
}
