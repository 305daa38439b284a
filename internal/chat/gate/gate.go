// Package gate decides which backing search indexes to query for a message.
package gate

import (
	"commerce-chat/internal/chat/intent"
	"commerce-chat/internal/chat/lexical"
)

// Decision captures the retrieval routing for one request. UseProducts and
// UseKnowledge are independently derived; both may be true.
type Decision struct {
	UseProducts      bool
	UseKnowledge     bool
	IsQuestionLike   bool
	IsComplex        bool
	PolicyTopicCount int
	IsPolicyIntent   bool
	LooksLikeProduct bool
}

// Input bundles the signals the gate evaluates.
type Input struct {
	Intent          string
	ShowProducts    bool
	IsProductIntent bool
	SKUToken        string
	AttributeFilter bool
	DetailRequest   bool
	UserText        string
}

// Decide applies the routing table. Off-topic and knowledge messages still
// surface products when the user embeds a concrete product reference, so a
// misfiring classifier cannot suppress catalog hits.
func Decide(in Input) Decision {
	explicitProductSignal := in.SKUToken != "" ||
		in.AttributeFilter ||
		in.DetailRequest ||
		lexical.InferCategory(in.UserText) != ""

	var useProducts, useKnowledge bool
	switch in.Intent {
	case intent.IntentOffTopic, intent.IntentKnowledgeQuery:
		useKnowledge = true
		useProducts = explicitProductSignal
	case intent.IntentBrowseProducts, intent.IntentSearchSpecific:
		useProducts = true
	default:
		// smalltalk / other: neither index.
	}

	policyCount := lexical.CountPolicyTopics(in.UserText)

	return Decision{
		UseProducts:      useProducts,
		UseKnowledge:     useKnowledge,
		IsQuestionLike:   lexical.IsQuestionLike(in.UserText),
		IsComplex:        lexical.IsComplex(in.UserText),
		PolicyTopicCount: policyCount,
		IsPolicyIntent:   in.Intent == intent.IntentKnowledgeQuery && policyCount > 0,
		LooksLikeProduct: explicitProductSignal || in.IsProductIntent,
	}
}
