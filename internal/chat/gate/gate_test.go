package gate

import (
	"testing"

	"commerce-chat/internal/chat/intent"

	"github.com/stretchr/testify/assert"
)

func TestDecide_RoutingTable(t *testing.T) {
	tests := []struct {
		name          string
		input         Input
		wantProducts  bool
		wantKnowledge bool
	}{
		{
			name:          "off_topic without product signal",
			input:         Input{Intent: intent.IntentOffTopic, UserText: "tell me a joke"},
			wantProducts:  false,
			wantKnowledge: true,
		},
		{
			name:          "off_topic with sku token",
			input:         Input{Intent: intent.IntentOffTopic, SKUToken: "WR-1042", UserText: "nice weather, also WR-1042?"},
			wantProducts:  true,
			wantKnowledge: true,
		},
		{
			name:          "knowledge_query without product signal",
			input:         Input{Intent: intent.IntentKnowledgeQuery, UserText: "what is your return policy"},
			wantProducts:  false,
			wantKnowledge: true,
		},
		{
			name:          "knowledge_query with attribute filter",
			input:         Input{Intent: intent.IntentKnowledgeQuery, AttributeFilter: true, UserText: "returns for 16 gauge orders"},
			wantProducts:  true,
			wantKnowledge: true,
		},
		{
			name:          "knowledge_query with detail request",
			input:         Input{Intent: intent.IntentKnowledgeQuery, DetailRequest: true, UserText: "more about that item"},
			wantProducts:  true,
			wantKnowledge: true,
		},
		{
			name:          "knowledge_query with inferred category",
			input:         Input{Intent: intent.IntentKnowledgeQuery, UserText: "do you stock copper wire"},
			wantProducts:  true,
			wantKnowledge: true,
		},
		{
			name:          "browse_products",
			input:         Input{Intent: intent.IntentBrowseProducts, UserText: "show me options"},
			wantProducts:  true,
			wantKnowledge: false,
		},
		{
			name:          "search_specific",
			input:         Input{Intent: intent.IntentSearchSpecific, UserText: "WR-1042", SKUToken: "WR-1042"},
			wantProducts:  true,
			wantKnowledge: false,
		},
		{
			name:          "smalltalk",
			input:         Input{Intent: intent.IntentSmalltalk, UserText: "hi"},
			wantProducts:  false,
			wantKnowledge: false,
		},
		{
			name:          "unrecognized intent",
			input:         Input{Intent: "gibberish", UserText: "???"},
			wantProducts:  false,
			wantKnowledge: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.input)
			assert.Equal(t, tt.wantProducts, d.UseProducts, "UseProducts")
			assert.Equal(t, tt.wantKnowledge, d.UseKnowledge, "UseKnowledge")
		})
	}
}

func TestDecide_PolicyIntent(t *testing.T) {
	d := Decide(Input{Intent: intent.IntentKnowledgeQuery, UserText: "what is the shipping and return policy"})
	assert.True(t, d.IsPolicyIntent)
	assert.GreaterOrEqual(t, d.PolicyTopicCount, 2)

	// Policy words under a non-knowledge intent do not flip the flag.
	d = Decide(Input{Intent: intent.IntentBrowseProducts, UserText: "wire with free shipping"})
	assert.False(t, d.IsPolicyIntent)
}

func TestDecide_AuxiliaryFlags(t *testing.T) {
	d := Decide(Input{Intent: intent.IntentKnowledgeQuery, UserText: "do you ship to Canada?"})
	assert.True(t, d.IsQuestionLike)
	assert.False(t, d.IsComplex)

	d = Decide(Input{Intent: intent.IntentBrowseProducts, IsProductIntent: true, UserText: "wire"})
	assert.True(t, d.LooksLikeProduct)
}
