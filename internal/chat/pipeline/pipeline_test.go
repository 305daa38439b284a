package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"commerce-chat/internal/chat/cache"
	"commerce-chat/internal/chat/components"
	"commerce-chat/internal/chat/intent"
	"commerce-chat/internal/chat/knowledge"
	"commerce-chat/internal/chat/products"
	"commerce-chat/internal/chat/resolver"
	"commerce-chat/internal/common/logger"
	"commerce-chat/internal/models"
	"commerce-chat/internal/nlu"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLanguage struct {
	classifyOut   intent.ClassifierOutput
	classifyErr   error
	classifyCalls int32
	synthOut      nlu.SynthesisResult
	synthErr      error
	lastSynthReq  nlu.SynthesisRequest
}

func (f *fakeLanguage) Classify(_ context.Context, _, _ string) (intent.ClassifierOutput, error) {
	atomic.AddInt32(&f.classifyCalls, 1)
	return f.classifyOut, f.classifyErr
}

func (f *fakeLanguage) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeLanguage) Synthesize(_ context.Context, req nlu.SynthesisRequest) (nlu.SynthesisResult, error) {
	f.lastSynthReq = req
	return f.synthOut, f.synthErr
}

type fakeCatalog struct {
	cards        []models.ProductCard
	bestDistance float64
	bySKU        map[string]*models.ProductCard
	searchErr    error
	skuCalls     []string
}

func (f *fakeCatalog) VectorSearch(_ context.Context, _ []float32, _, _ int) (*products.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &products.SearchResult{Cards: f.cards, BestDistance: f.bestDistance}, nil
}

func (f *fakeCatalog) GetProductBySKU(_ context.Context, sku string) (*models.ProductCard, error) {
	f.skuCalls = append(f.skuCalls, sku)
	return f.bySKU[sku], nil
}

type fakeKnowledge struct {
	out   *knowledge.Retrieval
	err   error
	calls int
}

func (f *fakeKnowledge) Retrieve(_ context.Context, _ string, _ []string) (*knowledge.Retrieval, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fakeLoader struct {
	byID map[string]models.CanonicalProduct
}

func (f *fakeLoader) GetByIDs(_ context.Context, ids []string) ([]models.CanonicalProduct, error) {
	var out []models.CanonicalProduct
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeLoader) GetAttributes(_ context.Context, _ []string) (map[string]map[string]string, error) {
	return nil, nil
}

func fullCanonical(id, sku, title string) models.CanonicalProduct {
	return models.CanonicalProduct{
		ID: id, SKU: sku, Title: title,
		Price: decimal.NewFromFloat(12.5), Currency: "USD", InStock: true,
		Material: "copper", Gauge: "16",
		ImageURL: "http://img", ProductURL: "http://prod",
		Attributes: map[string]string{"material": "copper", "gauge": "16"},
	}
}

type fixture struct {
	language *fakeLanguage
	catalog  *fakeCatalog
	kb       *fakeKnowledge
	pipeline *Pipeline
}

func newFixture(t *testing.T, language *fakeLanguage, catalog *fakeCatalog, kb *fakeKnowledge, loader *fakeLoader) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	replyCache := cache.New(client, 15*time.Minute)

	p := New(language, catalog, kb,
		resolver.NewResolver(loader), components.NewRegistry(), replyCache,
		Options{Thresholds: products.Thresholds{
			Default: 0.75, Browse: 0.85, Search: 0.65, FallbackRelevance: 0.3, Limit: 10,
		}},
		logger.NewNoOpLogger())
	return &fixture{language: language, catalog: catalog, kb: kb, pipeline: p}
}

func componentTypes(out *Output) []components.ComponentType {
	types := make([]components.ComponentType, 0, len(out.Components))
	for _, c := range out.Components {
		types = append(types, c.Type)
	}
	return types
}

func TestHandle_BrowseProducts(t *testing.T) {
	language := &fakeLanguage{
		classifyOut: intent.ClassifierOutput{Intent: "browse_products", ShowProducts: true, RefinedQuery: "copper wire"},
		synthOut:    nlu.SynthesisResult{Reply: "We carry several copper wires.", CallToAction: "Want to compare?", FollowUps: []string{"Which gauge do you need?"}},
	}
	catalog := &fakeCatalog{
		bestDistance: 0.3,
		cards: []models.ProductCard{
			{ID: "p-1", SKU: "WR-1042", Title: "Copper Wire 16ga", Distance: 0.3},
			{ID: "p-2", SKU: "WR-2050", Title: "Copper Wire 20ga", Distance: 0.4},
		},
	}
	loader := &fakeLoader{byID: map[string]models.CanonicalProduct{
		"p-1": fullCanonical("p-1", "WR-1042", "Copper Wire 16ga"),
		"p-2": fullCanonical("p-2", "WR-2050", "Copper Wire 20ga"),
	}}
	f := newFixture(t, language, catalog, &fakeKnowledge{}, loader)

	out, err := f.pipeline.Handle(context.Background(), models.ChatRequest{
		TenantID: "t-1", Message: "show me copper wire",
	})
	require.NoError(t, err)

	assert.Equal(t, "browse_products", out.Intent)
	assert.Equal(t, "We carry several copper wires.", out.ReplyText)
	assert.Equal(t, []components.ComponentType{
		components.TypeQuerySummary, components.TypeResultCount, components.TypeProductCards,
	}, componentTypes(out))
	assert.Len(t, out.ProductCarousel, 2)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "catalog", out.Sources[0].SourceType)
	assert.NotEmpty(t, out.ConversationID)
	assert.False(t, out.FallbackUsed)
	assert.Equal(t, 0, f.kb.calls)
	assert.Equal(t, 1, out.Resolution.DBRoundTrips)
	assert.False(t, out.Resolution.EnrichmentUsed)
	assert.Equal(t, []string{"Which gauge do you need?"}, out.FollowUpQuestions)
}

func TestHandle_ConsistencyCorrection(t *testing.T) {
	language := &fakeLanguage{
		classifyOut: intent.ClassifierOutput{Intent: "browse_products", ShowProducts: true, RefinedQuery: "16 gauge wire"},
		synthOut:    nlu.SynthesisResult{Reply: "I couldn't find specific 16 gauge options, please check our catalog."},
	}
	catalog := &fakeCatalog{
		bestDistance: 0.2,
		cards:        []models.ProductCard{{ID: "p-1", SKU: "WR-1042", Title: "Copper Wire 16ga", Distance: 0.2}},
	}
	loader := &fakeLoader{byID: map[string]models.CanonicalProduct{
		"p-1": fullCanonical("p-1", "WR-1042", "Copper Wire 16ga"),
	}}
	f := newFixture(t, language, catalog, &fakeKnowledge{}, loader)

	out, err := f.pipeline.Handle(context.Background(), models.ChatRequest{
		TenantID: "t-1", Message: "16 gauge wire options",
	})
	require.NoError(t, err)
	assert.Equal(t, "Here are the products that match your request.", out.ReplyText)
	assert.NotEmpty(t, out.CallToAction)
	assert.Len(t, out.ProductCarousel, 1)
}

func TestHandle_CacheHitSkipsClassifier(t *testing.T) {
	language := &fakeLanguage{
		classifyOut: intent.ClassifierOutput{Intent: "browse_products", ShowProducts: true, RefinedQuery: "copper wire"},
		synthOut:    nlu.SynthesisResult{Reply: "We carry several copper wires."},
	}
	catalog := &fakeCatalog{
		bestDistance: 0.3,
		cards:        []models.ProductCard{{ID: "p-1", SKU: "WR-1042", Title: "Copper Wire 16ga", Distance: 0.3}},
	}
	loader := &fakeLoader{byID: map[string]models.CanonicalProduct{
		"p-1": fullCanonical("p-1", "WR-1042", "Copper Wire 16ga"),
	}}
	f := newFixture(t, language, catalog, &fakeKnowledge{}, loader)

	req := models.ChatRequest{TenantID: "t-1", Message: "Show me COPPER wire"}
	first, err := f.pipeline.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	// identical normalized input, different casing
	second, err := f.pipeline.Handle(context.Background(), models.ChatRequest{
		TenantID: "t-1", Message: "show me copper   wire",
	})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.ReplyText, second.ReplyText)
	assert.Equal(t, int32(1), atomic.LoadInt32(&language.classifyCalls))
}

func TestHandle_SKUDetailMode(t *testing.T) {
	language := &fakeLanguage{
		classifyOut: intent.ClassifierOutput{Intent: "search_specific", ShowProducts: true, RefinedQuery: "WR-1042"},
		synthOut:    nlu.SynthesisResult{Reply: "WR-1042 is a 16 gauge copper wire."},
	}
	catalog := &fakeCatalog{
		bySKU: map[string]*models.ProductCard{
			"WR-1042": {ID: "p-1", SKU: "WR-1042", Title: "Copper Wire 16ga"},
		},
	}
	loader := &fakeLoader{byID: map[string]models.CanonicalProduct{
		"p-1": fullCanonical("p-1", "WR-1042", "Copper Wire 16ga"),
	}}
	f := newFixture(t, language, catalog, &fakeKnowledge{}, loader)

	out, err := f.pipeline.Handle(context.Background(), models.ChatRequest{
		TenantID: "t-1", Message: "tell me about WR-1042",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"WR-1042"}, catalog.skuCalls)
	assert.Equal(t, []components.ComponentType{
		components.TypeQuerySummary, components.TypeProductDetail,
	}, componentTypes(out))
	require.Len(t, out.Components, 2)
	detail := out.Components[1].Data.(map[string]interface{})
	assert.Equal(t, "WR-1042", detail["sku"])
}

func TestHandle_ClassifierFailureDegradesToKnowledge(t *testing.T) {
	language := &fakeLanguage{
		classifyErr: errors.New("CLASSIFIER_FAILED"),
		synthOut:    nlu.SynthesisResult{Reply: "Orders ship within 2 business days."},
	}
	kb := &fakeKnowledge{out: &knowledge.Retrieval{Sources: []models.KnowledgeSource{
		{ID: "a1", Title: "Shipping", Content: "Orders ship within 2 business days."},
	}}}
	f := newFixture(t, language, &fakeCatalog{}, kb, &fakeLoader{})

	out, err := f.pipeline.Handle(context.Background(), models.ChatRequest{
		TenantID: "t-1", Message: "how long does delivery take",
	})
	require.NoError(t, err)

	assert.Equal(t, "knowledge_query", out.Intent)
	assert.Equal(t, 1, kb.calls)
	assert.Equal(t, []components.ComponentType{
		components.TypeQuerySummary, components.TypeKnowledgeAnswer,
	}, componentTypes(out))
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "knowledge", out.Sources[0].SourceType)
	assert.Contains(t, language.lastSynthReq.KnowledgeTexts[0], "2 business days")
}

func TestHandle_TotalExhaustionRendersError(t *testing.T) {
	language := &fakeLanguage{
		classifyOut: intent.ClassifierOutput{Intent: "knowledge_query", RefinedQuery: "return policy"},
	}
	kb := &fakeKnowledge{err: errors.New("KNOWLEDGE_SEARCH_FAILED")}
	f := newFixture(t, language, &fakeCatalog{}, kb, &fakeLoader{})

	out, err := f.pipeline.Handle(context.Background(), models.ChatRequest{
		TenantID: "t-1", Message: "what is your return policy",
	})
	require.NoError(t, err)
	assert.Equal(t, []components.ComponentType{components.TypeError}, componentTypes(out))
	assert.NotEmpty(t, out.ReplyText)
}

func TestHandle_KnowledgeFailureWithProductsContinues(t *testing.T) {
	language := &fakeLanguage{
		classifyOut: intent.ClassifierOutput{Intent: "knowledge_query", RefinedQuery: "copper wire warranty"},
		synthOut:    nlu.SynthesisResult{Reply: "Copper wire carries a one year warranty."},
	}
	catalog := &fakeCatalog{
		bestDistance: 0.3,
		cards:        []models.ProductCard{{ID: "p-1", SKU: "WR-1042", Title: "Copper Wire 16ga", Distance: 0.3}},
	}
	kb := &fakeKnowledge{err: errors.New("KNOWLEDGE_SEARCH_FAILED")}
	loader := &fakeLoader{byID: map[string]models.CanonicalProduct{
		"p-1": fullCanonical("p-1", "WR-1042", "Copper Wire 16ga"),
	}}
	f := newFixture(t, language, catalog, kb, loader)

	// the wire mention routes products alongside the knowledge lookup
	out, err := f.pipeline.Handle(context.Background(), models.ChatRequest{
		TenantID: "t-1", Message: "does the copper wire have a warranty",
	})
	require.NoError(t, err)
	assert.NotEqual(t, []components.ComponentType{components.TypeError}, componentTypes(out))
	assert.Equal(t, "Copper wire carries a one year warranty.", out.ReplyText)
}

func TestHandle_EmptyMessage(t *testing.T) {
	f := newFixture(t, &fakeLanguage{}, &fakeCatalog{}, &fakeKnowledge{}, &fakeLoader{})

	out, err := f.pipeline.Handle(context.Background(), models.ChatRequest{TenantID: "t-1", Message: "   "})
	require.NoError(t, err)
	assert.Equal(t, []components.ComponentType{components.TypeError}, componentTypes(out))
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.language.classifyCalls))
}

func TestHandle_ConversationIDPreserved(t *testing.T) {
	language := &fakeLanguage{
		classifyOut: intent.ClassifierOutput{Intent: "smalltalk", RefinedQuery: "hello"},
		synthOut:    nlu.SynthesisResult{Reply: "Hi there! How can I help?"},
	}
	f := newFixture(t, language, &fakeCatalog{}, &fakeKnowledge{}, &fakeLoader{})

	out, err := f.pipeline.Handle(context.Background(), models.ChatRequest{
		ConversationID: "conv-42", TenantID: "t-1", Message: "hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-42", out.ConversationID)
}
