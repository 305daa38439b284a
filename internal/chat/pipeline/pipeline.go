// internal/chat/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"commerce-chat/internal/chat/cache"
	"commerce-chat/internal/chat/components"
	"commerce-chat/internal/chat/gate"
	"commerce-chat/internal/chat/intent"
	"commerce-chat/internal/chat/knowledge"
	"commerce-chat/internal/chat/lexical"
	"commerce-chat/internal/chat/planner"
	"commerce-chat/internal/chat/products"
	"commerce-chat/internal/chat/reply"
	"commerce-chat/internal/chat/resolver"
	commonerrors "commerce-chat/internal/common/errors"
	"commerce-chat/internal/common/logger"
	"commerce-chat/internal/common/metrics"
	"commerce-chat/internal/models"
	"commerce-chat/internal/nlu"

	"github.com/google/uuid"
)

// maxSKULookups bounds the exact-match fan-out for messages stuffed with
// product codes.
const maxSKULookups = 5

// LanguageService is the NLU surface the pipeline consumes: intent
// classification, embedding, and reply synthesis.
type LanguageService interface {
	Classify(ctx context.Context, message, locale string) (intent.ClassifierOutput, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Synthesize(ctx context.Context, req nlu.SynthesisRequest) (nlu.SynthesisResult, error)
}

// KnowledgeRetriever fetches knowledge articles for a question.
type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, query string, policyTopics []string) (*knowledge.Retrieval, error)
}

// Options carries the tunables the pipeline reads per request.
type Options struct {
	Thresholds     products.Thresholds
	CandidateLimit int
	CacheNamespace string
}

// Pipeline is the single linear pass that turns a chat message into a
// structured reply. Each request builds its own component context; the reply
// cache is the only shared mutable resource.
type Pipeline struct {
	language  LanguageService
	catalog   products.Searcher
	knowledge KnowledgeRetriever
	resolver  *resolver.Resolver
	registry  *components.Registry
	cache     *cache.ReplyCache
	options   Options
	logger    logger.Logger
}

func New(language LanguageService, catalog products.Searcher, kb KnowledgeRetriever,
	res *resolver.Resolver, registry *components.Registry, replyCache *cache.ReplyCache,
	options Options, log logger.Logger) *Pipeline {
	if options.CandidateLimit <= 0 {
		options.CandidateLimit = 50
	}
	if options.CacheNamespace == "" {
		options.CacheNamespace = "chat:reply"
	}
	return &Pipeline{
		language:  language,
		catalog:   catalog,
		knowledge: kb,
		resolver:  res,
		registry:  registry,
		cache:     replyCache,
		options:   options,
		logger:    log,
	}
}

// Handle runs one chat turn end to end.
func (p *Pipeline) Handle(ctx context.Context, req models.ChatRequest) (*Output, error) {
	start := time.Now()

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	locale := req.Locale
	if locale == "" {
		locale = "en"
	}
	norm := lexical.Normalize(req.Message)

	if norm == "" {
		out, err := p.renderError(conversationID, req.Message, locale, "I didn't catch that. Could you rephrase your message?")
		metrics.ChatRequestsTotal.WithLabelValues("none", "empty").Inc()
		return out, err
	}

	cacheKey, keyErr := cache.StableKey(p.options.CacheNamespace, cacheKeyInput{
		TenantID: req.TenantID,
		Message:  norm,
		Locale:   locale,
	})
	if keyErr == nil {
		var cached Output
		if p.cache.GetJSON(ctx, cacheKey, &cached) {
			metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
			corrected := reply.NormalizeCached(
				reply.Data{Text: cached.ReplyText, CallToAction: cached.CallToAction},
				len(cached.ProductCarousel) > 0, locale)
			cached.ReplyText = corrected.Text
			cached.CallToAction = corrected.CallToAction
			cached.ConversationID = conversationID
			cached.CacheHit = true
			metrics.ChatRequestsTotal.WithLabelValues(cached.Intent, "cache_hit").Inc()
			return &cached, nil
		}
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	// Classification failures degrade to a knowledge lookup instead of
	// failing the turn.
	classifyStart := time.Now()
	nluOut, err := p.language.Classify(ctx, req.Message, locale)
	metrics.PipelineStageDuration.WithLabelValues("classify").Observe(time.Since(classifyStart).Seconds())
	if err != nil {
		p.logger.Warn("classifier unavailable, degrading to knowledge intent", map[string]interface{}{
			"error": err.Error(),
		})
		nluOut = intent.ClassifierOutput{Intent: intent.IntentKnowledgeQuery, RefinedQuery: req.Message}
	}

	decision := intent.Resolve(nluOut, req.Message)
	attributeFilters := lexical.ExtractAttributeFilters(req.Message)
	detailRequest := lexical.HasDetailCue(norm)

	routing := gate.Decide(gate.Input{
		Intent:          decision.Intent,
		ShowProducts:    decision.ShowProducts,
		IsProductIntent: decision.IsProductIntent,
		SKUToken:        decision.SKUToken,
		AttributeFilter: len(attributeFilters) > 0,
		DetailRequest:   detailRequest,
		UserText:        req.Message,
	})

	selection, knowledgeData, productErr, knowledgeErr := p.retrieve(ctx, decision, routing, req.Message)

	exhausted := (routing.UseProducts || routing.UseKnowledge) &&
		len(selection.Top) == 0 && (knowledgeData == nil || len(knowledgeData.Sources) == 0) &&
		(productErr != nil || knowledgeErr != nil) &&
		(!routing.UseProducts || productErr != nil) &&
		(!routing.UseKnowledge || knowledgeErr != nil)
	if exhausted {
		out, err := p.renderError(conversationID, req.Message, locale, "Our catalog and help center are unavailable right now. Please try again in a moment.")
		metrics.ChatRequestsTotal.WithLabelValues(decision.Intent, "exhausted").Inc()
		return out, err
	}

	isAmbiguous := routing.IsComplex && decision.SKUToken == "" && routing.PolicyTopicCount == 0
	ambiguityReason := ""
	if isAmbiguous {
		ambiguityReason = "complex_query"
	}
	isDetailMode := decision.SKUToken != "" && len(decision.SKUTokens) == 1 && len(selection.Top) == 1

	planStart := time.Now()
	plan := planner.Plan(planner.Input{
		UserText:        req.Message,
		Intent:          decision.Intent,
		SKUCount:        len(decision.SKUTokens),
		ProductCount:    len(selection.Top),
		IsDetailMode:    isDetailMode,
		IsAmbiguous:     isAmbiguous,
		AmbiguityReason: ambiguityReason,
	})
	metrics.PipelineStageDuration.WithLabelValues("plan").Observe(time.Since(planStart).Seconds())

	ids := make([]string, 0, len(selection.Top))
	for _, card := range selection.Top {
		ids = append(ids, card.ID)
	}
	resolveStart := time.Now()
	resolved, resolution, err := p.resolver.Resolve(ctx, ids, plan)
	metrics.PipelineStageDuration.WithLabelValues("resolve").Observe(time.Since(resolveStart).Seconds())
	if err != nil {
		p.logger.Warn("product resolution failed, rendering without canonical data", map[string]interface{}{
			"error": err.Error(),
		})
		resolved = nil
	}

	var knowledgeSources []models.KnowledgeSource
	var knowledgeTexts []string
	if knowledgeData != nil {
		knowledgeSources = knowledgeData.Sources
		for _, src := range knowledgeSources {
			knowledgeTexts = append(knowledgeTexts, src.Content)
		}
	}

	synthStart := time.Now()
	synth, synthErr := p.language.Synthesize(ctx, nlu.SynthesisRequest{
		Message:        req.Message,
		Locale:         locale,
		Intent:         decision.Intent,
		Products:       productSummaries(resolved),
		KnowledgeTexts: knowledgeTexts,
	})
	metrics.PipelineStageDuration.WithLabelValues("synthesize").Observe(time.Since(synthStart).Seconds())
	if synthErr != nil {
		p.logger.Warn("synthesis unavailable, falling back to default reply", map[string]interface{}{
			"error": synthErr.Error(),
		})
		synth = nlu.SynthesisResult{}
	}

	corrected := reply.EnsureConsistent(
		reply.Data{Text: synth.Reply, CallToAction: synth.CallToAction},
		len(resolved) > 0, locale)
	if corrected.Corrected {
		metrics.ReplyCorrections.Inc()
	}
	if corrected.Text == "" {
		// no products, nothing synthesized
		corrected.Text = clarifyFallbackText(knowledgeSources)
	}

	buildCtx := &components.Context{
		UserText:         req.Message,
		RefinedQuery:     decision.SearchQuery,
		Locale:           locale,
		Intent:           decision.Intent,
		Products:         resolved,
		KnowledgeSources: knowledgeSources,
		KnowledgeAnswer:  corrected.Text,
		AttributeFilters: attributeFilters,
		SKUTokens:        decision.SKUTokens,
		AmbiguityReason:  ambiguityReason,
	}
	built, err := p.registry.BuildComponents(plan, buildCtx)
	if err != nil {
		// registry/planner mismatch is a programming error, surface it
		metrics.ChatRequestsTotal.WithLabelValues(decision.Intent, "error").Inc()
		if errors.Is(err, components.ErrBuilderNotRegistered) {
			return nil, commonerrors.NewBuilderNotRegisteredError(err.Error())
		}
		return nil, err
	}
	for _, c := range built {
		metrics.ComponentsBuilt.WithLabelValues(string(c.Type)).Inc()
	}

	sources := append([]models.Citation{}, selection.Sources...)
	sources = append(sources, knowledge.Citations(knowledgeSources)...)

	out := &Output{
		ConversationID:    conversationID,
		ReplyText:         corrected.Text,
		CallToAction:      corrected.CallToAction,
		ProductCarousel:   selection.Top,
		FollowUpQuestions: synth.FollowUps,
		Intent:            decision.Intent,
		Sources:           sources,
		Components:        built,
		FallbackUsed:      selection.FallbackUsed,
		Resolution:        resolution,
	}

	if keyErr == nil && synthErr == nil {
		p.cache.SetJSON(ctx, cacheKey, out)
	}

	metrics.ChatRequestsTotal.WithLabelValues(decision.Intent, "ok").Inc()
	metrics.PipelineStageDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	return out, nil
}

// retrieve fans out to the catalog and knowledge indexes the gate selected.
// The two branches run concurrently; a failed branch yields empty data and
// its error, never an aborted request.
func (p *Pipeline) retrieve(ctx context.Context, decision intent.Decision, routing gate.Decision, userText string) (products.Selection, *knowledge.Retrieval, error, error) {
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		selection    products.Selection
		knowledgeOut *knowledge.Retrieval
		productErr   error
		knowledgeErr error
	)

	if routing.UseProducts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sel, err := p.searchProducts(ctx, decision)
			mu.Lock()
			selection, productErr = sel, err
			mu.Unlock()
		}()
	}

	if routing.UseKnowledge {
		wg.Add(1)
		go func() {
			defer wg.Done()
			topics := lexical.ExtractPolicyTopics(userText)
			if !routing.IsPolicyIntent {
				topics = nil
			}
			ret, err := p.knowledge.Retrieve(ctx, decision.SearchQuery, topics)
			mu.Lock()
			knowledgeOut, knowledgeErr = ret, err
			mu.Unlock()
		}()
	}

	wg.Wait()

	if productErr != nil {
		p.logger.Warn("catalog search failed, continuing without products", map[string]interface{}{
			"error": productErr.Error(),
		})
		selection = products.Selection{}
	}
	if knowledgeErr != nil {
		p.logger.Warn("knowledge search failed, continuing without articles", map[string]interface{}{
			"error": knowledgeErr.Error(),
		})
		knowledgeOut = nil
	}
	return selection, knowledgeOut, productErr, knowledgeErr
}

// searchProducts runs exact SKU lookups ahead of the vector search and merges
// the results, exact hits first.
func (p *Pipeline) searchProducts(ctx context.Context, decision intent.Decision) (products.Selection, error) {
	var exact []models.ProductCard
	skus := decision.SKUTokens
	if len(skus) > maxSKULookups {
		skus = skus[:maxSKULookups]
	}
	for _, sku := range skus {
		card, err := p.catalog.GetProductBySKU(ctx, sku)
		if err != nil {
			return products.Selection{}, err
		}
		if card != nil {
			exact = append(exact, *card)
		}
	}

	searchStart := time.Now()
	embedding, err := p.language.Embed(ctx, decision.SearchQuery)
	if err != nil {
		if len(exact) > 0 {
			return exactOnlySelection(exact), nil
		}
		return products.Selection{}, err
	}

	result, err := p.catalog.VectorSearch(ctx, embedding, p.options.Thresholds.Limit, p.options.CandidateLimit)
	metrics.PipelineStageDuration.WithLabelValues("catalog_search").Observe(time.Since(searchStart).Seconds())
	if err != nil {
		if len(exact) > 0 {
			return exactOnlySelection(exact), nil
		}
		return products.Selection{}, err
	}

	selection := products.SelectPrimaryProducts(result.Cards, result.BestDistance,
		decision.ShowProducts, decision.Intent, p.options.Thresholds)

	if len(exact) > 0 {
		selection.Top = mergeCards(exact, selection.Top, p.options.Thresholds.Limit)
		if len(selection.Sources) == 0 {
			selection = exactOnlySelection(selection.Top)
		}
	}
	return selection, nil
}

func exactOnlySelection(cards []models.ProductCard) products.Selection {
	return products.Selection{
		Top: cards,
		Sources: []models.Citation{{
			Title:      "Catalog matches",
			SourceType: "catalog",
			Relevance:  1.0,
		}},
	}
}

// mergeCards prepends exact hits, deduplicating by id, capped at limit.
func mergeCards(exact, rest []models.ProductCard, limit int) []models.ProductCard {
	if limit <= 0 {
		limit = 10
	}
	seen := make(map[string]bool, len(exact))
	out := make([]models.ProductCard, 0, limit)
	for _, card := range exact {
		if seen[card.ID] {
			continue
		}
		seen[card.ID] = true
		out = append(out, card)
	}
	for _, card := range rest {
		if len(out) >= limit {
			break
		}
		if seen[card.ID] {
			continue
		}
		seen[card.ID] = true
		out = append(out, card)
	}
	return out
}

func productSummaries(items []models.CanonicalProduct) []map[string]interface{} {
	if len(items) == 0 {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, p := range items {
		out = append(out, map[string]interface{}{
			"sku":     p.SKU,
			"title":   p.Title,
			"price":   p.Price.String(),
			"inStock": p.InStock,
		})
	}
	return out
}

func clarifyFallbackText(sources []models.KnowledgeSource) string {
	if len(sources) > 0 {
		var titles []string
		for i, src := range sources {
			if i == 3 {
				break
			}
			titles = append(titles, src.Title)
		}
		return "Here's what I found in our help center: " + strings.Join(titles, ", ") + "."
	}
	return "I couldn't find an answer for that. Could you try rephrasing your question?"
}

// renderError produces the single-component error reply used for empty input
// and total data-source exhaustion.
func (p *Pipeline) renderError(conversationID, userText, locale, message string) (*Output, error) {
	buildCtx := &components.Context{UserText: userText, Locale: locale, ErrorMessage: message}
	built, err := p.registry.BuildComponents([]components.ComponentType{components.TypeError}, buildCtx)
	if err != nil {
		return nil, err
	}
	return &Output{
		ConversationID:    conversationID,
		ReplyText:         message,
		Intent:            intent.IntentOther,
		Components:        built,
		ProductCarousel:   []models.ProductCard{},
		FollowUpQuestions: []string{},
		Sources:           []models.Citation{},
	}, nil
}
