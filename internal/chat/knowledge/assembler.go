// internal/chat/knowledge/assembler.go
package knowledge

import (
	"context"
	"fmt"

	"commerce-chat/internal/models"
)

// Scorer reranks a candidate set against the original question. Implemented
// by the rerank client; a nil Scorer leaves search order untouched.
type Scorer interface {
	Rerank(ctx context.Context, query string, sources []models.KnowledgeSource) ([]models.KnowledgeSource, error)
}

// Retrieval is the outcome of one knowledge lookup.
type Retrieval struct {
	Sources             []models.KnowledgeSource
	DecompositionUsed   bool
	DecompositionReason string
}

// Retriever fetches knowledge articles for a user question. Questions that
// span several policy topics are decomposed into one sub-query per topic so
// each topic surfaces its own article.
type Retriever struct {
	store  Searcher
	scorer Scorer
	limit  int
}

func NewRetriever(store Searcher, scorer Scorer, limit int) *Retriever {
	if limit <= 0 {
		limit = 5
	}
	return &Retriever{store: store, scorer: scorer, limit: limit}
}

// Retrieve runs the knowledge lookup. policyTopics drives decomposition:
// with two or more topics the query fans out per topic and results merge
// deduplicated by article id, first hit wins.
func (r *Retriever) Retrieve(ctx context.Context, query string, policyTopics []string) (*Retrieval, error) {
	out := &Retrieval{}

	if len(policyTopics) >= 2 {
		out.DecompositionUsed = true
		out.DecompositionReason = fmt.Sprintf("question spans %d policy topics", len(policyTopics))

		seen := make(map[string]bool)
		for _, topic := range policyTopics {
			sub := fmt.Sprintf("%s %s", topic, query)
			sources, err := r.store.Search(ctx, sub, r.limit)
			if err != nil {
				return nil, err
			}
			for _, src := range sources {
				if seen[src.ID] {
					continue
				}
				seen[src.ID] = true
				out.Sources = append(out.Sources, src)
			}
		}
	} else {
		sources, err := r.store.Search(ctx, query, r.limit)
		if err != nil {
			return nil, err
		}
		out.Sources = sources
	}

	if r.scorer != nil && len(out.Sources) > 1 {
		if ranked, err := r.scorer.Rerank(ctx, query, out.Sources); err == nil {
			out.Sources = ranked
		}
		// rerank failures keep the search order
	}

	if len(out.Sources) > r.limit {
		out.Sources = out.Sources[:r.limit]
	}
	return out, nil
}

// Citations converts retrieved articles into reply citations.
func Citations(sources []models.KnowledgeSource) []models.Citation {
	citations := make([]models.Citation, 0, len(sources))
	for _, src := range sources {
		snippet := src.Content
		if len(snippet) > 240 {
			snippet = snippet[:240]
		}
		citations = append(citations, models.Citation{
			Title:      src.Title,
			Snippet:    snippet,
			URL:        src.URL,
			SourceType: "knowledge",
			Relevance:  src.Score,
		})
	}
	return citations
}
