// internal/chat/knowledge/search.go
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"commerce-chat/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ErrKnowledgeSearchFailed = errors.New("KNOWLEDGE_SEARCH_FAILED")

// Searcher is the knowledge search capability the retriever consumes.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.KnowledgeSource, error)
}

// ESStore runs full-text knowledge searches against an elasticsearch index
// of help-center and policy articles.
type ESStore struct {
	client *elasticsearch.Client
	index  string
}

func NewESStore(client *elasticsearch.Client, index string) *ESStore {
	return &ESStore{client: client, index: index}
}

// Search returns up to limit articles matching the query, best first.
func (s *ESStore) Search(ctx context.Context, query string, limit int) ([]models.KnowledgeSource, error) {
	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "content", "category"},
			},
		},
		"size": limit,
	}

	body, _ := json.Marshal(queryBody)
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKnowledgeSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrKnowledgeSearchFailed, res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Title    string `json:"title"`
					Content  string `json:"content"`
					Category string `json:"category"`
					URL      string `json:"url"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKnowledgeSearchFailed, err)
	}

	sources := make([]models.KnowledgeSource, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		sources = append(sources, models.KnowledgeSource{
			ID:       hit.ID,
			Title:    hit.Source.Title,
			Content:  hit.Source.Content,
			Category: hit.Source.Category,
			URL:      hit.Source.URL,
			Score:    hit.Score,
		})
	}
	return sources, nil
}
