// internal/chat/products/store.go
package products

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"commerce-chat/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var ErrCatalogQueryFailed = errors.New("CATALOG_SEARCH_FAILED")

// Searcher is the catalog search capability the pipeline consumes.
type Searcher interface {
	VectorSearch(ctx context.Context, embedding []float32, limit, candidateLimit int) (*SearchResult, error)
	GetProductBySKU(ctx context.Context, sku string) (*models.ProductCard, error)
}

// Loader is the bulk-load capability the field resolver consumes.
type Loader interface {
	GetByIDs(ctx context.Context, ids []string) ([]models.CanonicalProduct, error)
	GetAttributes(ctx context.Context, ids []string) (map[string]map[string]string, error)
}

// SearchResult is one vector search round trip.
type SearchResult struct {
	Cards        []models.ProductCard
	BestDistance float64
	Took         time.Duration
}

// Store is the postgres-backed catalog store. Vector similarity runs against
// a pgvector column on the products table.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// VectorSearch returns up to limit nearest products by embedding distance,
// scanned out of a candidate window of candidateLimit rows.
func (s *Store) VectorSearch(ctx context.Context, embedding []float32, limit, candidateLimit int) (*SearchResult, error) {
	start := time.Now()
	if candidateLimit < limit {
		candidateLimit = limit
	}

	query := `SELECT id, sku, title, category, price::text, currency, in_stock, image_url, product_url,
	                 embedding <=> $1 AS distance
	          FROM products
	          ORDER BY distance
	          LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, vectorParam(embedding), candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
	}
	defer rows.Close()

	result := &SearchResult{BestDistance: 1.0}
	for rows.Next() {
		var card models.ProductCard
		var imageURL, productURL sql.NullString
		if err := rows.Scan(&card.ID, &card.SKU, &card.Title, &card.Category, &card.Price,
			&card.Currency, &card.InStock, &imageURL, &productURL, &card.Distance); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
		}
		card.ImageURL = imageURL.String
		card.ProductURL = productURL.String
		if len(result.Cards) == 0 || card.Distance < result.BestDistance {
			result.BestDistance = card.Distance
		}
		if len(result.Cards) < limit {
			result.Cards = append(result.Cards, card)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
	}

	result.Took = time.Since(start)
	return result, nil
}

// GetProductBySKU fetches a single product card by exact SKU.
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.ProductCard, error) {
	query := `SELECT id, sku, title, category, price::text, currency, in_stock, image_url, product_url
	          FROM products WHERE sku = $1`

	var card models.ProductCard
	var imageURL, productURL sql.NullString
	err := s.db.QueryRowContext(ctx, query, strings.ToUpper(sku)).Scan(
		&card.ID, &card.SKU, &card.Title, &card.Category, &card.Price,
		&card.Currency, &card.InStock, &imageURL, &productURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
	}
	card.ImageURL = imageURL.String
	card.ProductURL = productURL.String
	return &card, nil
}

// GetByIDs loads base product rows for all ids in one query. The attrs JSON
// column carries whatever lightweight attributes were denormalized onto the
// base row; the full attribute set lives in product_attributes.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]models.CanonicalProduct, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id, sku, title, price::text, currency, in_stock, stock_qty,
	                 image_url, product_url, attrs
	          FROM products WHERE id = ANY($1)`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
	}
	defer rows.Close()

	byID := make(map[string]models.CanonicalProduct, len(ids))
	for rows.Next() {
		var p models.CanonicalProduct
		var priceStr string
		var imageURL, productURL sql.NullString
		var attrsJSON []byte
		if err := rows.Scan(&p.ID, &p.SKU, &p.Title, &priceStr, &p.Currency, &p.InStock,
			&p.StockQty, &imageURL, &productURL, &attrsJSON); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
		}
		p.Price, _ = decimal.NewFromString(priceStr)
		p.ImageURL = imageURL.String
		p.ProductURL = productURL.String
		if len(attrsJSON) > 0 {
			var attrs map[string]string
			if err := json.Unmarshal(attrsJSON, &attrs); err == nil {
				p.Attributes = attrs
				p.Material = attrs["material"]
				p.Gauge = attrs["gauge"]
			}
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
	}

	// Preserve the caller's id order.
	out := make([]models.CanonicalProduct, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetAttributes bulk-loads the extended attribute set for all ids in one
// query. This is the resolver's single enrichment round trip.
func (s *Store) GetAttributes(ctx context.Context, ids []string) (map[string]map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT product_id, name, value
	          FROM product_attributes WHERE product_id = ANY($1)`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
	}
	defer rows.Close()

	out := make(map[string]map[string]string)
	for rows.Next() {
		var productID, name, value string
		if err := rows.Scan(&productID, &name, &value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
		}
		if out[productID] == nil {
			out[productID] = make(map[string]string)
		}
		out[productID][name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
	}
	return out, nil
}

// vectorParam renders an embedding in pgvector's text format.
func vectorParam(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
