// internal/chat/components/builders.go
package components

import "fmt"

// productRow is the shared projection for table and card shapes.
type productRow struct {
	ID         string `json:"id,omitempty"`
	SKU        string `json:"sku"`
	Title      string `json:"title"`
	Price      string `json:"price"`
	Currency   string `json:"currency,omitempty"`
	InStock    bool   `json:"inStock"`
	Material   string `json:"material,omitempty"`
	Gauge      string `json:"gauge,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
	ProductURL string `json:"productUrl,omitempty"`
}

func buildQuerySummary(ctx *Context) (ChatComponent, error) {
	query := ctx.RefinedQuery
	if query == "" {
		query = ctx.UserText
	}
	return ChatComponent{Type: TypeQuerySummary, Data: map[string]interface{}{
		"query":   query,
		"intent":  ctx.Intent,
		"filters": ctx.AttributeFilters,
	}}, nil
}

func buildResultCount(ctx *Context) (ChatComponent, error) {
	return ChatComponent{Type: TypeResultCount, Data: map[string]interface{}{
		"count": len(ctx.Products),
	}}, nil
}

func buildProductCards(ctx *Context) (ChatComponent, error) {
	cards := make([]productRow, 0, len(ctx.Products))
	for _, p := range ctx.Products {
		cards = append(cards, productRow{
			ID:         p.ID,
			SKU:        p.SKU,
			Title:      p.Title,
			Price:      p.Price.String(),
			Currency:   p.Currency,
			InStock:    p.InStock,
			ImageURL:   p.ImageURL,
			ProductURL: p.ProductURL,
		})
	}
	return ChatComponent{Type: TypeProductCards, Data: map[string]interface{}{
		"products": cards,
	}}, nil
}

func buildProductTable(ctx *Context) (ChatComponent, error) {
	rows := make([]productRow, 0, len(ctx.Products))
	for _, p := range ctx.Products {
		rows = append(rows, productRow{
			SKU:      p.SKU,
			Title:    p.Title,
			Price:    p.Price.String(),
			Currency: p.Currency,
			InStock:  p.InStock,
			Material: p.Material,
			Gauge:    p.Gauge,
		})
	}
	return ChatComponent{Type: TypeProductTable, Data: map[string]interface{}{
		"columns": []string{"sku", "title", "price", "inStock", "material", "gauge"},
		"rows":    rows,
	}}, nil
}

func buildProductBullets(ctx *Context) (ChatComponent, error) {
	bullets := make([]string, 0, len(ctx.Products))
	for _, p := range ctx.Products {
		bullets = append(bullets, fmt.Sprintf("%s (%s) %s %s", p.Title, p.SKU, p.Price.String(), p.Currency))
	}
	return ChatComponent{Type: TypeProductBullets, Data: map[string]interface{}{
		"items": bullets,
	}}, nil
}

// buildProductDetail renders only the first canonical product. A null payload
// means the planner chose detail mode but resolution came back empty.
func buildProductDetail(ctx *Context) (ChatComponent, error) {
	if len(ctx.Products) == 0 {
		return ChatComponent{Type: TypeProductDetail, Data: nil}, nil
	}
	p := ctx.Products[0]
	return ChatComponent{Type: TypeProductDetail, Data: map[string]interface{}{
		"id":         p.ID,
		"sku":        p.SKU,
		"title":      p.Title,
		"price":      p.Price.String(),
		"currency":   p.Currency,
		"inStock":    p.InStock,
		"stockQty":   p.StockQty,
		"material":   p.Material,
		"gauge":      p.Gauge,
		"imageUrl":   p.ImageURL,
		"productUrl": p.ProductURL,
		"attributes": p.Attributes,
	}}, nil
}

func buildCompare(ctx *Context) (ChatComponent, error) {
	products := ctx.Products
	if len(products) > 5 {
		products = products[:5]
	}

	type compareEntry struct {
		SKU        string            `json:"sku"`
		Title      string            `json:"title"`
		Price      string            `json:"price"`
		Attributes map[string]string `json:"attributes"`
	}
	entries := make([]compareEntry, 0, len(products))
	attrNames := make(map[string]bool)
	for _, p := range products {
		entries = append(entries, compareEntry{
			SKU:        p.SKU,
			Title:      p.Title,
			Price:      p.Price.String(),
			Attributes: p.Attributes,
		})
		for name := range p.Attributes {
			attrNames[name] = true
		}
	}
	return ChatComponent{Type: TypeCompare, Data: map[string]interface{}{
		"products":       entries,
		"attributeCount": len(attrNames),
	}}, nil
}

func buildRecommendations(ctx *Context) (ChatComponent, error) {
	recs := ctx.Recommendations
	if len(recs) == 0 {
		recs = ctx.Products
	}
	items := make([]productRow, 0, len(recs))
	for _, p := range recs {
		items = append(items, productRow{
			SKU:   p.SKU,
			Title: p.Title,
			Price: p.Price.String(),
		})
	}
	return ChatComponent{Type: TypeRecommendations, Data: map[string]interface{}{
		"items": items,
	}}, nil
}

func buildClarify(ctx *Context) (ChatComponent, error) {
	reason := ctx.AmbiguityReason
	if reason == "" {
		reason = "no_results"
	}
	return ChatComponent{Type: TypeClarify, Data: map[string]interface{}{
		"message": "Could you tell me a bit more about what you're looking for?",
		"reason":  reason,
	}}, nil
}

// buildKnowledgeAnswer carries the answer text and source count only; the
// citations themselves travel on the reply envelope.
func buildKnowledgeAnswer(ctx *Context) (ChatComponent, error) {
	return ChatComponent{Type: TypeKnowledgeAnswer, Data: map[string]interface{}{
		"answer":      ctx.KnowledgeAnswer,
		"sourceCount": len(ctx.KnowledgeSources),
	}}, nil
}

func buildActionResult(ctx *Context) (ChatComponent, error) {
	return ChatComponent{Type: TypeActionResult, Data: map[string]interface{}{
		"status":  ctx.ActionStatus,
		"message": ctx.ActionMessage,
	}}, nil
}

func buildError(ctx *Context) (ChatComponent, error) {
	message := ctx.ErrorMessage
	if message == "" {
		message = "Sorry, something went wrong processing that message."
	}
	return ChatComponent{Type: TypeError, Data: map[string]interface{}{
		"message": message,
		"reason":  "pipeline_error",
	}}, nil
}
