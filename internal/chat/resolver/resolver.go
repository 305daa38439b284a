// internal/chat/resolver/resolver.go
package resolver

import (
	"context"

	"commerce-chat/internal/chat/components"
	"commerce-chat/internal/chat/products"
	"commerce-chat/internal/common/metrics"
	"commerce-chat/internal/models"
)

// Metadata reports how a resolution was served. It feeds observability and
// tests, never control flow elsewhere.
type Metadata struct {
	EnrichmentUsed bool `json:"enrichmentUsed"`
	DBRoundTrips   int  `json:"dbRoundTrips"`
	FieldUnionSize int  `json:"fieldUnionSize"`
}

// Resolver loads canonical products with exactly the fields the planned
// components need. The base load is one bulk query; if any required field is
// missing on any row it performs one, and only one, bulk enrichment lookup
// across all candidate ids. Worst-case backend load is two round trips no
// matter how many components or candidates are in play.
type Resolver struct {
	loader products.Loader
}

func NewResolver(loader products.Loader) *Resolver {
	return &Resolver{loader: loader}
}

// Resolve returns canonical products for the ids, in id order, enriched when
// the planned component types demand fields the base rows lack.
func (r *Resolver) Resolve(ctx context.Context, ids []string, types []components.ComponentType) ([]models.CanonicalProduct, Metadata, error) {
	union := components.FieldUnion(types)
	meta := Metadata{FieldUnionSize: len(union)}

	if len(ids) == 0 {
		return nil, meta, nil
	}

	items, err := r.loader.GetByIDs(ctx, ids)
	if err != nil {
		return nil, meta, err
	}
	meta.DBRoundTrips = 1

	if !missingAny(items, union) {
		return items, meta, nil
	}

	attrs, err := r.loader.GetAttributes(ctx, ids)
	meta.DBRoundTrips = 2
	meta.EnrichmentUsed = true
	metrics.EnrichmentRoundTrips.Inc()
	if err != nil {
		// enrichment is best effort, the base rows still render
		return items, meta, nil
	}

	for i := range items {
		extra := attrs[items[i].ID]
		if len(extra) == 0 {
			continue
		}
		if items[i].Attributes == nil {
			items[i].Attributes = make(map[string]string, len(extra))
		}
		for name, value := range extra {
			if _, ok := items[i].Attributes[name]; !ok {
				items[i].Attributes[name] = value
			}
		}
		if items[i].Material == "" {
			items[i].Material = items[i].Attributes["material"]
		}
		if items[i].Gauge == "" {
			items[i].Gauge = items[i].Attributes["gauge"]
		}
	}
	return items, meta, nil
}

func missingAny(items []models.CanonicalProduct, fields []string) bool {
	for i := range items {
		for _, f := range fields {
			if !items[i].HasField(f) {
				return true
			}
		}
	}
	return false
}
