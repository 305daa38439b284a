package resolver

import (
	"context"
	"errors"
	"testing"

	"commerce-chat/internal/chat/components"
	"commerce-chat/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	products    []models.CanonicalProduct
	attrs       map[string]map[string]string
	loadCalls   int
	attrCalls   int
	loadErr     error
	attrErr     error
	lastAttrIDs []string
}

func (f *fakeLoader) GetByIDs(_ context.Context, _ []string) ([]models.CanonicalProduct, error) {
	f.loadCalls++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]models.CanonicalProduct, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeLoader) GetAttributes(_ context.Context, ids []string) (map[string]map[string]string, error) {
	f.attrCalls++
	f.lastAttrIDs = ids
	if f.attrErr != nil {
		return nil, f.attrErr
	}
	return f.attrs, nil
}

func fullProduct(id, sku string) models.CanonicalProduct {
	return models.CanonicalProduct{
		ID: id, SKU: sku, Title: "Copper Wire",
		Price: decimal.NewFromFloat(12.5), Currency: "USD", InStock: true,
		Material: "copper", Gauge: "16",
		ImageURL: "http://img", ProductURL: "http://prod",
		Attributes: map[string]string{"material": "copper", "gauge": "16"},
	}
}

func TestResolve_BaseRowsSufficient(t *testing.T) {
	loader := &fakeLoader{products: []models.CanonicalProduct{fullProduct("p-1", "WR-1042")}}
	r := NewResolver(loader)

	items, meta, err := r.Resolve(context.Background(), []string{"p-1"},
		[]components.ComponentType{components.TypeQuerySummary, components.TypeResultCount, components.TypeProductCards})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.False(t, meta.EnrichmentUsed)
	assert.Equal(t, 1, meta.DBRoundTrips)
	assert.Equal(t, 7, meta.FieldUnionSize)
	assert.Equal(t, 1, loader.loadCalls)
	assert.Equal(t, 0, loader.attrCalls)
}

func TestResolve_MissingFieldTriggersSingleEnrichment(t *testing.T) {
	bare := models.CanonicalProduct{
		ID: "p-1", SKU: "WR-1042", Title: "Copper Wire",
		Price: decimal.NewFromFloat(12.5), Currency: "USD", InStock: true,
	}
	other := models.CanonicalProduct{
		ID: "p-2", SKU: "CB-2210", Title: "Brass Cable",
		Price: decimal.NewFromFloat(40), Currency: "USD",
	}
	loader := &fakeLoader{
		products: []models.CanonicalProduct{bare, other},
		attrs: map[string]map[string]string{
			"p-1": {"material": "copper", "gauge": "16", "coating": "enamel"},
			"p-2": {"material": "brass"},
		},
	}
	r := NewResolver(loader)

	// compare and detail both need the full attribute set
	items, meta, err := r.Resolve(context.Background(), []string{"p-1", "p-2"},
		[]components.ComponentType{components.TypeQuerySummary, components.TypeCompare, components.TypeProductDetail, components.TypeResultCount})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.True(t, meta.EnrichmentUsed)
	assert.Equal(t, 2, meta.DBRoundTrips)
	assert.Equal(t, 1, loader.loadCalls)
	assert.Equal(t, 1, loader.attrCalls)
	assert.Equal(t, []string{"p-1", "p-2"}, loader.lastAttrIDs)

	assert.Equal(t, "copper", items[0].Material)
	assert.Equal(t, "16", items[0].Gauge)
	assert.Equal(t, "enamel", items[0].Attributes["coating"])
	assert.Equal(t, "brass", items[1].Material)
}

func TestResolve_EnrichmentNeverOverwritesBaseValues(t *testing.T) {
	seeded := models.CanonicalProduct{
		ID: "p-1", SKU: "WR-1042", Title: "Copper Wire",
		Price: decimal.NewFromFloat(12.5), Currency: "USD",
		Attributes: map[string]string{"material": "copper"},
		Material:   "copper",
	}
	loader := &fakeLoader{
		products: []models.CanonicalProduct{seeded},
		attrs:    map[string]map[string]string{"p-1": {"material": "tin", "gauge": "16"}},
	}
	r := NewResolver(loader)

	items, _, err := r.Resolve(context.Background(), []string{"p-1"},
		[]components.ComponentType{components.TypeProductDetail})
	require.NoError(t, err)
	assert.Equal(t, "copper", items[0].Attributes["material"])
	assert.Equal(t, "16", items[0].Gauge)
}

func TestResolve_NoIDs(t *testing.T) {
	loader := &fakeLoader{}
	r := NewResolver(loader)

	items, meta, err := r.Resolve(context.Background(), nil,
		[]components.ComponentType{components.TypeProductCards})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, meta.DBRoundTrips)
	assert.Equal(t, 0, loader.loadCalls)
}

func TestResolve_ZeroFieldTypes(t *testing.T) {
	loader := &fakeLoader{products: []models.CanonicalProduct{fullProduct("p-1", "WR-1042")}}
	r := NewResolver(loader)

	_, meta, err := r.Resolve(context.Background(), []string{"p-1"},
		[]components.ComponentType{components.TypeQuerySummary, components.TypeKnowledgeAnswer})
	require.NoError(t, err)
	assert.Equal(t, 0, meta.FieldUnionSize)
	assert.Equal(t, 1, meta.DBRoundTrips)
	assert.Equal(t, 0, loader.attrCalls)
}

func TestResolve_BaseLoadError(t *testing.T) {
	loader := &fakeLoader{loadErr: errors.New("QUERY_EXECUTION_FAILED")}
	r := NewResolver(loader)

	_, _, err := r.Resolve(context.Background(), []string{"p-1"},
		[]components.ComponentType{components.TypeProductCards})
	assert.Error(t, err)
}

func TestResolve_EnrichmentFailureKeepsBaseRows(t *testing.T) {
	bare := models.CanonicalProduct{ID: "p-1", SKU: "WR-1042", Title: "Copper Wire", Currency: "USD"}
	loader := &fakeLoader{
		products: []models.CanonicalProduct{bare},
		attrErr:  errors.New("QUERY_EXECUTION_FAILED"),
	}
	r := NewResolver(loader)

	items, meta, err := r.Resolve(context.Background(), []string{"p-1"},
		[]components.ComponentType{components.TypeProductDetail})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, meta.EnrichmentUsed)
	assert.Equal(t, 2, meta.DBRoundTrips)
}
