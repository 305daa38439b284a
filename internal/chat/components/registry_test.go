package components

import (
	"testing"

	"commerce-chat/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProducts() []models.CanonicalProduct {
	return []models.CanonicalProduct{
		{
			ID: "p-1", SKU: "WR-1042", Title: "Copper Wire 16ga",
			Price: decimal.NewFromFloat(12.50), Currency: "USD", InStock: true,
			Material: "copper", Gauge: "16",
			Attributes: map[string]string{"material": "copper", "gauge": "16", "coating": "enamel"},
		},
		{
			ID: "p-2", SKU: "CB-2210", Title: "Brass Cable",
			Price: decimal.NewFromFloat(40), Currency: "USD", InStock: false,
			Attributes: map[string]string{"material": "brass"},
		},
	}
}

func TestNewRegistry_CoversAllTypes(t *testing.T) {
	r := NewRegistry()
	for _, typ := range AllTypes {
		b, err := r.BuilderFor(typ)
		require.NoError(t, err, "type %s", typ)
		require.NotNil(t, b)
	}
}

func TestBuilderFor_Unregistered(t *testing.T) {
	r := NewRegistry()
	_, err := r.BuilderFor(ComponentType("holographic_banner"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuilderNotRegistered)
}

func TestBuildComponents_Order(t *testing.T) {
	r := NewRegistry()
	ctx := &Context{UserText: "show me copper wire", Intent: "browse_products", Products: testProducts()}

	got, err := r.BuildComponents([]ComponentType{TypeQuerySummary, TypeResultCount, TypeProductCards}, ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, TypeQuerySummary, got[0].Type)
	assert.Equal(t, TypeResultCount, got[1].Type)
	assert.Equal(t, TypeProductCards, got[2].Type)

	count := got[1].Data.(map[string]interface{})["count"]
	assert.Equal(t, 2, count)
}

func TestBuildComponents_UnknownTypeFailsLoud(t *testing.T) {
	r := NewRegistry()
	_, err := r.BuildComponents([]ComponentType{TypeQuerySummary, ComponentType("nope")}, &Context{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuilderNotRegistered)
}

func TestBuildProductDetail_FirstProductOnly(t *testing.T) {
	got, err := buildProductDetail(&Context{Products: testProducts()})
	require.NoError(t, err)
	data := got.Data.(map[string]interface{})
	assert.Equal(t, "WR-1042", data["sku"])
	assert.Equal(t, "copper", data["material"])
}

func TestBuildProductDetail_EmptyIsNull(t *testing.T) {
	got, err := buildProductDetail(&Context{})
	require.NoError(t, err)
	assert.Nil(t, got.Data)
}

func TestBuildCompare_TopFive(t *testing.T) {
	products := make([]models.CanonicalProduct, 7)
	for i := range products {
		products[i] = models.CanonicalProduct{SKU: "S", Title: "T", Attributes: map[string]string{"material": "x"}}
	}
	got, err := buildCompare(&Context{Products: products})
	require.NoError(t, err)
	data := got.Data.(map[string]interface{})
	entries := data["products"]
	assert.Len(t, entries, 5)
	assert.Equal(t, 1, data["attributeCount"])
}

func TestBuildClarify_DefaultReason(t *testing.T) {
	got, err := buildClarify(&Context{})
	require.NoError(t, err)
	data := got.Data.(map[string]interface{})
	assert.Equal(t, "no_results", data["reason"])
	assert.NotEmpty(t, data["message"])
}

func TestBuildKnowledgeAnswer_SourceCountOnly(t *testing.T) {
	got, err := buildKnowledgeAnswer(&Context{
		KnowledgeAnswer:  "Orders ship in 2 days.",
		KnowledgeSources: []models.KnowledgeSource{{ID: "a1"}, {ID: "a2"}},
	})
	require.NoError(t, err)
	data := got.Data.(map[string]interface{})
	assert.Equal(t, "Orders ship in 2 days.", data["answer"])
	assert.Equal(t, 2, data["sourceCount"])
}

func TestFieldUnion(t *testing.T) {
	union := FieldUnion([]ComponentType{TypeQuerySummary, TypeResultCount, TypeProductCards})
	assert.Equal(t, []string{"id", "sku", "title", "price", "in_stock", "image_url", "product_url"}, union)

	union = FieldUnion([]ComponentType{TypeProductBullets, TypeCompare})
	assert.Equal(t, []string{"title", "price", "sku", "attributes"}, union)

	assert.Empty(t, FieldUnion([]ComponentType{TypeClarify, TypeError}))
}
