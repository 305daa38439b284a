package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureConsistent_NoProductsIsNoOp(t *testing.T) {
	in := Data{Text: "I couldn't find anything matching that."}
	got := EnsureConsistent(in, false, "en")
	assert.Equal(t, in, got)
	assert.False(t, got.Corrected)
}

func TestEnsureConsistent_ContradictionReplaced(t *testing.T) {
	in := Data{Text: "I couldn't find specific 16 gauge options, please check our catalog."}
	got := EnsureConsistent(in, true, "en")
	assert.True(t, got.Corrected)
	assert.Equal(t, "Here are the products that match your request.", got.Text)
	assert.NotEmpty(t, got.CallToAction)
}

func TestEnsureConsistent_EmptyTextReplaced(t *testing.T) {
	got := EnsureConsistent(Data{Text: "   "}, true, "en")
	assert.True(t, got.Corrected)
	assert.NotEmpty(t, got.Text)
}

func TestEnsureConsistent_HonestReplyUntouched(t *testing.T) {
	in := Data{Text: "We have 8 copper wires in stock.", CallToAction: "Want a comparison?"}
	got := EnsureConsistent(in, true, "en")
	assert.False(t, got.Corrected)
	assert.Equal(t, in.Text, got.Text)
	assert.Equal(t, "Want a comparison?", got.CallToAction)
}

func TestEnsureConsistent_LocalizedDefaults(t *testing.T) {
	got := EnsureConsistent(Data{Text: "no match"}, true, "es-MX")
	assert.Equal(t, "Estos son los productos que coinciden con tu búsqueda.", got.Text)

	got = EnsureConsistent(Data{Text: "no match"}, true, "de")
	assert.Equal(t, "Hier sind die Produkte, die zu Ihrer Anfrage passen.", got.Text)

	// unknown locale falls back to english
	got = EnsureConsistent(Data{Text: "no match"}, true, "pt-BR")
	assert.Equal(t, "Here are the products that match your request.", got.Text)
}

func TestContradictsResults(t *testing.T) {
	assert.True(t, ContradictsResults("Sorry, NO MATCH for that."))
	assert.True(t, ContradictsResults("please email sales@example.com"))
	assert.True(t, ContradictsResults("We could not find that item"))
	assert.False(t, ContradictsResults("Here are 3 great options"))
}

func TestNormalizeCached_PreservesExistingHint(t *testing.T) {
	in := Data{Text: "nothing found here", CallToAction: "Browse the sale section"}
	got := NormalizeCached(in, true, "en")
	assert.True(t, got.Corrected)
	assert.Equal(t, "Browse the sale section", got.CallToAction)
}

func TestNormalizeCached_FillsMissingHint(t *testing.T) {
	got := NormalizeCached(Data{Text: "Here you go"}, true, "en")
	assert.False(t, got.Corrected)
	assert.NotEmpty(t, got.CallToAction)
}
