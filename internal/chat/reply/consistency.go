// internal/chat/reply/consistency.go
package reply

import "strings"

// Data is the mutable text portion of a reply, before it is wrapped in the
// response envelope.
type Data struct {
	Text         string `json:"text"`
	CallToAction string `json:"callToAction"`
	Corrected    bool   `json:"-"`
}

// noMatchMarkers is the closed list of phrases a generated reply may contain
// when the model believes nothing was found. Matching is case-insensitive
// substring.
var noMatchMarkers = []string{
	"couldn't find",
	"couldn t find",
	"could not find",
	"no match",
	"no matching",
	"nothing found",
	"not available in our catalog",
	"check our catalog",
	"check back later",
	"email sales@",
	"contact sales@",
}

type localeDefaults struct {
	reply string
	hint  string
}

var defaults = map[string]localeDefaults{
	"en": {
		reply: "Here are the products that match your request.",
		hint:  "Tap a product to see details or ask me to compare options.",
	},
	"es": {
		reply: "Estos son los productos que coinciden con tu búsqueda.",
		hint:  "Toca un producto para ver detalles o pídeme comparar opciones.",
	},
	"de": {
		reply: "Hier sind die Produkte, die zu Ihrer Anfrage passen.",
		hint:  "Tippen Sie auf ein Produkt für Details oder lassen Sie mich Optionen vergleichen.",
	},
}

func defaultsFor(locale string) localeDefaults {
	lang := strings.ToLower(locale)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if d, ok := defaults[lang]; ok {
		return d
	}
	return defaults["en"]
}

// ContradictsResults reports whether the text claims nothing was found.
func ContradictsResults(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range noMatchMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// EnsureConsistent corrects a freshly generated reply against what retrieval
// actually found. When products exist but the text is empty or claims no
// match, the text is replaced with a localized default so the user never
// reads "nothing found" next to a populated carousel.
func EnsureConsistent(data Data, hasProducts bool, locale string) Data {
	if !hasProducts {
		return data
	}

	d := defaultsFor(locale)
	if strings.TrimSpace(data.Text) == "" || ContradictsResults(data.Text) {
		data.Text = d.reply
		data.Corrected = true
	}
	if strings.TrimSpace(data.CallToAction) == "" {
		data.CallToAction = d.hint
	}
	return data
}

// NormalizeCached applies the same correction to a reply served from cache.
// A pre-existing non-empty hint survives; only the text claim is corrected.
func NormalizeCached(data Data, hasProducts bool, locale string) Data {
	if !hasProducts {
		return data
	}

	d := defaultsFor(locale)
	if strings.TrimSpace(data.Text) == "" || ContradictsResults(data.Text) {
		data.Text = d.reply
		data.Corrected = true
	}
	if data.CallToAction == "" {
		data.CallToAction = d.hint
	}
	return data
}
