// Package lexical provides the deterministic text signals the pipeline uses
// alongside (and independently of) the classifier: SKU tokens, code-shape
// checks, cue detection and policy-topic counting. Everything here is a pure
// function over the message text.
package lexical

import (
	"regexp"
	"strings"
)

var (
	// Codes look like "AB-1234", "SKU12345", "X200-C". At least two digits,
	// letters and digits mixed, optional dashes.
	codeShapeRe = regexp.MustCompile(`^[A-Z]{1,6}-?[A-Z0-9]*\d{2,}[A-Z0-9-]*$`)
	skuTokenRe  = regexp.MustCompile(`\b[A-Za-z]{1,6}-?\d{2,}[A-Za-z0-9-]*\b`)

	whitespaceRe = regexp.MustCompile(`\s+`)

	gaugeRe = regexp.MustCompile(`\b(\d{1,2})\s*(?:ga|gauge)\b`)
)

var policyTopics = []string{
	"shipping", "delivery", "return", "refund", "warranty",
	"exchange", "payment", "privacy", "cancellation",
}

var materialWords = []string{
	"stainless", "steel", "copper", "brass", "aluminum", "aluminium",
	"galvanized", "nickel", "titanium", "plastic", "nylon",
}

var categoryWords = []string{
	"wire", "cable", "sheet", "tube", "pipe", "rod", "mesh",
	"connector", "fitting", "fastener", "bracket",
}

// Normalize lowercases and collapses whitespace. All cue matching runs on
// normalized text.
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToLower(text), " "))
}

// CleanCode strips surrounding punctuation and uppercases a classifier
// proposed product code so it can be shape-checked.
func CleanCode(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9')
	})
	return strings.ToUpper(s)
}

// LooksLikeCode reports whether a cleaned token has product-code shape.
func LooksLikeCode(s string) bool {
	if len(s) < 4 || len(s) > 24 {
		return false
	}
	return codeShapeRe.MatchString(s)
}

// ExtractSKUs finds all lexical SKU tokens in the raw message, in order of
// appearance, deduplicated, uppercased.
func ExtractSKUs(text string) []string {
	matches := skuTokenRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		token := strings.ToUpper(m)
		if !LooksLikeCode(token) || seen[token] {
			continue
		}
		seen[token] = true
		out = append(out, token)
	}
	return out
}

// ExtractSKU returns the first lexical SKU token, or "".
func ExtractSKU(text string) string {
	skus := ExtractSKUs(text)
	if len(skus) == 0 {
		return ""
	}
	return skus[0]
}

// IsQuestionLike reports whether the message reads as a question.
func IsQuestionLike(text string) bool {
	norm := Normalize(text)
	if strings.Contains(norm, "?") {
		return true
	}
	for _, w := range []string{"what", "which", "how", "why", "where", "when", "who", "can i", "do you", "is there", "are there"} {
		if strings.HasPrefix(norm, w+" ") || norm == w {
			return true
		}
	}
	return false
}

// IsComplex reports whether the message likely packs multiple asks.
func IsComplex(text string) bool {
	norm := Normalize(text)
	words := strings.Fields(norm)
	if len(words) > 18 {
		return true
	}
	conjunctions := 0
	for _, w := range words {
		switch w {
		case "and", "also", "plus", "versus", "vs":
			conjunctions++
		}
	}
	return conjunctions >= 2
}

// CountPolicyTopics counts distinct store-policy topics referenced in the
// message. Used to trigger multi-hop knowledge decomposition.
func CountPolicyTopics(text string) int {
	norm := Normalize(text)
	count := 0
	for _, topic := range policyTopics {
		if strings.Contains(norm, topic) {
			count++
		}
	}
	return count
}

// ExtractPolicyTopics returns the distinct store-policy topics referenced in
// the message, in canonical topic order.
func ExtractPolicyTopics(text string) []string {
	norm := Normalize(text)
	var topics []string
	for _, topic := range policyTopics {
		if strings.Contains(norm, topic) {
			topics = append(topics, topic)
		}
	}
	return topics
}

// ExtractAttributeFilters pulls simple structured filters (gauge, material)
// out of the text.
func ExtractAttributeFilters(text string) map[string]string {
	norm := Normalize(text)
	filters := make(map[string]string)

	if m := gaugeRe.FindStringSubmatch(norm); m != nil {
		filters["gauge"] = m[1]
	}
	for _, mat := range materialWords {
		if strings.Contains(norm, mat) {
			filters["material"] = mat
			break
		}
	}

	if len(filters) == 0 {
		return nil
	}
	return filters
}

// InferCategory returns a catalog category keyword mentioned in the text, or "".
func InferCategory(text string) string {
	norm := " " + Normalize(text) + " "
	for _, cat := range categoryWords {
		if strings.Contains(norm, " "+cat+" ") || strings.Contains(norm, " "+cat+"s ") {
			return cat
		}
	}
	return ""
}

// --- rendering cues consumed by the output planner ---

func HasCompareCue(norm string) bool {
	return strings.Contains(norm, "compare") || strings.Contains(norm, " vs ") || strings.Contains(norm, "versus")
}

func HasTableCue(norm string) bool {
	for _, cue := range []string{"table", "grid", "spreadsheet"} {
		if strings.Contains(norm, cue) {
			return true
		}
	}
	return false
}

func HasBulletCue(norm string) bool {
	for _, cue := range []string{"bullet", "short list", "shortlist", "list them"} {
		if strings.Contains(norm, cue) {
			return true
		}
	}
	return false
}

func HasCountCue(norm string) bool {
	for _, cue := range []string{"how many", "count", "number of"} {
		if strings.Contains(norm, cue) {
			return true
		}
	}
	return false
}

func HasRecommendCue(norm string) bool {
	for _, cue := range []string{"suggest", "recommend", "minimal"} {
		if strings.Contains(norm, cue) {
			return true
		}
	}
	return false
}

func HasDetailCue(norm string) bool {
	for _, cue := range []string{"detail", "details", "specs", "specification", "tell me more", "more about"} {
		if strings.Contains(norm, cue) {
			return true
		}
	}
	return false
}
