package service

import (
	"strings"
	"unicode"
)

// PartialAttributes holds the detail fields keyword inference can derive
// from an item's free-text name and description. Nil means "no signal";
// inference never asserts a negative.
type PartialAttributes struct {
	Category    *string
	Format      *string
	IsStaffPick *bool
}

// formatRules are ordered most specific first; the first match wins so the
// result is deterministic. A 7-inch pressing is also vinyl, so it must be
// checked before the generic vinyl keywords.
var formatRules = []struct {
	format  string
	phrases []string
	tokens  []string
}{
	{`7" Single`, []string{"7-inch", "7 inch", "45 rpm", "45rpm"}, []string{`7"`}},
	{"Cassette", []string{"cassette"}, []string{"tape", "mc"}},
	{"CD", []string{"compact disc"}, []string{"cd", "cds"}},
	{"Vinyl", []string{"vinyl", "12-inch", "180 gram", "180g", "33 rpm"}, []string{"lp", `12"`}},
}

// categoryRules are ordered so that narrower genres match before broad ones;
// "rock" goes last because many descriptions name it incidentally.
var categoryRules = []struct {
	category string
	phrases  []string
	tokens   []string
}{
	{"Jazz", []string{"jazz", "bebop", "hard bop"}, nil},
	{"Soul / Funk", []string{"motown"}, []string{"soul", "funk"}},
	{"Hip-Hop", []string{"hip hop", "hip-hop"}, []string{"rap"}},
	{"Electronic", []string{"electronic", "techno", "ambient", "drum and bass"}, []string{"house", "idm"}},
	{"Reggae / Dub", []string{"reggae"}, []string{"dub", "ska"}},
	{"Punk", []string{"punk"}, []string{"hardcore"}},
	{"Blues", nil, []string{"blues"}},
	{"Classical", []string{"classical", "symphony", "orchestra"}, nil},
	{"Country", []string{"bluegrass"}, []string{"country"}},
	{"Folk", []string{"singer-songwriter"}, []string{"folk"}},
	{"Rock", []string{"psychedelic"}, []string{"rock", "indie", "garage"}},
}

var staffPickPhrases = []string{
	"staff pick", "staff favorite", "staff favourite",
	"shop favorite", "shop favourite",
}

// InferAttributes derives category, format, and staff-pick hints from free
// text. It is pure and total: same input, same output, no I/O. Callers use
// it only to fill fields the source payload left empty.
func InferAttributes(name, description string) PartialAttributes {
	text := strings.ToLower(name + " " + description)
	tokens := tokenize(text)

	var out PartialAttributes

	for _, rule := range formatRules {
		if matchesAny(text, tokens, rule.phrases, rule.tokens) {
			f := rule.format
			out.Format = &f
			break
		}
	}

	for _, rule := range categoryRules {
		if matchesAny(text, tokens, rule.phrases, rule.tokens) {
			c := rule.category
			out.Category = &c
			break
		}
	}

	for _, phrase := range staffPickPhrases {
		if strings.Contains(text, phrase) {
			yes := true
			out.IsStaffPick = &yes
			break
		}
	}

	return out
}

func matchesAny(text string, tokens map[string]bool, phrases, tokenWords []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	for _, w := range tokenWords {
		if tokens[w] {
			return true
		}
	}
	return false
}

// tokenize splits lowered text into word tokens. The double-quote rune is
// kept so size markers like 7" and 12" survive as distinct tokens.
func tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '"'
	})
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		tokens[f] = true
	}
	return tokens
}
