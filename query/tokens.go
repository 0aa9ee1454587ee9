package query

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9&'-]+`)

// stopwords never carry search signal on their own
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "from": true,
	"by": true, "with": true, "about": true, "into": true, "near": true,
	"around": true, "regarding": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "am": true,
	"what": true, "which": true, "who": true, "whom": true, "whose": true,
	"when": true, "where": true, "why": true, "how": true, "show": true,
	"me": true, "tell": true, "give": true, "list": true, "find": true,
	"get": true, "see": true, "all": true, "any": true, "some": true,
	"my": true, "our": true, "your": true, "their": true, "this": true,
	"that": true, "these": true, "those": true, "there": true, "here": true,
	"do": true, "does": true, "did": true, "has": true, "have": true,
	"had": true, "can": true, "could": true, "will": true, "would": true,
	"should": true, "please": true, "i": true, "we": true, "you": true,
	"it": true, "its": true, "project": true, "projects": true,
	"details": true, "info": true, "information": true, "ward": true,
	"no": true, "not": true, "number": true, "latest": true, "last": true,
	"recent": true, "current": true, "currently": true, "happening": true,
	"planned": true, "going": true, "status": true, "area": true,
	"locality": true, "region": true, "side": true, "many": true,
	"much": true, "also": true, "than": true, "then": true, "up": true,
	"out": true, "so": true, "if": true, "as": true, "like": true,
	"know": true, "want": true, "need": true, "let": true, "us": true,
}

// IsStopword reports whether w is in the fixed stopword set
func IsStopword(w string) bool {
	return stopwords[w]
}

// Tokenize lower-cases s and splits it into alphanumeric tokens that may
// contain &, ' and -
func Tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// SearchWords returns the distinct non-stopword tokens of s that are at
// least two characters long, in order of first appearance
func SearchWords(s string) []string {
	var words []string
	seen := make(map[string]bool)
	for _, tok := range Tokenize(s) {
		tok = strings.Trim(tok, "'-&")
		if len(tok) < 2 || stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		words = append(words, tok)
	}
	return words
}

// contentTokens drops stopwords but keeps order and duplicates
func contentTokens(s string) []string {
	var out []string
	for _, tok := range Tokenize(s) {
		if !stopwords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// trimStopwords strips stopword tokens from both ends of a phrase
func trimStopwords(phrase string) string {
	fields := strings.Fields(phrase)
	for len(fields) > 0 && stopwords[strings.Trim(fields[0], ".'")] {
		fields = fields[1:]
	}
	for len(fields) > 0 && stopwords[strings.Trim(fields[len(fields)-1], ".'")] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
