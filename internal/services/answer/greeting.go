package answer

import "strings"

// greetingTokens is the fixed list the short-circuit matches against.
// Matching is deliberately loose (prefix or embedded word) so "hi there!"
// and "hello bhai" both short-circuit.
var greetingTokens = []string{
	"hello", "hi", "hey", "namaste", "yo", "hola",
	"good morning", "good evening", "good afternoon",
}

// isGreeting reports whether the query is a bare greeting. Greetings skip
// retrieval and generation entirely; the reply is canned persona text.
func isGreeting(query string) bool {
	s := strings.ToLower(strings.TrimSpace(query))
	if s == "" {
		return false
	}
	for _, w := range greetingTokens {
		if s == w || strings.HasPrefix(s, w) || strings.Contains(s, " "+w+" ") {
			return true
		}
	}
	return false
}
