package schedule

import "strings"

// suggestion rules are evaluated in order; the first match wins.
var suggestions = []struct {
	match func(string) bool
	expr  string
}{
	{contains("midnight"), "0 0 * * *"},
	{func(s string) bool { return strings.Contains(s, "daily") && strings.Contains(s, "9") }, "0 9 * * *"},
	{contains("daily"), "0 0 * * *"},
	{contains("hourly"), "0 * * * *"},
	{contains("every monday"), "0 9 * * 1"},
	{contains("every friday"), "0 9 * * 5"},
	{contains("week"), "0 0 * * 0"},
	{contains("month"), "0 0 1 * *"},
}

func contains(word string) func(string) bool {
	return func(s string) bool { return strings.Contains(s, word) }
}

// Suggest maps a free-text description to an expression using a small fixed
// keyword table. It returns "" when nothing matches.
func Suggest(text string) string {
	s := strings.ToLower(text)
	for _, rule := range suggestions {
		if rule.match(s) {
			return rule.expr
		}
	}
	return ""
}
