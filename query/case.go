package query

import (
	"strings"
	"unicode"
)

// toSnake turns a kind name such as "DummyModelRangeQuery" into the
// snake_case prefix of default cache keys. Anything that is not a letter or
// digit separates words, so reflected names like "*query.Kind[main.Team]"
// reduce to "query_kind_main_team".
func toSnake(s string) string {
	isSep := func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }

	var words []string
	for _, field := range strings.FieldsFunc(s, isSep) {
		words = append(words, splitCamel([]rune(field))...)
	}
	return strings.ToLower(strings.Join(words, "_"))
}

// splitCamel breaks a run of letters and digits at case changes, before a
// digit run, and before the last capital of an acronym ("HTTPEvent").
func splitCamel(rs []rune) []string {
	var words []string
	start := 0
	for i := 1; i < len(rs); i++ {
		prev, cur := rs[i-1], rs[i]
		nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])

		var split bool
		switch {
		case unicode.IsUpper(cur):
			split = unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower && unicode.IsUpper(prev)
		case unicode.IsDigit(cur):
			split = !unicode.IsDigit(prev)
		}
		if split {
			words = append(words, string(rs[start:i]))
			start = i
		}
	}
	return append(words, string(rs[start:]))
}
