package sanitize

import "strings"

// queryOperatorChars are the characters the keyword index's query grammar
// treats as operators (§4.5.3). Each is replaced with a single space.
const queryOperatorChars = `?*+-()^~"':./`

// Query sanitizes a keyword-search query by blanking out operator
// characters and collapsing whitespace. If the result would be empty, the
// original string is returned unchanged so the caller can surface the
// resulting backend error instead of silently querying for nothing.
func Query(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	for _, r := range q {
		if strings.ContainsRune(queryOperatorChars, r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}

	collapsed := strings.Join(strings.Fields(b.String()), " ")
	if collapsed == "" {
		return q
	}
	return collapsed
}
