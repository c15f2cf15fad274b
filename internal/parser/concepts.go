package parser

import "strings"

// seedVocabulary is the fixed, deliberately small and editable concept
// vocabulary §4.3 defines.
var seedVocabulary = []string{
	"trust", "pattern", "mirror", "append", "history", "context", "delete",
	"behavior", "intention", "decision", "human", "external", "brain",
	"command", "oracle", "timestamp", "immutable", "preserve",
}

// ExtractConcepts lowercases title+body and returns every seed-vocabulary
// token present as a substring, deterministically.
func ExtractConcepts(title, body string) []string {
	combined := strings.ToLower(title + " " + body)

	var concepts []string
	for _, token := range seedVocabulary {
		if strings.Contains(combined, token) {
			concepts = append(concepts, token)
		}
	}
	return concepts
}
