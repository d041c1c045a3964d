package services

import (
	"regexp"
	"strings"
)

const maxTags = 10

var (
	nonWord   = regexp.MustCompile(`[^\w\s]`)
	stopWords = map[string]struct{}{
		"the": {}, "and": {}, "with": {}, "for": {},
		"una": {}, "con": {}, "del": {}, "que": {}, "por": {},
	}
)

// ExtractTags derives search tags from a prompt: lower-cased words longer
// than two characters, without punctuation or stop words, at most ten, in
// prompt order. Duplicates are kept once.
func ExtractTags(prompt string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(prompt), " ")

	tags := make([]string, 0, maxTags)
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(cleaned) {
		if len([]rune(w)) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		tags = append(tags, w)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}
