package query

import "regexp"

// locationPattern matches one or more consecutive capitalized words after
// "at", "in", or "from". It runs against the original-case query, since
// capitalization is the evidence of a proper noun. Sentence-initial
// capitalization can fire spuriously; that tradeoff is accepted.
var locationPattern = regexp.MustCompile(`\b(?:at|in|from)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)

// extractLocations collects place-name phrases in order of appearance.
// Matches are kept raw and may repeat.
func extractLocations(original string) []string {
	matches := locationPattern.FindAllStringSubmatch(original, -1)
	if len(matches) == 0 {
		return nil
	}

	locations := make([]string, 0, len(matches))
	for _, m := range matches {
		locations = append(locations, m[1])
	}
	return locations
}
