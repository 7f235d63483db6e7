package aggregator

import "regexp"

// urlPattern is a permissive extractor for free-form text: any
// http(s)://non-whitespace run. Link Parsers, not this regex, are
// responsible for rejecting anything that isn't a real provider URL.
var urlPattern = regexp.MustCompile(`https?://\S+`)

// extractLinks returns every substring of text matching urlPattern, in the
// order they appear. Trailing punctuation commonly glued onto a URL by
// prose (a closing paren, a period, a comma) is trimmed.
func extractLinks(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, trimTrailingPunctuation(m))
	}
	return out
}

func trimTrailingPunctuation(s string) string {
	for len(s) > 0 {
		last := s[len(s)-1]
		if last == '.' || last == ',' || last == ')' || last == ']' || last == '"' || last == '\'' {
			s = s[:len(s)-1]
			continue
		}
		break
	}
	return s
}
