package usecase

// DefaultMaxChars bounds a normalized document when no limit is configured.
const DefaultMaxChars = 50_000

// truncateChars keeps the first limit characters of text. A character is a
// rune; invalid UTF-8 bytes count as one character each.
func truncateChars(text string, limit int) (string, bool) {
	if len(text) <= limit {
		return text, false
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i], true
		}
		count++
	}
	return text, false
}
