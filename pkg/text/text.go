package text

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// RemoveTags strips markup and decodes entities.
func RemoveTags(input string) string {
	return tagPattern.ReplaceAllString(html.UnescapeString(input), "")
}

func CollapseSpaces(input string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(input, " "))
}

// ReduceToLength обрезает строку по границе слова, не длиннее length рун.
// Одно слово длиннее лимита режется посимвольно.
func ReduceToLength(input string, length int) string {
	if utf8.RuneCountInString(input) <= length {
		return input
	}

	var builder strings.Builder
	total := 0
	for i, word := range strings.Split(input, " ") {
		wordLen := utf8.RuneCountInString(word)
		sep := 0
		if i > 0 {
			sep = 1
		}
		if total+sep+wordLen > length {
			if i == 0 {
				return string([]rune(word)[:length])
			}
			break
		}
		if sep == 1 {
			builder.WriteString(" ")
		}
		builder.WriteString(word)
		total += sep + wordLen
	}
	return builder.String()
}

// CleanTitle prepares a user supplied title for display and for the payment
// page.
func CleanTitle(input string, length int) string {
	return ReduceToLength(CollapseSpaces(RemoveTags(input)), length)
}
