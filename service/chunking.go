package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minChunkLength = 50
	excerptLength  = 200
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// splitParagraphs splits text on blank lines and drops paragraphs shorter than minChunkLength runes
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := paragraphBreak.Split(text, -1)

	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) < minChunkLength {
			continue
		}
		chunks = append(chunks, part)
	}
	return chunks
}

// excerpt returns the first n runes of s
func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
