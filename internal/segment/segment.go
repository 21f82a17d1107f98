package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Terminators are the runes that end a sentence. '.' is left out on purpose:
// chat messages are full of versions, file names and URLs.
const Terminators = "。！？!?"

// DefaultTerminal is appended when a sentence needs closing punctuation.
const DefaultTerminal = "。"

// IsTerminator reports whether r ends a sentence.
func IsTerminator(r rune) bool {
	return strings.ContainsRune(Terminators, r)
}

// Split breaks text into sentences on any run of terminators. Fragments are
// trimmed and empty ones dropped; order is preserved.
func Split(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, r := range text {
		if IsTerminator(r) {
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()

	return sentences
}

// First returns the first sentence of text, or "" if there is none.
func First(text string) string {
	sentences := Split(text)
	if len(sentences) == 0 {
		return ""
	}
	return sentences[0]
}

// Len counts characters (runes), which is what every length budget uses.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// TrimEnd strips any trailing run of terminators and/or whitespace.
func TrimEnd(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return IsTerminator(r) || unicode.IsSpace(r)
	})
}

// HasTerminal reports whether s ends with a terminator.
func HasTerminal(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	if size == 0 {
		return false
	}
	return IsTerminator(r)
}

// EnsureTerminal appends DefaultTerminal unless s already ends with one.
func EnsureTerminal(s string) string {
	if HasTerminal(s) {
		return s
	}
	return s + DefaultTerminal
}

// TotalLen sums the character length of parts.
func TotalLen(parts []string) int {
	n := 0
	for _, p := range parts {
		n += Len(p)
	}
	return n
}
