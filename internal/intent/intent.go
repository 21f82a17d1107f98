// Package intent labels an incoming query as a greeting, a question or
// neither, by plain substring matching.
package intent

import "strings"

// Class is the label assigned to a query.
type Class int

const (
	Generic Class = iota
	Question
	Greeting
)

func (c Class) String() string {
	switch c {
	case Question:
		return "question"
	case Greeting:
		return "greeting"
	default:
		return "generic"
	}
}

// DefaultGreetings are the greeting markers for Japanese and English chat.
var DefaultGreetings = []string{
	"おはよう", "こんにちは", "こんばんは", "お疲れ", "おつかれ", "ありがとう", "よろしく",
	"はじめまして", "good morning", "good evening", "hello", "thanks", "thank you",
}

// DefaultQuestions are the question markers for Japanese and English chat.
var DefaultQuestions = []string{
	"？", "?", "ですか", "ますか", "なに", "何", "どう", "いつ", "どこ", "だれ", "誰",
	"どのように", "なぜ", "教えて", "方法", "やり方",
	"who", "what", "when", "where", "why", "how", "method", "how-to",
}

// Classifier holds the marker lists. Markers are matched case-insensitively.
type Classifier struct {
	Greetings []string
	Questions []string
}

// Default returns a Classifier using DefaultGreetings and DefaultQuestions.
func Default() Classifier {
	return Classifier{Greetings: DefaultGreetings, Questions: DefaultQuestions}
}

// Matches runs both scans. A query may be both a greeting and a question.
func (c Classifier) Matches(query string) (greeting, question bool) {
	q := strings.ToLower(query)
	return containsAny(q, c.Greetings), containsAny(q, c.Questions)
}

// Classify resolves overlaps by priority: Greeting, then Question, then Generic.
func (c Classifier) Classify(query string) Class {
	greeting, question := c.Matches(query)
	switch {
	case greeting:
		return Greeting
	case question:
		return Question
	default:
		return Generic
	}
}

// Classify uses the default marker set.
func Classify(query string) Class {
	return Default().Classify(query)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
