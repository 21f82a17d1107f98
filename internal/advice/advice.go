// Package advice pulls procedural or advisory sentences out of messages and
// puts step-like ones first.
package advice

import (
	"regexp"
	"strings"

	"github.com/dgallion1/personabot/internal/segment"
)

var actionablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(して|する|した)ください`),
	regexp.MustCompile(`(して|する|した)方が良い`),
	regexp.MustCompile(`(して|する|した)といい`),
	regexp.MustCompile(`(する|した)方法`),
	regexp.MustCompile(`手順|やり方|ステップ`),
	regexp.MustCompile(`まず|次に|その後|最後に`),
	regexp.MustCompile(`必要|重要|確認|注意|ポイント|コツ`),
	regexp.MustCompile(`試して|おすすめ|推奨`),
	regexp.MustCompile(`できます|可能|使って`),
	regexp.MustCompile(`設定|インストール|実行|変更`),
	regexp.MustCompile(`(?i)\b(please|make sure|recommend(ed)?|install|run|configure|steps?)\b`),
}

var stepKeywords = []string{"まず", "次に", "その後", "最後に", "最初に"}

var (
	stepWords = regexp.MustCompile(`(?i)\b(first|next|then|finally)\b`)
	digit     = regexp.MustCompile(`[0-9０-９]`)
)

// IsActionable reports whether sentence contains an advisory marker.
func IsActionable(sentence string) bool {
	for _, p := range actionablePatterns {
		if p.MatchString(sentence) {
			return true
		}
	}
	return false
}

// IsStep reports whether sentence carries an ordinal or sequence marker.
func IsStep(sentence string) bool {
	for _, kw := range stepKeywords {
		if strings.Contains(sentence, kw) {
			return true
		}
	}
	return stepWords.MatchString(sentence) || digit.MatchString(sentence)
}

// ExtractActionable returns the sentences of message that contain an
// advisory marker, in their original order.
func ExtractActionable(message string) []string {
	var out []string
	for _, s := range segment.Split(message) {
		if IsActionable(s) {
			out = append(out, s)
		}
	}
	return out
}

// OrganizeAsSteps moves step-flagged sentences ahead of the rest. Relative
// order inside each group is kept.
func OrganizeAsSteps(sentences []string) []string {
	if len(sentences) == 0 {
		return nil
	}
	steps := make([]string, 0, len(sentences))
	var others []string
	for _, s := range sentences {
		if IsStep(s) {
			steps = append(steps, s)
		} else {
			others = append(others, s)
		}
	}
	return append(steps, others...)
}
