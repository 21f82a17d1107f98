package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity_Identical(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("インストール", "インストール"), 1e-9)
}

func TestSimilarity_Disjoint(t *testing.T) {
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
}

func TestSimilarity_EmptyIsZero(t *testing.T) {
	assert.Zero(t, Similarity("", "abc"))
	assert.Zero(t, Similarity("abc", ""))
}

func TestSimilarity_MembershipNotPosition(t *testing.T) {
	// Reordered characters still count as shared.
	assert.InDelta(t, 1.0, Similarity("cba", "abc"), 1e-9)
	// Repeated characters in a count each time.
	assert.InDelta(t, 0.75, Similarity("aaab", "acdc"), 1e-9)
}

func TestSimilarity_DividesByLonger(t *testing.T) {
	// 3 shared chars over max(3, 6).
	assert.InDelta(t, 0.5, Similarity("abc", "abcxyz"), 1e-9)
}

func TestIsNearDuplicate(t *testing.T) {
	used := []string{"Pythonのインストールは公式サイトからできます"}
	assert.True(t, IsNearDuplicate("Pythonのインストールは公式サイトからできる", used))
	assert.False(t, IsNearDuplicate("ダウンロードページで自分のOSを選んでください", used))
	assert.False(t, IsNearDuplicate("anything", nil))
}

func TestIsNearDuplicate_ThresholdIsStrict(t *testing.T) {
	// Exactly 0.6 is not a duplicate.
	assert.False(t, IsNearDuplicate("abcxy", []string{"abcde"}))
	assert.True(t, IsNearDuplicate("abcdy", []string{"abcde"}))
}

func TestSet_RejectsShortSentences(t *testing.T) {
	var s Set
	assert.False(t, s.Accept("OK"))
	assert.False(t, s.Accept(""))
	assert.Equal(t, 0, s.Len())

	// Even with unrelated content already accepted.
	assert.True(t, s.Accept("まったく関係ない文章です"))
	assert.False(t, s.Accept("zz"))
}

func TestSet_RejectsNearDuplicates(t *testing.T) {
	var s Set
	assert.True(t, s.Accept("設定ファイルを確認してください"))
	assert.False(t, s.Accept("設定ファイルを確認してね"))
	assert.True(t, s.Accept("ログを見ると原因がわかります"))
	assert.Equal(t, []string{"設定ファイルを確認してください", "ログを見ると原因がわかります"}, s.Items())
}

func TestSet_ItemsIsCopy(t *testing.T) {
	var s Set
	s.Accept("最初の文です")
	items := s.Items()
	items[0] = "changed"
	assert.Equal(t, "最初の文です", s.Items()[0])
}
