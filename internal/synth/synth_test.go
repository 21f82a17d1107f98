package synth

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/personabot/internal/ending"
	"github.com/dgallion1/personabot/internal/intent"
	"github.com/dgallion1/personabot/internal/persona"
	"github.com/dgallion1/personabot/internal/segment"
)

func shortProfile() *persona.Profile {
	return &persona.Profile{
		Name:             "tanaka",
		CommonEndings:    []string{"ね。"},
		AvgMessageLength: 10,
		SampleGreetings:  []string{"おはよう！", "おはようございます！"},
	}
}

func deterministic(opts ...Option) *Assembler {
	return New(append([]Option{WithSelector(ending.First{})}, opts...)...)
}

func TestSynthesize_NoCandidatesReturnsFallback(t *testing.T) {
	a := New()
	for _, q := range []string{"", "どうすればいいですか？", "おはよう", "今日の件"} {
		got, err := a.Synthesize(q, nil, shortProfile())
		require.NoError(t, err)
		assert.Equal(t, DefaultFallback, got, "query %q", q)
	}

	got, err := a.Synthesize("x", []string{}, &persona.Profile{AvgMessageLength: 1})
	require.NoError(t, err)
	assert.Equal(t, DefaultFallback, got)
}

func TestSynthesize_CustomFallback(t *testing.T) {
	a := New(WithFallback("ちょっとわからないです。"), WithFallback("  "))
	got, err := a.Synthesize("x", nil, shortProfile())
	require.NoError(t, err)
	assert.Equal(t, "ちょっとわからないです。", got)
	assert.Equal(t, "ちょっとわからないです。", a.Fallback())
}

func TestSynthesize_ContractViolations(t *testing.T) {
	a := New()

	_, err := a.Synthesize("x", []string{"a"}, nil)
	assert.ErrorIs(t, err, ErrNilProfile)

	_, err = a.Synthesize("x", []string{"a"}, &persona.Profile{AvgMessageLength: 0})
	assert.ErrorIs(t, err, ErrInvalidProfile)
	assert.ErrorIs(t, err, persona.ErrInvalidLength)

	// Without candidates the profile is not consulted.
	got, err := a.Synthesize("x", nil, &persona.Profile{AvgMessageLength: 0})
	require.NoError(t, err)
	assert.Equal(t, DefaultFallback, got)
}

func TestCompose_DetailedPutsStepsFirst(t *testing.T) {
	a := deterministic()
	res, err := a.Compose(Request{
		Query: "どうすればいいですか？",
		Candidates: []string{
			"環境変数を設定する必要があります。",
			"まずリポジトリをクローンします。",
			"次に依存パッケージをインストールします。",
		},
		Profile: shortProfile(),
	})
	require.NoError(t, err)

	assert.Equal(t, intent.Question, res.Intent)
	assert.Equal(t, ModeDetailed, res.Mode)
	assert.Equal(t, "まずリポジトリをクローンします。\n"+
		"次に依存パッケージをインストールします。\n"+
		"環境変数を設定する必要がありますね。", res.Reply)
	assert.Len(t, res.Parts, 3)
}

func TestCompose_DetailedKeepsOrderWithoutActionableFirst(t *testing.T) {
	a := deterministic(WithActionableFirst(false))
	got, err := a.Synthesize("どうすればいいですか？", []string{
		"環境変数を設定する必要があります。",
		"まずリポジトリをクローンします。",
	}, shortProfile())
	require.NoError(t, err)
	assert.Equal(t, "環境変数を設定する必要があります。\nまずリポジトリをクローンしますね。", got)
}

func TestCompose_DetailedLengthFloor(t *testing.T) {
	a := deterministic()
	candidates := []string{
		"まずリポジトリをクローンします。",
		"次に依存パッケージをインストールします。",
		"環境変数を設定する必要があります。",
	}
	p := shortProfile()
	got, err := a.Synthesize("方法を教えて", candidates, p)
	require.NoError(t, err)

	available := 0
	for _, c := range candidates {
		available += segment.TotalLen(segment.Split(c))
	}
	floor := min(int(TargetLength(p)), available)
	assert.GreaterOrEqual(t, segment.Len(got), floor)
}

func TestCompose_DetailedStopsAtTarget(t *testing.T) {
	a := deterministic()
	p := &persona.Profile{CommonEndings: []string{"。"}, AvgMessageLength: 1}
	long := strings.Repeat("あ", 60) + "。" + strings.Repeat("い", 60) + "。" + strings.Repeat("う", 60) + "。"
	res, err := a.Compose(Request{Query: "なぜ？", Candidates: []string{long}, Profile: p})
	require.NoError(t, err)
	assert.Len(t, res.Parts, 2)
}

func TestCompose_DetailedFallsBackToWholeCandidates(t *testing.T) {
	a := deterministic()
	got, err := a.Synthesize("なぜ？", []string{"同じ内容です。", "同じ内容です！"}, shortProfile())
	require.NoError(t, err)
	assert.Equal(t, "同じ内容です。\n同じ内容ですね。", got)
}

func TestCompose_DetailedSingleShortCandidate(t *testing.T) {
	a := deterministic()
	got, err := a.Synthesize("なぜ？", []string{"OK"}, shortProfile())
	require.NoError(t, err)
	assert.Equal(t, "OKね。", got)
}

func TestCompose_BlankCandidatesFallBack(t *testing.T) {
	a := deterministic()
	for _, q := range []string{"なぜ？", "今日の件"} {
		res, err := a.Compose(Request{Query: q, Candidates: []string{"  ", ""}, Profile: shortProfile()})
		require.NoError(t, err)
		assert.Equal(t, DefaultFallback, res.Reply, q)
		assert.Equal(t, ModeFallback, res.Mode, q)
	}
}

func TestCompose_PythonInstallAnswer(t *testing.T) {
	a := deterministic()
	p := &persona.Profile{
		Name:             "helper",
		CommonEndings:    []string{"ます。", "です。", "ね。"},
		AvgMessageLength: 20,
	}
	res, err := a.Compose(Request{
		Query: "Pythonのインストール方法を教えてください",
		Candidates: []string{
			"Pythonをインストールするには、まず公式サイトからダウンロードしてください。",
			"次にインストーラーを実行します。",
			"インストール時にPATHを追加するオプションにチェックを入れることが重要です。",
			"最後にコマンドプロンプトでpython --versionを実行して確認してください。",
			"pipも一緒にインストールされるので便利です。",
		},
		Profile: p,
	})
	require.NoError(t, err)

	assert.Equal(t, ModeDetailed, res.Mode)
	assert.Greater(t, segment.Len(res.Reply), 50)
	assert.Contains(t, res.Reply, "\n")
	assert.True(t, strings.HasPrefix(res.Reply, "Pythonをインストールするには、まず"))
	assert.NotContains(t, res.Reply, "ますます")
}

func TestCompose_CasualTruncatesLongBase(t *testing.T) {
	a := deterministic()
	res, err := a.Compose(Request{
		Query:      "今日の件",
		Candidates: []string{"今日は会議があります。そのあと資料をまとめます。"},
		Profile:    shortProfile(),
	})
	require.NoError(t, err)
	assert.Equal(t, intent.Generic, res.Intent)
	assert.Equal(t, ModeCasual, res.Mode)
	assert.Equal(t, "今日は会議がありますね。", res.Reply)
}

func TestCompose_CasualExtendsShortBase(t *testing.T) {
	a := deterministic()
	got, err := a.Synthesize("今日の件", []string{"了解", "明日やります。よろしく。"}, shortProfile())
	require.NoError(t, err)
	assert.Equal(t, "了解 明日やりますね。", got)
}

func TestCompose_CasualBlankBaseHasNoLeadingSpace(t *testing.T) {
	a := deterministic()
	got, err := a.Synthesize("今日の件", []string{"   ", "明日やります。"}, shortProfile())
	require.NoError(t, err)
	assert.Equal(t, "明日やりますね。", got)
}

func TestCompose_CasualKeepsMatchingEnding(t *testing.T) {
	a := deterministic()
	p := shortProfile()
	p.CommonEndings = []string{"しました。"}
	got, err := a.Synthesize("今日の件", []string{"資料を確認しました。"}, p)
	require.NoError(t, err)
	assert.Equal(t, "資料を確認しました。", got)
}

func TestCompose_CasualWithoutEndings(t *testing.T) {
	a := deterministic()
	p := shortProfile()
	p.CommonEndings = nil
	got, err := a.Synthesize("今日の件", []string{"資料を確認しました。"}, p)
	require.NoError(t, err)
	assert.Equal(t, "資料を確認しました。", got)
}

func TestCompose_GreetingUsesSample(t *testing.T) {
	a := deterministic(WithRand(func(n int) int { return n - 1 }))
	res, err := a.Compose(Request{
		Query:      "おはよう、今日の予定は？",
		Candidates: []string{"今日は会議があります。"},
		Profile:    shortProfile(),
	})
	require.NoError(t, err)
	assert.Equal(t, intent.Greeting, res.Intent)
	assert.Equal(t, ModeGreeting, res.Mode)
	assert.Equal(t, "おはようございます！", res.Reply)
}

func TestCompose_GreetingWithoutSamplesIsCasual(t *testing.T) {
	a := deterministic(WithGreetingSamples(false))
	res, err := a.Compose(Request{
		Query:      "おはようございます",
		Candidates: []string{"おはようございます。"},
		Profile:    shortProfile(),
	})
	require.NoError(t, err)
	assert.Equal(t, ModeCasual, res.Mode)

	p := shortProfile()
	p.SampleGreetings = nil
	res, err = deterministic().Compose(Request{Query: "hello", Candidates: []string{"やあ"}, Profile: p})
	require.NoError(t, err)
	assert.Equal(t, ModeCasual, res.Mode)
}

func TestCompose_ForcedGreetingWithoutSamplesIsCasual(t *testing.T) {
	p := shortProfile()
	p.SampleGreetings = nil
	var res Result
	require.NotPanics(t, func() {
		var err error
		res, err = deterministic().Compose(Request{
			Query:      "x",
			Candidates: []string{"今日は会議です。"},
			Profile:    p,
			Mode:       ModeGreeting,
		})
		require.NoError(t, err)
	})
	assert.Equal(t, ModeCasual, res.Mode)
	assert.Equal(t, "今日は会議ですね。", res.Reply)
}

func TestCompose_GenericModeFollowsThreshold(t *testing.T) {
	candidates := []string{"今日は会議があります。", "資料は共有フォルダにあります。"}

	p := shortProfile()
	p.AvgMessageLength = 45
	res, err := deterministic().Compose(Request{Query: "今日の件", Candidates: candidates, Profile: p})
	require.NoError(t, err)
	assert.Equal(t, ModeDetailed, res.Mode)

	res, err = deterministic(WithCasualThreshold(50)).Compose(Request{Query: "今日の件", Candidates: candidates, Profile: p})
	require.NoError(t, err)
	assert.Equal(t, ModeCasual, res.Mode)

	res, err = deterministic().Compose(Request{Query: "今日の件", Candidates: candidates[:1], Profile: p})
	require.NoError(t, err)
	assert.Equal(t, ModeCasual, res.Mode)
}

func TestCompose_ModeOverride(t *testing.T) {
	res, err := deterministic().Compose(Request{
		Query:      "どうすればいいですか？",
		Candidates: []string{"資料を確認しました。"},
		Profile:    shortProfile(),
		Mode:       ModeCasual,
	})
	require.NoError(t, err)
	assert.Equal(t, intent.Question, res.Intent)
	assert.Equal(t, ModeCasual, res.Mode)
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{"": ModeAuto, "auto": ModeAuto, " Casual ": ModeCasual, "DETAILED": ModeDetailed}
	for in, want := range cases {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("greeting")
	assert.Error(t, err)
}

func TestTargetLength(t *testing.T) {
	assert.InDelta(t, 100, TargetLength(&persona.Profile{AvgMessageLength: 10}), 1e-9)
	assert.InDelta(t, 150, TargetLength(&persona.Profile{AvgMessageLength: 50}), 1e-9)
}

func TestCompose_LogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err := deterministic(WithLogger(log)).Synthesize("なぜ？", []string{"資料を確認しました。"}, shortProfile())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "synthesized reply")
	assert.Contains(t, buf.String(), "intent=question")
}

func TestSynthesize_ConcurrentUse(t *testing.T) {
	a := New()
	p := shortProfile()
	candidates := []string{"まずリポジトリをクローンします。", "次に依存パッケージをインストールします。"}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := a.Synthesize("どうすればいいですか？", candidates, p)
			assert.NoError(t, err)
			assert.NotEmpty(t, got)
		}()
	}
	wg.Wait()
}
