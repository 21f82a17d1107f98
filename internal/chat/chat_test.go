package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/personabot/internal/ending"
	"github.com/dgallion1/personabot/internal/persona"
	"github.com/dgallion1/personabot/internal/retrieval"
	"github.com/dgallion1/personabot/internal/synth"
)

var errNotFound = errors.New("not found")

type fakePersonas map[string]*persona.Profile

func (f fakePersonas) GetPersona(_ context.Context, name string) (*persona.Profile, error) {
	if p, ok := f[name]; ok {
		return p, nil
	}
	return nil, errNotFound
}

type failingSearcher struct{ err error }

func (f failingSearcher) Search(context.Context, string, int) ([]retrieval.Match, error) {
	return nil, f.err
}

func (f failingSearcher) Retrieve(context.Context, string, int) ([]string, error) {
	return nil, f.err
}

var history = []string{
	"こんにちは、今日もよろしく！",
	"Pythonは公式サイトからインストーラーをダウンロードしてね。",
	"インストールしたらパスを通してください。",
	"今日は雨だね。",
}

func newTestResponder(t *testing.T) (*Responder, *retrieval.Registry) {
	t.Helper()
	profiles := fakePersonas{
		"alice": {
			Name:             "alice",
			AvgMessageLength: 20,
			CommonEndings:    []string{"だよ。"},
			SampleGreetings:  []string{"やっほー！"},
		},
		"bob": {Name: "bob", AvgMessageLength: 10},
	}
	reg := retrieval.NewRegistry()
	reg.Set("alice", retrieval.NewLexicalRetriever(history))

	asm := synth.New(synth.WithSelector(ending.First{}))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewResponder(profiles, reg, asm, 3, nil, log), reg
}

func TestExtractQuery(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		botID     string
		query     string
		addressed bool
	}{
		{"ask command", "!ask Pythonの入れ方は？", "42", "Pythonの入れ方は？", true},
		{"mention", "<@42> 雨かな", "42", "雨かな", true},
		{"nickname mention", "<@!42> 雨かな", "42", "雨かな", true},
		{"mention in the middle", "ねえ <@42> 元気？", "42", "ねえ  元気？", true},
		{"bare ask", "!ask ", "42", "", true},
		{"mention only", "<@42>", "42", "", true},
		{"not addressed", "今日は雨だね", "42", "", false},
		{"ask without space", "!askで聞いて", "42", "", false},
		{"other user mentioned", "<@7> こんにちは", "42", "", false},
		{"no bot id", "<@42> hi", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, addressed := ExtractQuery(tt.content, tt.botID)
			assert.Equal(t, tt.addressed, addressed)
			assert.Equal(t, tt.query, query)
		})
	}
}

func TestRespond_EmptyQuery(t *testing.T) {
	r, _ := newTestResponder(t)
	reply, err := r.Respond(context.Background(), Request{Persona: "alice", Query: "   "})
	require.NoError(t, err)
	assert.Equal(t, EmptyQueryReply, reply.Text)
}

func TestRespond_NoKnowledge(t *testing.T) {
	r, _ := newTestResponder(t)
	reply, err := r.Respond(context.Background(), Request{Persona: "bob", Query: "元気？"})
	require.NoError(t, err)
	assert.Equal(t, NoKnowledgeReply, reply.Text)
}

func TestRespond_EmptyKnowledge(t *testing.T) {
	r, reg := newTestResponder(t)
	reg.Set("bob", retrieval.NewLexicalRetriever(nil))
	reply, err := r.Respond(context.Background(), Request{Persona: "bob", Query: "元気？"})
	require.NoError(t, err)
	assert.Equal(t, NoKnowledgeReply, reply.Text)
}

func TestRespond_UnknownPersona(t *testing.T) {
	r, _ := newTestResponder(t)
	_, err := r.Respond(context.Background(), Request{Persona: "carol", Query: "元気？"})
	require.ErrorIs(t, err, errNotFound)
}

func TestRespond_Question(t *testing.T) {
	r, _ := newTestResponder(t)
	reply, err := r.Respond(context.Background(), Request{Persona: "alice", Query: "Pythonのインストール方法は？"})
	require.NoError(t, err)

	assert.Equal(t, "question", reply.Intent)
	assert.Equal(t, "detailed", reply.Mode)
	require.NotEmpty(t, reply.Candidates)
	assert.Contains(t, reply.Candidates[0], "インスト")
	assert.Contains(t, reply.Text, "\n")
	assert.Contains(t, reply.Text, "だよ。")
}

func TestRespond_Greeting(t *testing.T) {
	r, _ := newTestResponder(t)
	reply, err := r.Respond(context.Background(), Request{Persona: "alice", Query: "こんにちは"})
	require.NoError(t, err)
	assert.Equal(t, "greeting", reply.Intent)
	assert.Equal(t, "やっほー！", reply.Text)
}

func TestRespond_NoMatchesFallsBack(t *testing.T) {
	r, _ := newTestResponder(t)
	reply, err := r.Respond(context.Background(), Request{Persona: "alice", Query: "xyz"})
	require.NoError(t, err)
	assert.Equal(t, synth.DefaultFallback, reply.Text)
	assert.Equal(t, "fallback", reply.Mode)
}

func TestRespond_ModeOverride(t *testing.T) {
	r, _ := newTestResponder(t)
	reply, err := r.Respond(context.Background(), Request{
		Persona: "alice",
		Query:   "Pythonのインストール方法は？",
		Mode:    synth.ModeCasual,
	})
	require.NoError(t, err)
	assert.Equal(t, "casual", reply.Mode)
	assert.NotContains(t, reply.Text, "\n")
}

func TestRespond_RetrievalError(t *testing.T) {
	r, reg := newTestResponder(t)
	boom := errors.New("index offline")
	reg.Set("alice", failingSearcher{err: boom})

	_, err := r.Respond(context.Background(), Request{Persona: "alice", Query: "元気？"})
	require.ErrorIs(t, err, boom)
}

func TestHandleMessage(t *testing.T) {
	r, _ := newTestResponder(t)

	_, addressed, err := r.HandleMessage(context.Background(), "alice", "今日は雨だね", "42")
	require.NoError(t, err)
	assert.False(t, addressed)

	reply, addressed, err := r.HandleMessage(context.Background(), "alice", "!ask ", "42")
	require.NoError(t, err)
	assert.True(t, addressed)
	assert.Equal(t, EmptyQueryReply, reply.Text)

	reply, addressed, err = r.HandleMessage(context.Background(), "alice", "<@42> こんにちは", "42")
	require.NoError(t, err)
	assert.True(t, addressed)
	assert.Equal(t, "やっほー！", reply.Text)
}

func TestSimilar(t *testing.T) {
	r, _ := newTestResponder(t)

	text, matches, err := r.Similar(context.Background(), "alice", "インストール", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, FormatSimilar(retrieval.Texts(matches)), text)

	text, _, err = r.Similar(context.Background(), "bob", "インストール", 0)
	require.NoError(t, err)
	assert.Equal(t, NoKnowledgeReply, text)

	text, _, err = r.Similar(context.Background(), "alice", "", 0)
	require.NoError(t, err)
	assert.Equal(t, EmptyQueryReply, text)
}

func TestFormatSimilar(t *testing.T) {
	got := FormatSimilar([]string{"雨だね。", "晴れだね。"})
	assert.Equal(t, "過去の類似メッセージ:\n- 雨だね。\n- 晴れだね。", got)
}
