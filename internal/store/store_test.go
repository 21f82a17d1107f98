package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/personabot/internal/persona"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "personabot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PersonaRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	p := &persona.Profile{
		Name:             "Tanaka",
		CommonEndings:    []string{"です。", "ね。"},
		AvgMessageLength: 12.5,
		SampleGreetings:  []string{"おはよう！"},
	}
	require.NoError(t, s.SavePersona(ctx, p))

	got, err := s.GetPersona(ctx, "tanaka")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	p.AvgMessageLength = 20
	require.NoError(t, s.SavePersona(ctx, p))
	got, err = s.GetPersona(ctx, "TANAKA")
	require.NoError(t, err)
	assert.InDelta(t, 20, got.AvgMessageLength, 1e-9)

	_, err = s.GetPersona(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SavePersonaValidates(t *testing.T) {
	s := openTest(t)
	err := s.SavePersona(context.Background(), &persona.Profile{Name: "x"})
	assert.ErrorIs(t, err, persona.ErrInvalidLength)

	err = s.SavePersona(context.Background(), &persona.Profile{AvgMessageLength: 3})
	assert.Error(t, err)
}

func TestStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	require.NoError(t, s.SavePersona(ctx, &persona.Profile{Name: "b", AvgMessageLength: 1}))
	require.NoError(t, s.SavePersona(ctx, &persona.Profile{Name: "a", AvgMessageLength: 1}))
	require.NoError(t, s.ReplaceMessages(ctx, "a", []Record{{Text: "x"}}))

	list, err := s.ListPersonas(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)

	require.NoError(t, s.DeletePersona(ctx, "a"))
	n, err := s.MessageCount(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, s.DeletePersona(ctx, "a"), ErrNotFound)
}

func TestStore_ReplaceMessages(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	first := []Record{
		{Text: "おはようございます！", Author: "tanaka", Channel: "general", Embedding: []float32{0.5, -1}},
		{Text: "了解です。"},
	}
	require.NoError(t, s.ReplaceMessages(ctx, "tanaka", first))

	got, err := s.Messages(ctx, "tanaka")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	require.NoError(t, s.ReplaceMessages(ctx, "Tanaka", []Record{{Text: "only"}}))
	got, err = s.Messages(ctx, "tanaka")
	require.NoError(t, err)
	assert.Equal(t, []Record{{Text: "only"}}, got)

	other, err := s.Messages(ctx, "suzuki")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.SavePersona(context.Background(), &persona.Profile{Name: "m", AvgMessageLength: 2}))
	_, err = s.GetPersona(context.Background(), "m")
	assert.NoError(t, err)
}
