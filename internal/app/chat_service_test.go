package app

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"notemind/internal/ai"
)

type fakeLLM struct {
	chunks []string
	err    error

	prompt []ai.ChatMessage
}

func (f *fakeLLM) StreamComplete(_ context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	f.prompt = messages
	if f.err != nil {
		return "", f.err
	}
	var full strings.Builder
	for _, chunk := range f.chunks {
		full.WriteString(chunk)
		if err := onChunk(chunk); err != nil {
			return "", err
		}
	}
	return full.String(), nil
}

func userMessage(content string) ai.ChatMessage {
	return ai.ChatMessage{Role: ai.RoleUser, Content: content}
}

func newChatFixture(t *testing.T) (*ChatService, *fakeNoteStore, *fakeEmbedder, *fakeVectorIndex, *fakeLLM) {
	t.Helper()
	store := newFakeNoteStore()
	embedder := &fakeEmbedder{}
	vectors := newFakeVectorIndex()
	llm := &fakeLLM{chunks: []string{"Paris", ", in June."}}
	svc := NewChatService(store, embedder, vectors, llm, 6, 4)
	return svc, store, embedder, vectors, llm
}

func seedNote(t *testing.T, store *fakeNoteStore, embedder *fakeEmbedder, vectors *fakeVectorIndex, userID uint, title, content string) {
	t.Helper()
	noteSvc := newNoteService(store, embedder, vectors, nil)
	_, err := noteSvc.Create(context.Background(), CreateNoteInput{UserID: userID, Title: title, Content: content})
	require.NoError(t, err)
}

func TestChatServiceStreamAnswer(t *testing.T) {
	t.Run("unauthenticated caller costs no embedding", func(t *testing.T) {
		svc, _, embedder, _, _ := newChatFixture(t)

		_, err := svc.StreamAnswer(context.Background(), 0, []ai.ChatMessage{userMessage("hi")}, discardChunks)
		require.ErrorIs(t, err, ErrUnauthorized)
		require.Empty(t, embedder.inputs)
	})

	t.Run("empty conversation is invalid", func(t *testing.T) {
		svc, _, _, _, _ := newChatFixture(t)

		_, err := svc.StreamAnswer(context.Background(), 7, nil, discardChunks)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown role is invalid", func(t *testing.T) {
		svc, _, embedder, _, _ := newChatFixture(t)

		_, err := svc.StreamAnswer(context.Background(), 7, []ai.ChatMessage{{Role: "tool", Content: "x"}}, discardChunks)
		require.ErrorIs(t, err, ErrInvalidInput)
		require.Empty(t, embedder.inputs)
	})

	t.Run("embeds exactly the last six messages", func(t *testing.T) {
		svc, _, embedder, _, _ := newChatFixture(t)

		messages := make([]ai.ChatMessage, 10)
		for i := range messages {
			messages[i] = userMessage(fmt.Sprintf("turn-%d", i))
		}

		_, err := svc.StreamAnswer(context.Background(), 7, messages, discardChunks)
		require.NoError(t, err)

		require.Len(t, embedder.inputs, 1)
		want := "turn-4\nturn-5\nturn-6\nturn-7\nturn-8\nturn-9"
		require.Equal(t, want, embedder.inputs[0])
	})

	t.Run("queries top four filtered to the caller", func(t *testing.T) {
		svc, _, _, vectors, _ := newChatFixture(t)

		_, err := svc.StreamAnswer(context.Background(), 7, []ai.ChatMessage{userMessage("hi")}, discardChunks)
		require.NoError(t, err)

		require.Equal(t, 4, vectors.lastTopK)
		require.Equal(t, map[string]string{"userId": "7"}, vectors.lastFilter)
	})

	t.Run("grounds the answer in the caller's notes only", func(t *testing.T) {
		svc, store, embedder, vectors, llm := newChatFixture(t)
		seedNote(t, store, embedder, vectors, 7, "Trip", "Paris in June")
		seedNote(t, store, embedder, vectors, 8, "Recipe", "Pasta")

		_, err := svc.StreamAnswer(context.Background(), 7, []ai.ChatMessage{userMessage("Where am I going?")}, discardChunks)
		require.NoError(t, err)

		require.NotEmpty(t, llm.prompt)
		grounding := llm.prompt[0]
		require.Equal(t, ai.RoleSystem, grounding.Role)
		require.Contains(t, grounding.Content, "Trip")
		require.Contains(t, grounding.Content, "Paris in June")
		require.NotContains(t, grounding.Content, "Recipe")
		require.NotContains(t, grounding.Content, "Pasta")
	})

	t.Run("sends grounding message followed by the recent turns", func(t *testing.T) {
		svc, _, _, _, llm := newChatFixture(t)

		messages := []ai.ChatMessage{userMessage("first"), userMessage("second")}
		_, err := svc.StreamAnswer(context.Background(), 7, messages, discardChunks)
		require.NoError(t, err)

		require.Len(t, llm.prompt, 3)
		require.Equal(t, ai.RoleSystem, llm.prompt[0].Role)
		require.Equal(t, messages, llm.prompt[1:])
	})

	t.Run("relays chunks in order and returns the full answer", func(t *testing.T) {
		svc, _, _, _, _ := newChatFixture(t)

		var got []string
		full, err := svc.StreamAnswer(context.Background(), 7, []ai.ChatMessage{userMessage("hi")}, func(chunk string) error {
			got = append(got, chunk)
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, []string{"Paris", ", in June."}, got)
		require.Equal(t, "Paris, in June.", full)
	})

	t.Run("embedding failure is a dependency error", func(t *testing.T) {
		svc, _, embedder, _, _ := newChatFixture(t)
		embedder.err = errBoom

		_, err := svc.StreamAnswer(context.Background(), 7, []ai.ChatMessage{userMessage("hi")}, discardChunks)
		require.ErrorIs(t, err, ErrDependency)
	})

	t.Run("vector query failure is a dependency error", func(t *testing.T) {
		svc, _, _, vectors, _ := newChatFixture(t)
		vectors.queryErr = errBoom

		_, err := svc.StreamAnswer(context.Background(), 7, []ai.ChatMessage{userMessage("hi")}, discardChunks)
		require.ErrorIs(t, err, ErrDependency)
	})

	t.Run("completion failure is a dependency error", func(t *testing.T) {
		svc, _, _, _, llm := newChatFixture(t)
		llm.err = errBoom

		_, err := svc.StreamAnswer(context.Background(), 7, []ai.ChatMessage{userMessage("hi")}, discardChunks)
		require.ErrorIs(t, err, ErrDependency)
	})
}

func discardChunks(string) error { return nil }
