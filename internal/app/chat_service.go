package app

import (
	"context"
	"fmt"
	"strings"

	"notemind/internal/ai"
	"notemind/internal/model"
)

const groundingInstruction = "You are an intelligent note-taking assistant. " +
	"You answer the user's question based on their existing notes.\n" +
	"The relevant notes for this query are:\n"

// ChatCompleter streams a chat completion, invoking onChunk per token delta.
type ChatCompleter interface {
	StreamComplete(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// ChatService answers a conversational query grounded in the caller's own
// notes: embed the recent turns, retrieve the nearest notes from the vector
// index, inject them as context and relay the streamed completion.
type ChatService struct {
	store      NoteStore
	embedder   Embedder
	vectors    VectorIndex
	llm        ChatCompleter
	maxContext int
	topK       int
}

func NewChatService(
	store NoteStore,
	embedder Embedder,
	vectors VectorIndex,
	llm ChatCompleter,
	maxContext int,
	topK int,
) *ChatService {
	if maxContext <= 0 {
		maxContext = 6
	}
	if topK <= 0 {
		topK = 4
	}
	return &ChatService{
		store:      store,
		embedder:   embedder,
		vectors:    vectors,
		llm:        llm,
		maxContext: maxContext,
		topK:       topK,
	}
}

// StreamAnswer runs the retrieval pipeline and streams the model's answer
// through onChunk. The identity check comes first: unauthenticated callers
// must never cost an embedding call.
func (s *ChatService) StreamAnswer(
	ctx context.Context,
	userID uint,
	messages []ai.ChatMessage,
	onChunk func(string) error,
) (string, error) {
	if userID == 0 {
		return "", ErrUnauthorized
	}
	if len(messages) == 0 {
		return "", ErrInvalidInput
	}
	for _, m := range messages {
		switch m.Role {
		case ai.RoleUser, ai.RoleAssistant, ai.RoleSystem:
		default:
			return "", ErrInvalidInput
		}
	}

	// Older turns are dropped, not summarized. This bounds the size of the
	// embedding input and keeps retrieval focused on recent context.
	recent := trimMessages(messages, s.maxContext)

	contents := make([]string, len(recent))
	for i, m := range recent {
		contents[i] = m.Content
	}
	queryVector, err := s.embedder.Embed(ctx, strings.Join(contents, "\n"))
	if err != nil {
		return "", fmt.Errorf("%w: embed conversation: %v", ErrDependency, err)
	}

	filter := map[string]string{"userId": userIDMetadata(userID)}
	matches, err := s.vectors.Query(ctx, queryVector, s.topK, filter)
	if err != nil {
		return "", fmt.Errorf("%w: query vector index: %v", ErrDependency, err)
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	notes, err := s.store.ListByIDs(ids)
	if err != nil {
		return "", err
	}

	prompt := make([]ai.ChatMessage, 0, len(recent)+1)
	prompt = append(prompt, groundingMessage(notes))
	prompt = append(prompt, recent...)

	full, err := s.llm.StreamComplete(ctx, prompt, onChunk)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", ErrDependency, err)
	}
	return full, nil
}

func trimMessages(messages []ai.ChatMessage, limit int) []ai.ChatMessage {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}

// groundingMessage assembles the retrieved notes into one context block. The
// notes arrive in store order, not similarity rank; all of them end up in a
// single unordered block, so the order does not matter.
func groundingMessage(notes []model.Note) ai.ChatMessage {
	blocks := make([]string, len(notes))
	for i, note := range notes {
		blocks[i] = fmt.Sprintf("Title: %s\n\nContent:\n%s", note.Title, note.Content)
	}
	return ai.ChatMessage{
		Role:    ai.RoleSystem,
		Content: groundingInstruction + strings.Join(blocks, "\n\n"),
	}
}
