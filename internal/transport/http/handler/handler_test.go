package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"notemind/internal/ai"
	"notemind/internal/app"
	"notemind/internal/model"
	"notemind/internal/pkg/jwtutil"
	"notemind/internal/transport/http/middleware"
	"notemind/internal/vectorindex"
)

const testSecret = "handler-test-secret"

type memEmbedder struct{}

func (memEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

type memVectors struct {
	metadata map[string]map[string]string
}

func newMemVectors() *memVectors {
	return &memVectors{metadata: map[string]map[string]string{}}
}

func (m *memVectors) Upsert(_ context.Context, id string, _ []float32, metadata map[string]string) error {
	m.metadata[id] = metadata
	return nil
}

func (m *memVectors) DeleteOne(_ context.Context, id string) error {
	delete(m.metadata, id)
	return nil
}

func (m *memVectors) Query(_ context.Context, _ []float32, topK int, filter map[string]string) ([]vectorindex.Match, error) {
	var matches []vectorindex.Match
	for id, md := range m.metadata {
		if filter != nil && md["userId"] != filter["userId"] {
			continue
		}
		if len(matches) == topK {
			break
		}
		matches = append(matches, vectorindex.Match{ID: id, Score: 1})
	}
	return matches, nil
}

type memStore struct {
	notes map[string]model.Note
}

func newMemStore() *memStore {
	return &memStore{notes: map[string]model.Note{}}
}

func (m *memStore) Create(note *model.Note, sync func() error) error {
	if err := sync(); err != nil {
		return err
	}
	m.notes[note.ID] = *note
	return nil
}

func (m *memStore) Update(note *model.Note, sync func() error) error {
	if err := sync(); err != nil {
		return err
	}
	m.notes[note.ID] = *note
	return nil
}

func (m *memStore) Delete(id string, sync func() error) error {
	if err := sync(); err != nil {
		return err
	}
	delete(m.notes, id)
	return nil
}

func (m *memStore) GetByID(id string) (*model.Note, error) {
	note, ok := m.notes[id]
	if !ok {
		return nil, nil
	}
	return &note, nil
}

func (m *memStore) ListByUserID(userID uint) ([]model.Note, error) {
	var notes []model.Note
	for _, n := range m.notes {
		if n.UserID == userID {
			notes = append(notes, n)
		}
	}
	return notes, nil
}

func (m *memStore) ListByIDs(ids []string) ([]model.Note, error) {
	var notes []model.Note
	for _, id := range ids {
		if n, ok := m.notes[id]; ok {
			notes = append(notes, n)
		}
	}
	return notes, nil
}

type memLLM struct{}

func (memLLM) StreamComplete(_ context.Context, _ []ai.ChatMessage, onChunk func(string) error) (string, error) {
	for _, chunk := range []string{"Paris", " in June"} {
		if err := onChunk(chunk); err != nil {
			return "", err
		}
	}
	return "Paris in June", nil
}

func newTestRouter(store *memStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	noteService := app.NewNoteService(store, memEmbedder{}, newMemVectors(), nil, nil)
	chatService := app.NewChatService(store, memEmbedder{}, newMemVectors(), memLLM{}, 6, 4)

	noteHandler := NewNoteHandler(noteService)
	chatHandler := NewChatHandler(chatService)

	v1 := router.Group("/api/v1")
	noteGroup := v1.Group("/notes")
	noteGroup.Use(middleware.AuthJWT(testSecret))
	noteGroup.GET("", noteHandler.List)
	noteGroup.POST("", noteHandler.Create)
	noteGroup.PUT("", noteHandler.Update)
	noteGroup.DELETE("", noteHandler.Delete)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.AuthJWT(testSecret))
	chatGroup.POST("", chatHandler.Ask)

	return router
}

func tokenFor(t *testing.T, userID uint) string {
	t.Helper()
	token, err := jwtutil.GenerateToken(testSecret, time.Hour, userID, "tester")
	require.NoError(t, err)
	return token
}

func doJSON(router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestNoteEndpoints(t *testing.T) {
	t.Run("create requires a token", func(t *testing.T) {
		router := newTestRouter(newMemStore())
		w := doJSON(router, http.MethodPost, "/api/v1/notes", "", `{"title":"Trip"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("create returns 201 with the note", func(t *testing.T) {
		store := newMemStore()
		router := newTestRouter(store)

		w := doJSON(router, http.MethodPost, "/api/v1/notes", tokenFor(t, 7), `{"title":"Trip","content":"Paris in June"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		require.Contains(t, w.Body.String(), `"title":"Trip"`)
		require.Len(t, store.notes, 1)
	})

	t.Run("missing title is a 400", func(t *testing.T) {
		router := newTestRouter(newMemStore())
		w := doJSON(router, http.MethodPost, "/api/v1/notes", tokenFor(t, 7), `{"content":"no title"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("update of a missing note is a 404", func(t *testing.T) {
		router := newTestRouter(newMemStore())
		w := doJSON(router, http.MethodPut, "/api/v1/notes", tokenFor(t, 7), `{"id":"missing","title":"Trip"}`)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("a non-owner cannot delete", func(t *testing.T) {
		store := newMemStore()
		store.notes["n1"] = model.Note{ID: "n1", UserID: 7, Title: "Trip"}
		router := newTestRouter(store)

		w := doJSON(router, http.MethodDelete, "/api/v1/notes", tokenFor(t, 8), `{"id":"n1"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, store.notes, "n1")
	})

	t.Run("delete confirms removal", func(t *testing.T) {
		store := newMemStore()
		store.notes["n1"] = model.Note{ID: "n1", UserID: 7, Title: "Trip"}
		router := newTestRouter(store)

		w := doJSON(router, http.MethodDelete, "/api/v1/notes", tokenFor(t, 7), `{"id":"n1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "Note deleted")
		require.Empty(t, store.notes)
	})

	t.Run("list returns only the caller's notes", func(t *testing.T) {
		store := newMemStore()
		store.notes["n1"] = model.Note{ID: "n1", UserID: 7, Title: "Mine"}
		store.notes["n2"] = model.Note{ID: "n2", UserID: 8, Title: "Theirs"}
		router := newTestRouter(store)

		w := doJSON(router, http.MethodGet, "/api/v1/notes", tokenFor(t, 7), "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "Mine")
		require.NotContains(t, w.Body.String(), "Theirs")
	})
}

func TestChatEndpoint(t *testing.T) {
	t.Run("requires a token", func(t *testing.T) {
		router := newTestRouter(newMemStore())
		w := doJSON(router, http.MethodPost, "/api/v1/chat", "", `{"messages":[{"role":"user","content":"hi"}]}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects an empty conversation", func(t *testing.T) {
		router := newTestRouter(newMemStore())
		w := doJSON(router, http.MethodPost, "/api/v1/chat", tokenFor(t, 7), `{"messages":[]}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("streams the answer as SSE frames", func(t *testing.T) {
		router := newTestRouter(newMemStore())
		w := doJSON(router, http.MethodPost, "/api/v1/chat", tokenFor(t, 7), `{"messages":[{"role":"user","content":"Where am I going?"}]}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

		body := w.Body.String()
		require.Contains(t, body, "data: Paris\n\n")
		require.Contains(t, body, "data:  in June\n\n")
		require.Contains(t, body, "event: done\ndata: Paris in June\n\n")
	})
}
