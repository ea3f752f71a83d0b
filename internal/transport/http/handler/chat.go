package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"notemind/internal/ai"
	"notemind/internal/app"
	"notemind/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type ChatRequest struct {
	Messages []ChatMessagePayload `json:"messages" binding:"required,min=1,dive"`
}

type ChatMessagePayload struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Ask streams the grounded answer as SSE data frames. Errors before the first
// chunk produce a normal JSON error response; errors after streaming has
// begun are reported as a terminal error frame.
func (h *ChatHandler) Ask(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	messages := make([]ai.ChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = ai.ChatMessage{Role: m.Role, Content: m.Content}
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	streaming := false
	startStream := func() {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		streaming = true
	}

	full, err := h.chatService.StreamAnswer(c.Request.Context(), userID, messages, func(chunk string) error {
		if !streaming {
			startStream()
		}
		if _, writeErr := c.Writer.Write([]byte("data: " + sanitizeSSE(chunk) + "\n\n")); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if !streaming {
			switch {
			case errors.Is(err, app.ErrUnauthorized):
				response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
			case errors.Is(err, app.ErrInvalidInput):
				response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			case errors.Is(err, app.ErrDependency):
				response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
			default:
				response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat failed")
			}
			return
		}
		if _, writeErr := c.Writer.Write([]byte("event: error\ndata: " + sanitizeSSE(err.Error()) + "\n\n")); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	if !streaming {
		startStream()
	}
	if _, writeErr := c.Writer.Write([]byte("event: done\ndata: " + sanitizeSSE(full) + "\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return strings.ReplaceAll(replaced, "\r", "\\n")
}
