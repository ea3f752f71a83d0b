package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"notemind/internal/app"
	"notemind/internal/transport/http/middleware"
	"notemind/internal/transport/http/response"
)

type NoteHandler struct {
	noteService *app.NoteService
}

type CreateNoteRequest struct {
	Title   string `json:"title" binding:"required,max=256"`
	Content string `json:"content"`
}

type UpdateNoteRequest struct {
	ID      string `json:"id" binding:"required"`
	Title   string `json:"title" binding:"required,max=256"`
	Content string `json:"content"`
}

type DeleteNoteRequest struct {
	ID string `json:"id" binding:"required"`
}

func NewNoteHandler(noteService *app.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

func (h *NoteHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	notes, err := h.noteService.List(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnauthorized):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list notes failed")
		}
		return
	}

	response.OK(c, notes)
}

func (h *NoteHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	note, err := h.noteService.Create(c.Request.Context(), app.CreateNoteInput{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		respondNoteError(c, err, "create note failed")
		return
	}

	c.JSON(http.StatusCreated, response.APIResponse{
		Code:    response.CodeOK,
		Message: "ok",
		Data:    note,
	})
}

func (h *NoteHandler) Update(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	note, err := h.noteService.Update(c.Request.Context(), app.UpdateNoteInput{
		UserID:  userID,
		ID:      req.ID,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		respondNoteError(c, err, "update note failed")
		return
	}

	c.JSON(http.StatusCreated, response.APIResponse{
		Code:    response.CodeOK,
		Message: "ok",
		Data:    note,
	})
}

func (h *NoteHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req DeleteNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.noteService.Delete(c.Request.Context(), userID, req.ID); err != nil {
		respondNoteError(c, err, "delete note failed")
		return
	}

	response.OK(c, gin.H{"message": "Note deleted"})
}

func respondNoteError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
	case errors.Is(err, app.ErrNoteNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNoteNotFound, err.Error())
	case errors.Is(err, app.ErrDependency):
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}
