package handler

import (
	"net/http"

	noteDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/note/dto"
	note "github.com/ShahriarTWS/TutorHub-Client/internal/modules/note/service"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/validator"
	"github.com/gin-gonic/gin"
)

type NoteHandler struct {
	service note.Service
}

func NewNoteHandler(service note.Service) *NoteHandler {
	return &NoteHandler{service: service}
}

func (h *NoteHandler) Create(c *gin.Context) {
	var req noteDto.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	id, err := response.GetIdentity(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), id.Email, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "note saved", "data": created})
}

func (h *NoteHandler) List(c *gin.Context) {
	id, err := response.GetIdentity(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	notes, err := h.service.List(c.Request.Context(), id.Email)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": notes})
}

func (h *NoteHandler) Update(c *gin.Context) {
	var req noteDto.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	id, err := response.GetIdentity(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), id.Email, c.Param("id"), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "note updated", "data": updated})
}

func (h *NoteHandler) Delete(c *gin.Context) {
	id, err := response.GetIdentity(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id.Email, c.Param("id")); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "note deleted"})
}
