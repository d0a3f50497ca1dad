package handler

import (
	"errors"
	"net/http"

	sessionDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/session/dto"
	session "github.com/ShahriarTWS/TutorHub-Client/internal/modules/session/service"
	commonDto "github.com/ShahriarTWS/TutorHub-Client/pkg/dto"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/validator"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	service session.Service
}

func NewSessionHandler(service session.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

// ListApproved is the public catalogue.
func (h *SessionHandler) ListApproved(c *gin.Context) {
	sessions, err := h.service.ListApproved(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessions})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	s, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req sessionDto.CreateSessionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	image, closeImage, ok := optionalImage(c)
	if !ok {
		return
	}
	defer closeImage()

	created, err := h.service.Create(c.Request.Context(), caller, req, image)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "session submitted for review", "data": created})
}

func (h *SessionHandler) ResubmitSession(c *gin.Context) {
	var req sessionDto.CreateSessionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	image, closeImage, ok := optionalImage(c)
	if !ok {
		return
	}
	defer closeImage()

	created, err := h.service.Resubmit(c.Request.Context(), caller, c.Param("id"), req, image)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "session resubmitted for review", "data": created})
}

func (h *SessionHandler) MySessions(c *gin.Context) {
	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	sessions, err := h.service.ListForTutor(c.Request.Context(), caller.Email)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessions})
}

func (h *SessionHandler) MyApprovedSessions(c *gin.Context) {
	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	sessions, err := h.service.ApprovedForTutor(c.Request.Context(), caller.Email)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessions})
}

func (h *SessionHandler) ListAll(c *gin.Context) {
	sessions, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sessions})
}

func (h *SessionHandler) ApproveSession(c *gin.Context) {
	var req sessionDto.ApproveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	updated, err := h.service.Approve(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session approved", "data": updated})
}

func (h *SessionHandler) RejectSession(c *gin.Context) {
	var req sessionDto.RejectSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	updated, err := h.service.Reject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session rejected", "data": updated})
}

func (h *SessionHandler) Reindex(c *gin.Context) {
	if err := h.service.Reindex(c.Request.Context()); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "search index rebuilt"})
}

// optionalImage opens the "image" form file when one was sent. It writes the
// error response itself and reports false when the upload is unreadable.
func optionalImage(c *gin.Context) (*commonDto.UploadedFile, func(), bool) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, true
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image upload"})
		return nil, nil, false
	}

	file, closeFile, err := commonDto.OpenUpload(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image could not be read"})
		return nil, nil, false
	}
	return file, closeFile, true
}
