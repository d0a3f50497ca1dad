package handler

import (
	"net/http"

	tutorDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/tutor/dto"
	tutor "github.com/ShahriarTWS/TutorHub-Client/internal/modules/tutor/service"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/validator"
	"github.com/gin-gonic/gin"
)

type TutorHandler struct {
	service tutor.Service
}

func NewTutorHandler(service tutor.Service) *TutorHandler {
	return &TutorHandler{service: service}
}

func (h *TutorHandler) Directory(c *gin.Context) {
	tutors, err := h.service.ListApproved(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tutors})
}

func (h *TutorHandler) MyApplication(c *gin.Context) {
	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	status, err := h.service.Status(c.Request.Context(), caller.Email)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *TutorHandler) Apply(c *gin.Context) {
	var req tutorDto.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	app, err := h.service.Apply(c.Request.Context(), caller, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "application submitted", "data": app})
}

func (h *TutorHandler) ListPending(c *gin.Context) {
	apps, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": apps})
}

func (h *TutorHandler) ListAll(c *gin.Context) {
	apps, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": apps})
}

func (h *TutorHandler) Approve(c *gin.Context) {
	app, err := h.service.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tutor approved", "data": app})
}

func (h *TutorHandler) Reject(c *gin.Context) {
	var req tutorDto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	app, err := h.service.Reject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tutor application rejected", "data": app})
}

func (h *TutorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tutor removed"})
}
