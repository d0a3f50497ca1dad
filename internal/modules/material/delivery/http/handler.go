package handler

import (
	"errors"
	"fmt"
	"net/http"

	materialDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/material/dto"
	material "github.com/ShahriarTWS/TutorHub-Client/internal/modules/material/service"
	commonDto "github.com/ShahriarTWS/TutorHub-Client/pkg/dto"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/validator"
	"github.com/gin-gonic/gin"
)

type MaterialHandler struct {
	service material.Service
}

func NewMaterialHandler(service material.Service) *MaterialHandler {
	return &MaterialHandler{service: service}
}

func (h *MaterialHandler) Upload(c *gin.Context) {
	var req materialDto.UploadMaterialRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	file, closeFile, ok := optionalFile(c)
	if !ok {
		return
	}
	defer closeFile()

	created, err := h.service.Upload(c.Request.Context(), caller, c.Param("id"), req, file)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "material uploaded", "data": created})
}

func (h *MaterialHandler) Update(c *gin.Context) {
	var req materialDto.UpdateMaterialRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	file, closeFile, ok := optionalFile(c)
	if !ok {
		return
	}
	defer closeFile()

	updated, err := h.service.Update(c.Request.Context(), caller, c.Param("id"), req, file)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "material updated", "data": updated})
}

func (h *MaterialHandler) Delete(c *gin.Context) {
	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "material deleted"})
}

func (h *MaterialHandler) MyMaterials(c *gin.Context) {
	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	materials, err := h.service.ListForTutor(c.Request.Context(), caller.Email)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": materials})
}

func (h *MaterialHandler) ListAll(c *gin.Context) {
	materials, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": materials})
}

func (h *MaterialHandler) SessionMaterials(c *gin.Context) {
	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	materials, err := h.service.ListForStudent(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": materials})
}

func (h *MaterialHandler) ExportCSV(c *gin.Context) {
	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	sessionID := c.Param("id")
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="materials-%s.csv"`, sessionID))
	if err := h.service.ExportCSV(c.Request.Context(), caller, sessionID, c.Writer); err != nil {
		if c.Writer.Written() {
			_ = c.Error(err)
			return
		}
		c.Writer.Header().Del("Content-Type")
		c.Writer.Header().Del("Content-Disposition")
		response.ResponseError(c, err)
	}
}

func optionalFile(c *gin.Context) (*commonDto.UploadedFile, func(), bool) {
	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, true
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file upload"})
		return nil, nil, false
	}

	file, closeFile, err := commonDto.OpenUpload(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file could not be read"})
		return nil, nil, false
	}
	return file, closeFile, true
}
