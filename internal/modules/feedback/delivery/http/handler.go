package handler

import (
	"net/http"

	feedbackDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/feedback/dto"
	feedback "github.com/ShahriarTWS/TutorHub-Client/internal/modules/feedback/service"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/validator"
	"github.com/gin-gonic/gin"
)

type FeedbackHandler struct {
	service feedback.Service
}

func NewFeedbackHandler(service feedback.Service) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

func (h *FeedbackHandler) SessionReviews(c *gin.Context) {
	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.ForSession(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *FeedbackHandler) SaveReview(c *gin.Context) {
	var req feedbackDto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	review, err := h.service.Save(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "review saved", "data": review})
}
