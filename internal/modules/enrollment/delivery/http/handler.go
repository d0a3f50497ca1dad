package handler

import (
	"net/http"

	enrollmentDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/enrollment/dto"
	enrollment "github.com/ShahriarTWS/TutorHub-Client/internal/modules/enrollment/service"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/validator"
	"github.com/gin-gonic/gin"
)

type EnrollmentHandler struct {
	service enrollment.Service
}

func NewEnrollmentHandler(service enrollment.Service) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Enroll(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	status := http.StatusCreated
	if res.Status == enrollmentDto.StatusCheckoutRequired {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (h *EnrollmentHandler) ConfirmPayment(c *gin.Context) {
	var req enrollmentDto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	payment, err := h.service.ConfirmPayment(c.Request.Context(), caller, c.Param("id"), req.TransactionID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "payment recorded", "data": payment})
}

func (h *EnrollmentHandler) History(c *gin.Context) {
	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	items, err := h.service.History(c.Request.Context(), caller.Email)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *EnrollmentHandler) EnrollmentStatus(c *gin.Context) {
	caller, err := response.GetCaller(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	enrolled, err := h.service.IsEnrolled(c.Request.Context(), caller.Email, c.Param("id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrolled": enrolled})
}
