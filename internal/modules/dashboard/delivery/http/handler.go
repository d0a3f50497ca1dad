package handler

import (
	"errors"
	"net/http"

	dashboardDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/dashboard/dto"
	dashboard "github.com/ShahriarTWS/TutorHub-Client/internal/modules/dashboard/service"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	service dashboard.Service
}

func NewDashboardHandler(service dashboard.Service) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) Dashboard(c *gin.Context) {
	id, err := response.GetIdentity(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	view, err := h.service.View(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if view.Status == dashboardDto.StatusResolvingRole {
		c.Header("Retry-After", "1")
		c.JSON(http.StatusAccepted, view)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *DashboardHandler) MyRole(c *gin.Context) {
	id, err := response.GetIdentity(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	view, err := h.service.View(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	if view.Status == dashboardDto.StatusResolvingRole {
		c.Header("Retry-After", "1")
		c.JSON(http.StatusAccepted, gin.H{"status": view.Status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": view.Role})
}

// Page serves /dashboard/*page for the sidebar entries of the caller's role.
func (h *DashboardHandler) Page(c *gin.Context) {
	id, err := response.GetIdentity(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	page, err := h.service.Page(c.Request.Context(), id, c.Param("page"))
	if err != nil {
		if errors.Is(err, dashboard.ErrRoleUnresolved) {
			c.Header("Retry-After", "1")
			c.JSON(http.StatusAccepted, gin.H{"status": dashboardDto.StatusResolvingRole})
			return
		}
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
