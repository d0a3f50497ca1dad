package handler

import (
	"net/http"
	"strings"

	searchService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/search/service"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/validator"
	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	service searchService.SearchService
}

func NewSearchHandler(service searchService.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

type searchQuery struct {
	Query string `form:"q" binding:"max=200"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

func (h *SearchHandler) SearchSessions(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	if q.Limit == 0 {
		q.Limit = 20
	}

	hits, err := h.service.Search(strings.TrimSpace(q.Query), q.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": hits})
}
