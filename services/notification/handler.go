package notification

import (
	"net/http"

	"bantudesa/pkg/access"
	"bantudesa/pkg/db/pagination"
	"bantudesa/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the inbox routes. Callers wrap r with authentication.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/notifications", h.List)
	r.PUT("/notifications/:id/read", h.MarkRead)
}

func (h *Handler) List(c *gin.Context) {
	actor := access.FromContext(c.Request.Context())
	if !actor.Authenticated() {
		_ = c.Error(errutil.Unauthorized("authentication required", nil))
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid pagination", err))
		return
	}

	items, info, err := h.service.List(c.Request.Context(), actor.UserID, page)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": info})
}

func (h *Handler) MarkRead(c *gin.Context) {
	actor := access.FromContext(c.Request.Context())
	if !actor.Authenticated() {
		_ = c.Error(errutil.Unauthorized("authentication required", nil))
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), actor.UserID, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
