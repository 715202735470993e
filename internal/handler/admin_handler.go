package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muni-gth/papeletas-api/internal/service"
	"github.com/muni-gth/papeletas-api/pkg/response"
)

// AdminHandler exposes key-protected maintenance endpoints.
type AdminHandler struct {
	exports *service.ExportService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(exports *service.ExportService) *AdminHandler {
	return &AdminHandler{exports: exports}
}

// CleanupExports godoc
// @Summary Purge expired export artifacts
// @Description Delete export files past their retention window
// @Tags Admin
// @Produce json
// @Param X-Admin-Key header string true "Maintenance key"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/exports/cleanup [post]
func (h *AdminHandler) CleanupExports(c *gin.Context) {
	deleted, err := h.exports.Cleanup()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted}, nil)
}
