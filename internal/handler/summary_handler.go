package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muni-gth/papeletas-api/internal/service"
	appErrors "github.com/muni-gth/papeletas-api/pkg/errors"
	"github.com/muni-gth/papeletas-api/pkg/response"
)

// SummaryHandler serves the dashboard totals.
type SummaryHandler struct {
	service *service.SummaryService
}

// NewSummaryHandler creates a new handler.
func NewSummaryHandler(svc *service.SummaryService) *SummaryHandler {
	return &SummaryHandler{service: svc}
}

// Get godoc
// @Summary Papeleta totals
// @Description Return the employee's total, approved and pending papeleta counts
// @Tags Summary
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /resumen [get]
func (h *SummaryHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.service.Get(c.Request.Context(), claims.NroDocumento)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}
