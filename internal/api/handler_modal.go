package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-companion/internal/model"
	"parking-companion/internal/modal"
	"parking-companion/internal/page"
)

type dialogResponse struct {
	State modal.State `json:"state"`
	page.DialogState
	TimerRunning bool `json:"timer_running"`
}

func (h *Handler) dialogState() dialogResponse {
	return dialogResponse{
		State:        h.dialog.State(),
		DialogState:  h.page.Dialog(),
		TimerRunning: h.dialog.TimerRunning(),
	}
}

func (h *Handler) requireDialog(c *gin.Context) bool {
	if h.dialog == nil || h.page == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "decision dialog is not running"})
		return false
	}
	return true
}

// GetDialog handles GET /ui/modal.
func (h *Handler) GetDialog(c *gin.Context) {
	if !h.requireDialog(c) {
		return
	}
	c.JSON(http.StatusOK, h.dialogState())
}

type openDialogRequest struct {
	OsmID string  `json:"osm" binding:"required"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Nav   string  `json:"gmaps"`
}

// OpenDialog handles POST /ui/modal/open.
func (h *Handler) OpenDialog(c *gin.Context) {
	if !h.requireDialog(c) {
		return
	}
	var req openDialogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dialog.Open(c.Request.Context(), model.PendingDecision{OsmID: req.OsmID, Lat: req.Lat, Lon: req.Lon, Nav: req.Nav})
	c.JSON(http.StatusOK, h.dialogState())
}

// CloseDialog handles POST /ui/modal/close.
func (h *Handler) CloseDialog(c *gin.Context) {
	if !h.requireDialog(c) {
		return
	}
	h.dialog.Close()
	c.JSON(http.StatusOK, h.dialogState())
}

// TriggerAction handles POST /ui/modal/actions/:action, clicking a dialog button.
func (h *Handler) TriggerAction(c *gin.Context) {
	if !h.requireDialog(c) {
		return
	}
	if err := h.page.Trigger(c.Request.Context(), c.Param("action")); err != nil {
		switch {
		case errors.Is(err, page.ErrUnknownAction):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, page.ErrNotBound):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, h.dialogState())
}
