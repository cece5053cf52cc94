package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-companion/internal/mapview"
	"parking-companion/internal/page"
)

// mapResponse is the map part of the page plus the control values.
type mapResponse struct {
	Settings mapview.Settings `json:"settings"`
	page.MapState
}

func (h *Handler) mapState() mapResponse {
	return mapResponse{Settings: h.mapView.Settings(), MapState: h.page.Map()}
}

func (h *Handler) requireMap(c *gin.Context) bool {
	if h.mapView == nil || h.page == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "map view is not running"})
		return false
	}
	return true
}

// GetMap handles GET /ui/map.
func (h *Handler) GetMap(c *gin.Context) {
	if !h.requireMap(c) {
		return
	}
	c.JSON(http.StatusOK, h.mapState())
}

// RefreshMap handles POST /ui/map/refresh.
func (h *Handler) RefreshMap(c *gin.Context) {
	if !h.requireMap(c) {
		return
	}
	if err := h.mapView.Refresh(c.Request.Context()); err != nil {
		log.Printf("Error refreshing parkings: %v", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to load parkings"})
		return
	}
	c.JSON(http.StatusOK, h.mapState())
}

type onlyPublicRequest struct {
	OnlyPublic *bool `json:"only_public" binding:"required"`
}

// PutOnlyPublic handles PUT /ui/map/only_public.
func (h *Handler) PutOnlyPublic(c *gin.Context) {
	if !h.requireMap(c) {
		return
	}
	var req onlyPublicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.mapView.SetOnlyPublic(c.Request.Context(), *req.OnlyPublic); err != nil {
		log.Printf("Error refreshing parkings: %v", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to load parkings"})
		return
	}
	c.JSON(http.StatusOK, h.mapState())
}

type radiusRequest struct {
	Radius int `json:"radius" binding:"required"`
}

// PutRadius handles PUT /ui/map/radius. Without commit=1 only the label follows
// the slider; with it the map is reloaded.
func (h *Handler) PutRadius(c *gin.Context) {
	if !h.requireMap(c) {
		return
	}
	var req radiusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mapView.InputRadius(req.Radius)
	if commit := c.Query("commit"); commit == "1" || commit == "true" {
		if err := h.mapView.CommitRadius(c.Request.Context()); err != nil {
			log.Printf("Error refreshing parkings: %v", err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to load parkings"})
			return
		}
	}
	c.JSON(http.StatusOK, h.mapState())
}

// Navigate handles POST /ui/map/markers/:id/navigate.
func (h *Handler) Navigate(c *gin.Context) {
	if !h.requireMap(c) {
		return
	}
	if err := h.mapView.Navigate(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, mapview.ErrUnknownMarker) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Marker not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"map": h.page.Map(), "dialog": h.page.Dialog()})
}
