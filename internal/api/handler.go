package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"parking-companion/internal/mapview"
	"parking-companion/internal/modal"
	"parking-companion/internal/page"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	db      *gorm.DB
	webpush *webpush.Options
	mapView *mapview.Controller
	dialog  *modal.Controller
	page    *page.Page
}

// NewHandler creates a new API handler. Any dependency may be nil; the routes that
// need it then answer 503.
func NewHandler(db *gorm.DB, webpushOptions *webpush.Options, mapView *mapview.Controller, dialog *modal.Controller, p *page.Page) *Handler {
	return &Handler{
		db:      db,
		webpush: webpushOptions,
		mapView: mapView,
		dialog:  dialog,
		page:    p,
	}
}
