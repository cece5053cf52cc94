package model

// PendingDecision is a parking spot the user has been asked about but has not yet
// confirmed or declined. It survives a page reload so the prompt can be restored.
type PendingDecision struct {
	OsmID string  `json:"osm"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Nav   string  `json:"gmaps"`
}

// ActiveParking mirrors the user's current server-side reservation.
type ActiveParking struct {
	OsmID     string `json:"osm_id"`
	StartedAt string `json:"started_at"`
}

// HasStart reports whether the record carries a reservation start time.
func (a *ActiveParking) HasStart() bool {
	return a != nil && a.StartedAt != ""
}
