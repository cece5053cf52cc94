package backend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
)

// Access classes reported by the parking search.
const (
	AccessPublic     = "public"
	AccessRestricted = "restricted"
	AccessPrivate    = "private"
)

// Fee classes reported by the parking search.
const (
	FeePaid = "paid"
	FeeFree = "free"
)

// Application error codes returned by the reservation endpoints.
const (
	CodeAuthRequired    = "auth_required"
	CodeAlreadyReserved = "already_reserved"
	CodeNoSpace         = "no_space"
)

// FlexString decodes a JSON string or number into its textual form.
// OSM identifiers and capacities arrive as either, depending on the endpoint.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// ParkingItem is a single parking location returned by GET /api/parkings.
type ParkingItem struct {
	ID              FlexString `json:"id"`
	Lat             float64    `json:"lat"`
	Lon             float64    `json:"lon"`
	Name            string     `json:"name,omitempty"`
	AccessClass     string     `json:"access_class"`
	Fee             string     `json:"fee"`
	Capacity        FlexString `json:"capacity,omitempty"`
	Operator        string     `json:"operator,omitempty"`
	PercentOccupied *float64   `json:"percent_occupied,omitempty"`
}

// Occupancy returns the occupied percentage, 0 when the server did not report one.
func (p ParkingItem) Occupancy() float64 {
	if p.PercentOccupied == nil {
		return 0
	}
	return *p.PercentOccupied
}

// parkingsResponse models the top-level structure of GET /api/parkings.
type parkingsResponse struct {
	Items []ParkingItem `json:"items"`
}

// Query holds the parameters of a nearby parking search.
type Query struct {
	Lat        float64
	Lon        float64
	Radius     int
	OnlyPublic bool
}

func (q Query) values() map[string]string {
	v := map[string]string{
		"lat":    strconv.FormatFloat(q.Lat, 'f', -1, 64),
		"lon":    strconv.FormatFloat(q.Lon, 'f', -1, 64),
		"radius": strconv.Itoa(q.Radius),
	}
	if q.OnlyPublic {
		v["only_public"] = "1"
	}
	return v
}

// ActiveStatus is the authoritative reservation status of the current user.
type ActiveStatus struct {
	Active    bool       `json:"active"`
	OsmID     FlexString `json:"osm_id,omitempty"`
	StartedAt string     `json:"started_at,omitempty"`
}

// ActionResult is the decoded outcome of a reserve or finish call.
// StatusCode is kept because callers react to it as well as to the body.
type ActionResult struct {
	StatusCode    int        `json:"-"`
	OK            bool       `json:"ok"`
	Error         string     `json:"error,omitempty"`
	ReservationID int64      `json:"reservation_id,omitempty"`
	OsmID         FlexString `json:"osm_id,omitempty"`
	StartedAt     string     `json:"started_at,omitempty"`
}

// AuthRequired reports whether the server asked the user to log in.
func (r *ActionResult) AuthRequired() bool {
	return r.StatusCode == http.StatusUnauthorized || r.Error == CodeAuthRequired
}

// Succeeded reports a 2xx status with ok=true in the body.
func (r *ActionResult) Succeeded() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300 && r.OK
}

// Reason is the error code, or the HTTP status when the body carried none.
func (r *ActionResult) Reason() string {
	if r.Error != "" {
		return r.Error
	}
	return strconv.Itoa(r.StatusCode)
}
