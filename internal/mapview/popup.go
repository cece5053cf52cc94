package mapview

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"parking-companion/internal/backend"
)

var popupTmpl = template.Must(template.New("popup").Parse(`<div class="popup">
  <h4>{{.Name}}</h4>
  <div>Rodzaj parkingu: <strong>{{.Access}}</strong></div>
  <div>Opłaty: <strong>{{.Fee}}</strong></div>
  {{- if .Capacity}}
  <div>Pojemność: {{.Capacity}}</div>
  {{- end}}
  {{- if .Operator}}
  <div>Operator: {{.Operator}}</div>
  {{- end}}
  <div>Zajętość: <strong>{{.Occupancy}}%</strong></div>
  <div style="margin-top:8px;">
    <a href="{{.NavURL}}" class="gmaps-link" data-osm="{{.ID}}" data-lat="{{.Lat}}" data-lon="{{.Lon}}">Prowadź do celu</a>
  </div>
</div>`))

type popupData struct {
	ID        string
	Name      string
	Access    string
	Fee       string
	Capacity  string
	Operator  string
	Occupancy string
	NavURL    string
	Lat       string
	Lon       string
}

// NavigationURL builds the external directions link for a coordinate.
func NavigationURL(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%s,%s", formatCoord(lat), formatCoord(lon))
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func renderPopup(item backend.ParkingItem, navURL string) (string, error) {
	name := item.Name
	if name == "" {
		name = "Parking"
	}
	data := popupData{
		ID:        string(item.ID),
		Name:      name,
		Access:    AccessLabel(item),
		Fee:       FeeLabel(item),
		Capacity:  string(item.Capacity),
		Operator:  item.Operator,
		Occupancy: strconv.FormatFloat(item.Occupancy(), 'f', -1, 64),
		NavURL:    navURL,
		Lat:       formatCoord(item.Lat),
		Lon:       formatCoord(item.Lon),
	}
	var buf bytes.Buffer
	if err := popupTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render popup for %s: %w", item.ID, err)
	}
	return buf.String(), nil
}
