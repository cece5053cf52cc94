package parse

import (
	"log"

	"github.com/tidwall/gjson"
)

// Fallback map position used when the page carries no usable data.
const (
	DefaultLat    = 50.06143
	DefaultLon    = 19.93658
	DefaultRadius = 300
)

// PageData holds the map parameters embedded in the rendered page.
type PageData struct {
	Lat    float64
	Lon    float64
	Radius int
}

// ParsePageData extracts {lat, lon, radius} from the page-embedded JSON document.
// Coordinates are applied only when both are numbers, the radius only when it is a
// number. Anything unusable falls back to the defaults; malformed JSON is logged.
func ParsePageData(raw []byte) PageData {
	data := PageData{Lat: DefaultLat, Lon: DefaultLon, Radius: DefaultRadius}
	if len(raw) == 0 {
		return data
	}
	if !gjson.ValidBytes(raw) {
		log.Printf("Warning: could not parse page data %q; using defaults", truncate(string(raw), 64))
		return data
	}

	doc := gjson.ParseBytes(raw)
	lat, lon := doc.Get("lat"), doc.Get("lon")
	if lat.Type == gjson.Number && lon.Type == gjson.Number {
		data.Lat = lat.Float()
		data.Lon = lon.Float()
	}
	if r := doc.Get("radius"); r.Type == gjson.Number {
		data.Radius = int(r.Int())
	}
	if data.Radius == 0 {
		data.Radius = DefaultRadius
	}
	return data
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
