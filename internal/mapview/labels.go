package mapview

import "parking-companion/internal/backend"

// Marker colours by access class.
const (
	ColorPublic     = "green"
	ColorRestricted = "orange"
	ColorPrivate    = "red"
	ColorUnknown    = "gray"
)

const noInformation = "Brak informacji"

// LegendEntry pairs a marker colour with its label in the map legend.
type LegendEntry struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

// Legend is shown next to the map controls.
var Legend = []LegendEntry{
	{ColorPublic, "publiczny"},
	{ColorRestricted, "ograniczony"},
	{ColorPrivate, "prywatny"},
	{ColorUnknown, "brak info"},
}

// AccessLabel returns the localized label of a parking's access class.
func AccessLabel(item backend.ParkingItem) string {
	switch item.AccessClass {
	case backend.AccessPublic:
		return "Publiczny"
	case backend.AccessRestricted:
		return "Ograniczony dostęp"
	case backend.AccessPrivate:
		return "Prywatny"
	default:
		return noInformation
	}
}

// FeeLabel returns the localized label of a parking's fee class.
func FeeLabel(item backend.ParkingItem) string {
	switch item.Fee {
	case backend.FeePaid:
		return "Płatny"
	case backend.FeeFree:
		return "Bezpłatny"
	default:
		return noInformation
	}
}

// MarkerColor returns the marker colour for a parking's access class.
func MarkerColor(item backend.ParkingItem) string {
	switch item.AccessClass {
	case backend.AccessPublic:
		return ColorPublic
	case backend.AccessRestricted:
		return ColorRestricted
	case backend.AccessPrivate:
		return ColorPrivate
	default:
		return ColorUnknown
	}
}
