package modal

import "parking-companion/internal/model"

// View is what the decision dialog displays.
type View string

const (
	ViewIdle     View = "idle"
	ViewDecision View = "decision-pending"
	ViewActive   View = "active"
)

// ServerState is the latest answer of the active-reservation endpoint.
type ServerState int

const (
	// ServerUnknown means no sync has succeeded yet, or the last one failed.
	ServerUnknown ServerState = iota
	ServerActive
	ServerInactive
)

// Snapshot is the input of the view selector.
type Snapshot struct {
	Pending *model.PendingDecision
	Active  *model.ActiveParking
	Server  ServerState
}

// SelectView decides which view the dialog shows. The server's answer wins over
// local records; without one, an active parking wins over a pending decision.
func SelectView(s Snapshot) View {
	switch {
	case s.Server == ServerActive:
		return ViewActive
	case s.Server != ServerInactive && s.Active.HasStart():
		return ViewActive
	case s.Pending != nil:
		return ViewDecision
	default:
		return ViewIdle
	}
}
