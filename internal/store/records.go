package store

import (
	"context"
	"encoding/json"
	"log"

	"parking-companion/internal/model"
)

// Keys of the two persisted UI-state records.
const (
	PendingKey = "parkingDecisionPending"
	ActiveKey  = "activeParking"
)

// Records gives typed access to the pending decision and active parking records.
// Every operation is best-effort: storage failures are logged and read as absence.
type Records struct {
	store Store
}

// NewRecords wraps a Store.
func NewRecords(s Store) *Records {
	return &Records{store: s}
}

// Pending returns the stored pending decision, or nil.
func (r *Records) Pending(ctx context.Context) *model.PendingDecision {
	var p model.PendingDecision
	if !r.load(ctx, PendingKey, &p) {
		return nil
	}
	return &p
}

// SetPending stores a pending decision.
func (r *Records) SetPending(ctx context.Context, p model.PendingDecision) {
	r.save(ctx, PendingKey, p)
}

// ClearPending removes the pending decision.
func (r *Records) ClearPending(ctx context.Context) {
	r.remove(ctx, PendingKey)
}

// Active returns the stored active parking, or nil.
func (r *Records) Active(ctx context.Context) *model.ActiveParking {
	var a model.ActiveParking
	if !r.load(ctx, ActiveKey, &a) {
		return nil
	}
	return &a
}

// SetActive stores the active parking.
func (r *Records) SetActive(ctx context.Context, a model.ActiveParking) {
	r.save(ctx, ActiveKey, a)
}

// ClearActive removes the active parking.
func (r *Records) ClearActive(ctx context.Context) {
	r.remove(ctx, ActiveKey)
}

func (r *Records) load(ctx context.Context, key string, out any) bool {
	raw, found, err := r.store.Get(ctx, key)
	if err != nil {
		log.Printf("Warning: could not read %s: %v", key, err)
		return false
	}
	if !found || len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Printf("Warning: discarding unreadable %s record: %v", key, err)
		return false
	}
	return true
}

func (r *Records) save(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("Warning: could not encode %s: %v", key, err)
		return
	}
	if err := r.store.Set(ctx, key, raw); err != nil {
		log.Printf("Warning: could not persist %s: %v", key, err)
	}
}

func (r *Records) remove(ctx context.Context, key string) {
	if err := r.store.Delete(ctx, key); err != nil {
		log.Printf("Warning: could not remove %s: %v", key, err)
	}
}
