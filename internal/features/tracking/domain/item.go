package domain

import "fmt"

// Item is the persisted state for one tracking code. A row is created the
// first time its code shows up in a snapshot and is mutated at most once,
// when ArrivedAt flips from empty to the arrival date. Rows are never deleted.
type Item struct {
	// ID is the surrogate key assigned by the store.
	ID int64 `json:"id"`
	// Track is the unique tracking code.
	Track string `json:"track"`
	// Title is the shipment description as first seen.
	Title string `json:"title"`
	// AddedAt is the portal registration date observed at insertion time.
	AddedAt string `json:"added_at"`
	// ArrivedAt is the target-warehouse arrival date, empty while in transit.
	ArrivedAt string `json:"arrived_at,omitempty"`
}

// Arrived reports whether the item has reached the target warehouse.
func (i Item) Arrived() bool {
	return i.ArrivedAt != ""
}

// NewArrivalMessage formats the notification for a code first seen already at
// the warehouse. Field order is stable; consumers pattern-match on it.
func NewArrivalMessage(track, title, arrivedAt string) string {
	return fmt.Sprintf("📦 Новый товар в ADK\nТрек-код: %s\nНазвание: %s\nДата: %s",
		track, title, arrivedAt)
}

// TransitionMessage formats the notification for a known code whose arrival
// was observed for the first time this cycle.
func TransitionMessage(track, title, arrivedAt string) string {
	return fmt.Sprintf("📦 Товар поступил в ADK\nТрек-код: %s\nНазвание: %s\nДата: %s",
		track, title, arrivedAt)
}
