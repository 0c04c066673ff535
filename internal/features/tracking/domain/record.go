package domain

import "strings"

// TargetWarehouse is the substring identifying the Almaty pickup point in a
// history entry's warehouse label. A record counts as arrived once any history
// entry matches it and carries a date.
const TargetWarehouse = "ТРЦ «АДК»"

// HistoryEntry is a single movement in a shipment's portal history.
type HistoryEntry struct {
	// Warehouse is the location label as printed by the portal.
	Warehouse string `json:"warehouse"`
	// Date is the portal's date string for the movement; empty when the
	// portal shows the row without a date yet.
	Date string `json:"date"`
}

// TrackingRecord is one shipment as fetched from the portal in the current
// cycle. Field names mirror the portal's embedded tracks JSON.
type TrackingRecord struct {
	// Barcode is the unique tracking code.
	Barcode string `json:"barcode"`
	// Title is the human-readable shipment description.
	Title string `json:"title"`
	// AddedAt is the portal's registration date for the shipment.
	AddedAt string `json:"added_at"`
	// History holds the shipment's movements, in portal order.
	History []HistoryEntry `json:"history"`
}

// Validate reports whether the record carries every field the reconciler
// needs. The returned reason names the first missing field and is meant for
// the skip warning, not for user display.
func (r TrackingRecord) Validate() (ok bool, reason string) {
	switch {
	case strings.TrimSpace(r.Barcode) == "":
		return false, "missing barcode"
	case strings.TrimSpace(r.Title) == "":
		return false, "missing title"
	case strings.TrimSpace(r.AddedAt) == "":
		return false, "missing added_at"
	}
	return true, ""
}

// ArrivalDate returns the date of the first history entry located at the
// target warehouse, or "" when the shipment has not arrived there yet.
// Existence is all that matters; at most one such entry is meaningful.
func (r TrackingRecord) ArrivalDate() string {
	for _, h := range r.History {
		if strings.Contains(h.Warehouse, TargetWarehouse) && h.Date != "" {
			return h.Date
		}
	}
	return ""
}
