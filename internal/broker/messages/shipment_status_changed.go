package messages

import "time"

// ShipmentStatusChanged is published after an ingested event overwrites a
// shipment's derived status. Consumers get the transition, not the full row.
type ShipmentStatusChanged struct {
	ShipmentID uint64    `json:"shipment_id"`
	Number     string    `json:"number"`
	CustomerID uint64    `json:"customer_id"`
	OldStatus  string    `json:"old_status"`
	NewStatus  string    `json:"new_status"`
	EventID    uint64    `json:"event_id"`
	EventTS    time.Time `json:"event_ts"`
	ChangedAt  time.Time `json:"changed_at"`
}
