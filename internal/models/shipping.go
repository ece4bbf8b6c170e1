package models

import "time"

// Status is the closed set of shipment states. A shipment's status is always
// the status of the last tracking event accepted for it.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusDelayed   Status = "DELAYED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusInTransit, StatusDelivered, StatusDelayed:
		return true
	}
	return false
}

type Customer struct {
	ID        uint64
	Name      string
	CreatedAt time.Time
}

// CustomerRef is the summary embedded into shipment reads.
type CustomerRef struct {
	ID   uint64
	Name string
}

type Shipment struct {
	ID          uint64
	Number      string
	CustomerID  uint64
	Customer    CustomerRef
	Status      Status
	Origin      string
	Destination string
	ETA         *time.Time
	CreatedAt   time.Time
}

type TrackingEvent struct {
	ID         uint64
	ShipmentID uint64
	TS         time.Time
	Status     Status
	Comment    string
	Lat        *float64
	Lon        *float64
	CreatedAt  time.Time
}

type CustomerCreateInput struct {
	Name string
}

type CustomerUpdateInput struct {
	Name *string
}

type ShipmentCreateInput struct {
	Number      string
	CustomerID  uint64
	Origin      string
	Destination string
	ETA         *time.Time
}

type ShipmentUpdateInput struct {
	Number      *string
	CustomerID  *uint64
	Status      *Status
	Origin      *string
	Destination *string
	ETA         *time.Time
	ClearETA    bool
}

// EventInput is what the ingestion engine accepts. Status is optional: when
// nil it resolves to the shipment's current status at call time.
type EventInput struct {
	TS      time.Time
	Status  *Status
	Comment string
	Lat     *float64
	Lon     *float64
}

// EventUpdateInput mutates an event record directly, bypassing status
// derivation. Audit-safe edits only.
type EventUpdateInput struct {
	TS      *time.Time
	Status  *Status
	Comment *string
	Lat     *float64
	Lon     *float64
}
