package models

// Page is one window of a filtered listing. Count is the total number of
// matching records, not the size of Items.
type Page[T any] struct {
	Count int64
	Items []T
}

// Filters carry already-validated values: OrderBy is a sort key the store
// maps onto a column, never raw caller input.

type CustomerFilter struct {
	Name   string
	Search string

	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

type ShipmentFilter struct {
	Status      *Status
	CustomerID  *uint64
	Origin      string
	Destination string
	Search      string

	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

type EventFilter struct {
	ShipmentID *uint64
	Status     *Status

	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}
