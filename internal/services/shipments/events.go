package shipments

import (
	"context"

	"github.com/fleetline/shiptrack/internal/models"
)

// Direct event CRUD. These operations are audit-safe record edits: they never
// touch the owning shipment's status. Status derivation happens only in
// AppendEvent.

// EventListParams are the raw query options for event listings.
type EventListParams struct {
	ShipmentID *uint64
	Status     string
	Ordering   string
	Limit      int
	Offset     int
}

type EventCreateInput struct {
	ShipmentID uint64
	Input      models.EventInput
}

func (s *Service) CreateEvent(ctx context.Context, in EventCreateInput) (*models.TrackingEvent, error) {
	ve := &models.ValidationError{}
	if in.ShipmentID == 0 {
		ve.Add("shipment_id", "required")
	}
	if in.Input.TS.IsZero() {
		ve.Add("ts", "required")
	}
	if in.Input.Status == nil {
		ve.Add("status", "required")
	} else if !in.Input.Status.Valid() {
		ve.Add("status", "invalid status value")
	}
	validateCoords(ve, in.Input.Lat, in.Input.Lon)
	if !ve.Empty() {
		return nil, ve
	}

	return s.repo.CreateEvent(ctx, &models.TrackingEvent{
		ShipmentID: in.ShipmentID,
		TS:         in.Input.TS.UTC(),
		Status:     *in.Input.Status,
		Comment:    in.Input.Comment,
		Lat:        in.Input.Lat,
		Lon:        in.Input.Lon,
	})
}

func (s *Service) GetEvent(ctx context.Context, id uint64) (*models.TrackingEvent, error) {
	return s.repo.GetEventByID(ctx, id)
}

func (s *Service) UpdateEvent(ctx context.Context, id uint64, in models.EventUpdateInput) (*models.TrackingEvent, error) {
	ve := &models.ValidationError{}
	if in.TS != nil && in.TS.IsZero() {
		ve.Add("ts", "must not be zero")
	}
	if in.Status != nil && !in.Status.Valid() {
		ve.Add("status", "invalid status value")
	}
	if (in.Lat == nil) != (in.Lon == nil) {
		ve.Add("lat", "lat and lon must be updated together")
	} else {
		validateCoords(ve, in.Lat, in.Lon)
	}
	if !ve.Empty() {
		return nil, ve
	}
	return s.repo.UpdateEvent(ctx, id, in)
}

func (s *Service) DeleteEvent(ctx context.Context, id uint64) error {
	return s.repo.DeleteEvent(ctx, id)
}

func (s *Service) ListEvents(ctx context.Context, p EventListParams) (*models.Page[*models.TrackingEvent], error) {
	status, err := parseStatus("status", p.Status)
	if err != nil {
		return nil, err
	}
	orderBy, desc, err := parseOrdering(p.Ordering, "ts", "created_at")
	if err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, models.EventFilter{
		ShipmentID: p.ShipmentID,
		Status:     status,
		OrderBy:    orderBy,
		Desc:       desc,
		Limit:      p.Limit,
		Offset:     p.Offset,
	})
}
