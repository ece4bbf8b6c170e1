package shipments

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/fleetline/shiptrack/internal/models"
)

const initialEventComment = "Shipment created"

// ShipmentListParams are the raw query options for shipment listings.
type ShipmentListParams struct {
	Status      string
	CustomerID  *uint64
	Origin      string
	Destination string
	Search      string
	Ordering    string
	Limit       int
	Offset      int
}

// CreateShipment persists the shipment together with its synthesized birth
// event (status CREATED), so the derived-status invariant holds from the
// first moment the shipment exists.
func (s *Service) CreateShipment(ctx context.Context, in models.ShipmentCreateInput) (*models.Shipment, error) {
	in.Number = strings.TrimSpace(in.Number)

	ve := &models.ValidationError{}
	if in.Number == "" {
		ve.Add("number", "required")
	}
	if in.CustomerID == 0 {
		ve.Add("customer_id", "required")
	}
	if !ve.Empty() {
		return nil, ve
	}

	initial := &models.TrackingEvent{
		TS:      time.Now().UTC(),
		Status:  models.StatusCreated,
		Comment: initialEventComment,
	}
	sh, _, err := s.repo.CreateShipment(ctx, in, initial)
	if err != nil {
		return nil, err
	}

	s.cachePut(ctx, sh)
	return sh, nil
}

func (s *Service) GetShipment(ctx context.Context, id uint64) (*models.Shipment, error) {
	if s.cacheEnabled() {
		if b, ok, err := s.cache.Get(ctx, currentKey(id)); err == nil && ok {
			var sh models.Shipment
			if json.Unmarshal(b, &sh) == nil {
				return &sh, nil
			}
		}
	}

	sh, err := s.repo.GetShipmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cachePut(ctx, sh)
	return sh, nil
}

func (s *Service) GetShipmentByNumber(ctx context.Context, number string) (*models.Shipment, error) {
	return s.repo.GetShipmentByNumber(ctx, number)
}

func (s *Service) UpdateShipment(ctx context.Context, id uint64, in models.ShipmentUpdateInput) (*models.Shipment, error) {
	ve := &models.ValidationError{}
	if in.Number != nil && strings.TrimSpace(*in.Number) == "" {
		ve.Add("number", "must not be empty")
	}
	if in.CustomerID != nil && *in.CustomerID == 0 {
		ve.Add("customer_id", "must not be zero")
	}
	if in.Status != nil && !in.Status.Valid() {
		ve.Add("status", "invalid status value")
	}
	if !ve.Empty() {
		return nil, ve
	}

	sh, err := s.repo.UpdateShipment(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.cachePut(ctx, sh)
	return sh, nil
}

// DeleteShipment cascades to the shipment's tracking events.
func (s *Service) DeleteShipment(ctx context.Context, id uint64) error {
	if err := s.repo.DeleteShipment(ctx, id); err != nil {
		return err
	}
	s.cacheDrop(ctx, id)
	return nil
}

func (s *Service) ListShipments(ctx context.Context, p ShipmentListParams) (*models.Page[*models.Shipment], error) {
	status, err := parseStatus("status", p.Status)
	if err != nil {
		return nil, err
	}
	orderBy, desc, err := parseOrdering(p.Ordering, "created_at", "eta")
	if err != nil {
		return nil, err
	}
	return s.repo.ListShipments(ctx, models.ShipmentFilter{
		Status:      status,
		CustomerID:  p.CustomerID,
		Origin:      p.Origin,
		Destination: p.Destination,
		Search:      p.Search,
		OrderBy:     orderBy,
		Desc:        desc,
		Limit:       p.Limit,
		Offset:      p.Offset,
	})
}
