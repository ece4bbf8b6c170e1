package shipments

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/fleetline/shiptrack/internal/broker/messages"
	"github.com/fleetline/shiptrack/internal/models"
)

// AppendEvent is the single write path that derives shipment status. It
// validates the input, resolves a missing status to the shipment's current
// one, and applies insert + status overwrite in one store transaction.
//
// Derivation is last-appended-wins: an out-of-order event with an earlier ts
// still overwrites the current status, because it is the latest one appended.
func (s *Service) AppendEvent(ctx context.Context, shipmentID uint64, in models.EventInput) (*models.TrackingEvent, *models.Shipment, error) {
	sh, err := s.repo.GetShipmentByID(ctx, shipmentID)
	if err != nil {
		return nil, nil, err
	}

	ve := &models.ValidationError{}
	if in.TS.IsZero() {
		ve.Add("ts", "required")
	}

	status := sh.Status
	if in.Status != nil {
		status = *in.Status
		if !status.Valid() {
			ve.Add("status", "invalid status value")
		}
	}

	validateCoords(ve, in.Lat, in.Lon)
	if !ve.Empty() {
		return nil, nil, ve
	}

	ev := &models.TrackingEvent{
		TS:      in.TS.UTC(),
		Status:  status,
		Comment: in.Comment,
		Lat:     in.Lat,
		Lon:     in.Lon,
	}

	oldStatus := sh.Status
	ev, sh, err = s.repo.AppendShipmentEvent(ctx, shipmentID, ev)
	if err != nil {
		return nil, nil, err
	}

	s.cachePut(ctx, sh)
	if sh.Status != oldStatus {
		s.publishStatusChanged(ctx, sh, ev, oldStatus)
	}
	return ev, sh, nil
}

// ListShipmentEvents returns one shipment's events, ts ascending by default.
func (s *Service) ListShipmentEvents(ctx context.Context, shipmentID uint64, ordering string, limit, offset int) (*models.Page[*models.TrackingEvent], error) {
	if _, err := s.repo.GetShipmentByID(ctx, shipmentID); err != nil {
		return nil, err
	}
	orderBy, desc, err := parseOrdering(ordering, "ts", "created_at")
	if err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, models.EventFilter{
		ShipmentID: &shipmentID,
		OrderBy:    orderBy,
		Desc:       desc,
		Limit:      limit,
		Offset:     offset,
	})
}

func validateCoords(ve *models.ValidationError, lat, lon *float64) {
	if lat == nil && lon == nil {
		return
	}
	if lat == nil || lon == nil {
		ve.Add("lat", "lat and lon must be provided together")
		return
	}
	if *lat < -90 || *lat > 90 {
		ve.Add("lat", "must be within [-90, 90]")
	}
	if *lon < -180 || *lon > 180 {
		ve.Add("lon", "must be within [-180, 180]")
	}
}

// publishStatusChanged is best effort: a broker outage must not fail the
// ingestion request that already committed.
func (s *Service) publishStatusChanged(ctx context.Context, sh *models.Shipment, ev *models.TrackingEvent, old models.Status) {
	if s.producer == nil || s.topic == "" {
		return
	}
	msg := messages.ShipmentStatusChanged{
		ShipmentID: sh.ID,
		Number:     sh.Number,
		CustomerID: sh.CustomerID,
		OldStatus:  string(old),
		NewStatus:  string(sh.Status),
		EventID:    ev.ID,
		EventTS:    ev.TS,
		ChangedAt:  time.Now().UTC(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(strconv.FormatUint(sh.ID, 10)), b); err != nil {
		slog.Warn("publish status change failed", "shipment_id", sh.ID, "err", err)
	}
}
