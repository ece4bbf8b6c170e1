package pgstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/fleetline/shiptrack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const eventCols = `
  id, shipment_id, ts, status, comment, lat, lon, created_at
`

func scanEvent(row pgx.Row) (*models.TrackingEvent, error) {
	var e models.TrackingEvent
	if err := row.Scan(
		&e.ID, &e.ShipmentID, &e.TS, &e.Status, &e.Comment, &e.Lat, &e.Lon, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEvent inserts an event record directly, without touching the owning
// shipment's status. The derivation path is AppendShipmentEvent.
func (s *Storage) CreateEvent(ctx context.Context, ev *models.TrackingEvent) (*models.TrackingEvent, error) {
	out := *ev
	err := s.db.QueryRow(ctx, `
INSERT INTO tracking_events (shipment_id, ts, status, comment, lat, lon, created_at)
VALUES ($1,$2,$3,$4,$5,$6, now())
RETURNING id, created_at
`, out.ShipmentID, out.TS.UTC(), out.Status, out.Comment, out.Lat, out.Lon).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, mapErr(err, "insert event")
	}
	return &out, nil
}

func (s *Storage) GetEventByID(ctx context.Context, id uint64) (*models.TrackingEvent, error) {
	e, err := scanEvent(s.db.QueryRow(ctx, `SELECT`+eventCols+`FROM tracking_events WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "select event")
	}
	return e, nil
}

func (s *Storage) UpdateEvent(ctx context.Context, id uint64, in models.EventUpdateInput) (*models.TrackingEvent, error) {
	sets := make([]string, 0, 5)
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if in.TS != nil {
		add("ts", in.TS.UTC())
	}
	if in.Status != nil {
		add("status", *in.Status)
	}
	if in.Comment != nil {
		add("comment", *in.Comment)
	}
	if in.Lat != nil {
		add("lat", *in.Lat)
	}
	if in.Lon != nil {
		add("lon", *in.Lon)
	}

	if len(sets) == 0 {
		return s.GetEventByID(ctx, id)
	}

	ct, err := s.db.Exec(ctx, `UPDATE tracking_events SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return nil, mapErr(err, "update event")
	}
	if ct.RowsAffected() == 0 {
		return nil, errors.Wrap(models.ErrNotFound, "update event")
	}
	return s.GetEventByID(ctx, id)
}

func (s *Storage) DeleteEvent(ctx context.Context, id uint64) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM tracking_events WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "delete event")
	}
	if ct.RowsAffected() == 0 {
		return errors.Wrap(models.ErrNotFound, "delete event")
	}
	return nil
}

func (s *Storage) ListEvents(ctx context.Context, f models.EventFilter) (*models.Page[*models.TrackingEvent], error) {
	var status any
	if f.Status != nil {
		status = string(*f.Status)
	}
	where, args := buildWhere(
		condEq("shipment_id", u64OrNil(f.ShipmentID)),
		condEq("status", status),
	)

	var count int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM tracking_events`+where, args...).Scan(&count); err != nil {
		return nil, mapErr(err, "count events")
	}

	// Default ts ASC: event listings read as a chronology.
	order := orderClause(f.OrderBy, f.Desc, map[string]string{
		"ts":         "ts",
		"created_at": "created_at",
	}, "ts ASC")
	limit, offset := clampPage(f.Limit, f.Offset)

	q := fmt.Sprintf(`SELECT%sFROM tracking_events%s ORDER BY %s, id ASC LIMIT %d OFFSET %d`,
		eventCols, where, order, limit, offset)
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err, "select events")
	}
	defer rows.Close()

	items := make([]*models.TrackingEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		items = append(items, e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	return &models.Page[*models.TrackingEvent]{Count: count, Items: items}, nil
}
