package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fleetline/shiptrack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const shipmentCols = `
  s.id, s.number, s.customer_id, s.status,
  s.origin, s.destination, s.eta, s.created_at,
  c.name
`

const shipmentFrom = ` FROM shipments s JOIN customers c ON c.id = s.customer_id`

func scanShipment(row pgx.Row) (*models.Shipment, error) {
	var sh models.Shipment
	if err := row.Scan(
		&sh.ID, &sh.Number, &sh.CustomerID, &sh.Status,
		&sh.Origin, &sh.Destination, &sh.ETA, &sh.CreatedAt,
		&sh.Customer.Name,
	); err != nil {
		return nil, err
	}
	sh.Customer.ID = sh.CustomerID
	return &sh, nil
}

// CreateShipment persists the shipment and its synthesized initial event in
// one transaction, so a shipment is never observable without its birth event.
func (s *Storage) CreateShipment(ctx context.Context, in models.ShipmentCreateInput, initial *models.TrackingEvent) (*models.Shipment, *models.TrackingEvent, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id uint64
	err = tx.QueryRow(ctx, `
INSERT INTO shipments (number, customer_id, status, origin, destination, eta, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id
`, in.Number, in.CustomerID, models.StatusCreated, in.Origin, in.Destination, in.ETA, now).Scan(&id)
	if err != nil {
		return nil, nil, mapErr(err, "insert shipment")
	}

	ev := *initial
	ev.ShipmentID = id
	err = tx.QueryRow(ctx, `
INSERT INTO tracking_events (shipment_id, ts, status, comment, lat, lon, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, created_at
`, ev.ShipmentID, ev.TS.UTC(), ev.Status, ev.Comment, ev.Lat, ev.Lon, now).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return nil, nil, mapErr(err, "insert initial event")
	}

	sh, err := scanShipment(tx.QueryRow(ctx, `SELECT`+shipmentCols+shipmentFrom+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, nil, mapErr(err, "select shipment")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "commit tx")
	}
	return sh, &ev, nil
}

func (s *Storage) GetShipmentByID(ctx context.Context, id uint64) (*models.Shipment, error) {
	sh, err := scanShipment(s.db.QueryRow(ctx, `SELECT`+shipmentCols+shipmentFrom+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "select shipment")
	}
	return sh, nil
}

func (s *Storage) GetShipmentByNumber(ctx context.Context, number string) (*models.Shipment, error) {
	sh, err := scanShipment(s.db.QueryRow(ctx, `SELECT`+shipmentCols+shipmentFrom+` WHERE s.number = $1`, number))
	if err != nil {
		return nil, mapErr(err, "select shipment")
	}
	return sh, nil
}

func (s *Storage) UpdateShipment(ctx context.Context, id uint64, in models.ShipmentUpdateInput) (*models.Shipment, error) {
	sets := make([]string, 0, 6)
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if in.Number != nil {
		add("number", *in.Number)
	}
	if in.CustomerID != nil {
		add("customer_id", *in.CustomerID)
	}
	if in.Status != nil {
		add("status", *in.Status)
	}
	if in.Origin != nil {
		add("origin", *in.Origin)
	}
	if in.Destination != nil {
		add("destination", *in.Destination)
	}
	if in.ETA != nil {
		add("eta", in.ETA.UTC())
	} else if in.ClearETA {
		sets = append(sets, "eta = NULL")
	}

	if len(sets) == 0 {
		return s.GetShipmentByID(ctx, id)
	}

	ct, err := s.db.Exec(ctx, `UPDATE shipments SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return nil, mapErr(err, "update shipment")
	}
	if ct.RowsAffected() == 0 {
		return nil, errors.Wrap(models.ErrNotFound, "update shipment")
	}
	return s.GetShipmentByID(ctx, id)
}

func (s *Storage) DeleteShipment(ctx context.Context, id uint64) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM shipments WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "delete shipment")
	}
	if ct.RowsAffected() == 0 {
		return errors.Wrap(models.ErrNotFound, "delete shipment")
	}
	return nil
}

func (s *Storage) ListShipments(ctx context.Context, f models.ShipmentFilter) (*models.Page[*models.Shipment], error) {
	var status any
	if f.Status != nil {
		status = string(*f.Status)
	}
	where, args := buildWhere(
		condEq("s.status", status),
		condEq("s.customer_id", u64OrNil(f.CustomerID)),
		condEq("s.origin", strOrNil(f.Origin)),
		condEq("s.destination", strOrNil(f.Destination)),
		condILikeAny(f.Search, "s.number", "s.origin", "s.destination"),
	)

	var count int64
	if err := s.db.QueryRow(ctx, `SELECT count(*)`+shipmentFrom+where, args...).Scan(&count); err != nil {
		return nil, mapErr(err, "count shipments")
	}

	order := orderClause(f.OrderBy, f.Desc, map[string]string{
		"created_at": "s.created_at",
		"eta":        "s.eta",
	}, "s.created_at ASC")
	limit, offset := clampPage(f.Limit, f.Offset)

	q := fmt.Sprintf(`SELECT%s%s%s ORDER BY %s, s.id ASC LIMIT %d OFFSET %d`,
		shipmentCols, shipmentFrom, where, order, limit, offset)
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err, "select shipments")
	}
	defer rows.Close()

	items := make([]*models.Shipment, 0)
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		items = append(items, sh)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	return &models.Page[*models.Shipment]{Count: count, Items: items}, nil
}

// AppendShipmentEvent inserts the event and, when its status differs from the
// shipment's stored status, overwrites the status in the same transaction.
// The shipment row is locked first so concurrent appends against one shipment
// serialize; the last committed append wins the status field.
func (s *Storage) AppendShipmentEvent(ctx context.Context, shipmentID uint64, ev *models.TrackingEvent) (*models.TrackingEvent, *models.Shipment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current models.Status
	err = tx.QueryRow(ctx, `SELECT status FROM shipments WHERE id = $1 FOR UPDATE`, shipmentID).Scan(&current)
	if err != nil {
		return nil, nil, mapErr(err, "lock shipment")
	}

	out := *ev
	out.ShipmentID = shipmentID
	err = tx.QueryRow(ctx, `
INSERT INTO tracking_events (shipment_id, ts, status, comment, lat, lon, created_at)
VALUES ($1,$2,$3,$4,$5,$6, now())
RETURNING id, created_at
`, shipmentID, out.TS.UTC(), out.Status, out.Comment, out.Lat, out.Lon).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, nil, mapErr(err, "insert event")
	}

	if out.Status != current {
		if _, err := tx.Exec(ctx, `UPDATE shipments SET status = $2 WHERE id = $1`, shipmentID, out.Status); err != nil {
			return nil, nil, mapErr(err, "update shipment status")
		}
	}

	sh, err := scanShipment(tx.QueryRow(ctx, `SELECT`+shipmentCols+shipmentFrom+` WHERE s.id = $1`, shipmentID))
	if err != nil {
		return nil, nil, mapErr(err, "select shipment")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "commit tx")
	}
	return &out, sh, nil
}
