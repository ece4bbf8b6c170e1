package shipmentsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/fleetline/shiptrack/internal/models"
	"github.com/fleetline/shiptrack/internal/services/shipments"
)

// memRepo backs the handler tests with real entity state so the responses
// reflect what a request actually changed.
type memRepo struct {
	customers map[uint64]*models.Customer
	shipments map[uint64]*models.Shipment
	events    map[uint64]*models.TrackingEvent
	nextID    uint64
}

func newMemRepo() *memRepo {
	return &memRepo{
		customers: map[uint64]*models.Customer{},
		shipments: map[uint64]*models.Shipment{},
		events:    map[uint64]*models.TrackingEvent{},
	}
}

func (r *memRepo) id() uint64 {
	r.nextID++
	return r.nextID
}

func (r *memRepo) CreateCustomer(ctx context.Context, in models.CustomerCreateInput) (*models.Customer, error) {
	for _, c := range r.customers {
		if c.Name == in.Name {
			return nil, models.ErrUniqueViolation
		}
	}
	c := &models.Customer{ID: r.id(), Name: in.Name, CreatedAt: time.Now()}
	r.customers[c.ID] = c
	return c, nil
}

func (r *memRepo) GetCustomerByID(ctx context.Context, id uint64) (*models.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return c, nil
}

func (r *memRepo) GetCustomerByName(ctx context.Context, name string) (*models.Customer, error) {
	for _, c := range r.customers {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memRepo) UpdateCustomer(ctx context.Context, id uint64, in models.CustomerUpdateInput) (*models.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	return c, nil
}

func (r *memRepo) DeleteCustomer(ctx context.Context, id uint64) error {
	if _, ok := r.customers[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.customers, id)
	for sid, sh := range r.shipments {
		if sh.CustomerID == id {
			_ = r.DeleteShipment(ctx, sid)
		}
	}
	return nil
}

func (r *memRepo) ListCustomers(ctx context.Context, f models.CustomerFilter) (*models.Page[*models.Customer], error) {
	var items []*models.Customer
	for _, c := range r.customers {
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool {
		if f.Desc {
			return items[i].Name > items[j].Name
		}
		return items[i].Name < items[j].Name
	})
	return &models.Page[*models.Customer]{Count: int64(len(items)), Items: items}, nil
}

func (r *memRepo) CreateShipment(ctx context.Context, in models.ShipmentCreateInput, initial *models.TrackingEvent) (*models.Shipment, *models.TrackingEvent, error) {
	cust, ok := r.customers[in.CustomerID]
	if !ok {
		return nil, nil, models.ErrForeignKey
	}
	for _, sh := range r.shipments {
		if sh.Number == in.Number {
			return nil, nil, models.ErrUniqueViolation
		}
	}
	sh := &models.Shipment{
		ID:          r.id(),
		Number:      in.Number,
		CustomerID:  in.CustomerID,
		Customer:    models.CustomerRef{ID: cust.ID, Name: cust.Name},
		Status:      models.StatusCreated,
		Origin:      in.Origin,
		Destination: in.Destination,
		ETA:         in.ETA,
		CreatedAt:   time.Now(),
	}
	r.shipments[sh.ID] = sh

	ev := *initial
	ev.ID = r.id()
	ev.ShipmentID = sh.ID
	ev.CreatedAt = time.Now()
	r.events[ev.ID] = &ev
	return sh, &ev, nil
}

func (r *memRepo) GetShipmentByID(ctx context.Context, id uint64) (*models.Shipment, error) {
	sh, ok := r.shipments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return sh, nil
}

func (r *memRepo) GetShipmentByNumber(ctx context.Context, number string) (*models.Shipment, error) {
	for _, sh := range r.shipments {
		if sh.Number == number {
			return sh, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memRepo) UpdateShipment(ctx context.Context, id uint64, in models.ShipmentUpdateInput) (*models.Shipment, error) {
	sh, ok := r.shipments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if in.Number != nil {
		sh.Number = *in.Number
	}
	if in.Status != nil {
		sh.Status = *in.Status
	}
	if in.Origin != nil {
		sh.Origin = *in.Origin
	}
	if in.Destination != nil {
		sh.Destination = *in.Destination
	}
	if in.ETA != nil {
		sh.ETA = in.ETA
	}
	if in.ClearETA {
		sh.ETA = nil
	}
	return sh, nil
}

func (r *memRepo) DeleteShipment(ctx context.Context, id uint64) error {
	if _, ok := r.shipments[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.shipments, id)
	for eid, ev := range r.events {
		if ev.ShipmentID == id {
			delete(r.events, eid)
		}
	}
	return nil
}

func (r *memRepo) ListShipments(ctx context.Context, f models.ShipmentFilter) (*models.Page[*models.Shipment], error) {
	var items []*models.Shipment
	for _, sh := range r.shipments {
		if f.Status != nil && sh.Status != *f.Status {
			continue
		}
		if f.CustomerID != nil && sh.CustomerID != *f.CustomerID {
			continue
		}
		items = append(items, sh)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &models.Page[*models.Shipment]{Count: int64(len(items)), Items: items}, nil
}

func (r *memRepo) AppendShipmentEvent(ctx context.Context, shipmentID uint64, ev *models.TrackingEvent) (*models.TrackingEvent, *models.Shipment, error) {
	sh, ok := r.shipments[shipmentID]
	if !ok {
		return nil, nil, models.ErrNotFound
	}
	cp := *ev
	cp.ID = r.id()
	cp.ShipmentID = shipmentID
	cp.CreatedAt = time.Now()
	r.events[cp.ID] = &cp
	sh.Status = cp.Status
	return &cp, sh, nil
}

func (r *memRepo) CreateEvent(ctx context.Context, ev *models.TrackingEvent) (*models.TrackingEvent, error) {
	if _, ok := r.shipments[ev.ShipmentID]; !ok {
		return nil, models.ErrForeignKey
	}
	cp := *ev
	cp.ID = r.id()
	cp.CreatedAt = time.Now()
	r.events[cp.ID] = &cp
	return &cp, nil
}

func (r *memRepo) GetEventByID(ctx context.Context, id uint64) (*models.TrackingEvent, error) {
	ev, ok := r.events[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return ev, nil
}

func (r *memRepo) UpdateEvent(ctx context.Context, id uint64, in models.EventUpdateInput) (*models.TrackingEvent, error) {
	ev, ok := r.events[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if in.TS != nil {
		ev.TS = *in.TS
	}
	if in.Status != nil {
		ev.Status = *in.Status
	}
	if in.Comment != nil {
		ev.Comment = *in.Comment
	}
	if in.Lat != nil {
		ev.Lat = in.Lat
	}
	if in.Lon != nil {
		ev.Lon = in.Lon
	}
	return ev, nil
}

func (r *memRepo) DeleteEvent(ctx context.Context, id uint64) error {
	if _, ok := r.events[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *memRepo) ListEvents(ctx context.Context, f models.EventFilter) (*models.Page[*models.TrackingEvent], error) {
	var items []*models.TrackingEvent
	for _, ev := range r.events {
		if f.ShipmentID != nil && ev.ShipmentID != *f.ShipmentID {
			continue
		}
		if f.Status != nil && ev.Status != *f.Status {
			continue
		}
		items = append(items, ev)
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		less := a.TS.Before(b.TS) || (a.TS.Equal(b.TS) && a.ID < b.ID)
		if f.Desc {
			return !less
		}
		return less
	})
	return &models.Page[*models.TrackingEvent]{Count: int64(len(items)), Items: items}, nil
}

func newTestRouter(t *testing.T) (chi.Router, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	svc := shipments.New(repo, nil, 0)
	return New(svc).Router(), repo
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func mkCustomer(t *testing.T, r chi.Router, name string) uint64 {
	t.Helper()
	rec, body := doJSON(t, r, http.MethodPost, "/customers", map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code)
	return uint64(body["id"].(float64))
}

func mkShipment(t *testing.T, r chi.Router, number string, customerID uint64) uint64 {
	t.Helper()
	rec, body := doJSON(t, r, http.MethodPost, "/shipments", map[string]any{
		"number":      number,
		"customer_id": customerID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return uint64(body["id"].(float64))
}

func TestCustomerEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	id := mkCustomer(t, r, "Acme")

	rec, _ := doJSON(t, r, http.MethodPost, "/customers", map[string]any{"name": "Acme"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec, body := doJSON(t, r, http.MethodGet, fmt.Sprintf("/customers/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Acme", body["name"])

	rec, body = doJSON(t, r, http.MethodPut, fmt.Sprintf("/customers/%d", id), map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["errors"], "name")

	rec, body = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/customers/%d", id), map[string]any{"name": "Acme GmbH"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Acme GmbH", body["name"])

	rec, _ = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/customers/%d", id), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, r, http.MethodGet, fmt.Sprintf("/customers/%d", id), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateShipment(t *testing.T) {
	r, _ := newTestRouter(t)
	custID := mkCustomer(t, r, "Acme")

	rec, body := doJSON(t, r, http.MethodPost, "/shipments", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["errors"], "number")
	require.Contains(t, body["errors"], "customer_id")

	rec, body = doJSON(t, r, http.MethodPost, "/shipments", map[string]any{
		"number":      "SHP-1",
		"customer_id": custID,
		"origin":      "Gdansk",
		"destination": "Berlin",
		"eta":         "2026-09-01T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "CREATED", body["status"])
	require.Equal(t, "Acme", body["customer"].(map[string]any)["name"])

	rec, _ = doJSON(t, r, http.MethodPost, "/shipments", map[string]any{
		"number":      "SHP-1",
		"customer_id": custID,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec, body = doJSON(t, r, http.MethodPost, "/shipments", map[string]any{
		"number":      "SHP-2",
		"customer_id": custID,
		"eta":         "not-a-date",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["errors"], "eta")

	rec, _ = doJSON(t, r, http.MethodPost, "/shipments", map[string]any{
		"number":      "SHP-3",
		"customer_id": custID + 100,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShipmentUpdate_ETASemantics(t *testing.T) {
	r, repo := newTestRouter(t)
	custID := mkCustomer(t, r, "Acme")

	rec, body := doJSON(t, r, http.MethodPost, "/shipments", map[string]any{
		"number":      "SHP-1",
		"customer_id": custID,
		"eta":         "2026-09-01T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := uint64(body["id"].(float64))
	require.NotNil(t, repo.shipments[id].ETA)

	// PATCH without eta leaves it alone.
	rec, _ = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/shipments/%d", id), map[string]any{"origin": "Sopot"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.shipments[id].ETA)

	// PUT without eta clears it, full replace.
	rec, _ = doJSON(t, r, http.MethodPut, fmt.Sprintf("/shipments/%d", id), map[string]any{
		"number":      "SHP-1",
		"customer_id": custID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, repo.shipments[id].ETA)
}

func TestAppendShipmentEvent(t *testing.T) {
	r, _ := newTestRouter(t)
	custID := mkCustomer(t, r, "Acme")
	shID := mkShipment(t, r, "SHP-1", custID)

	rec, body := doJSON(t, r, http.MethodPost, fmt.Sprintf("/shipments/%d/events", shID), map[string]any{
		"status": "IN_TRANSIT",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["errors"], "ts")

	// Unparseable ts reads as absent.
	rec, body = doJSON(t, r, http.MethodPost, fmt.Sprintf("/shipments/%d/events", shID), map[string]any{
		"ts":     "yesterday-ish",
		"status": "IN_TRANSIT",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["errors"], "ts")

	rec, body = doJSON(t, r, http.MethodPost, fmt.Sprintf("/shipments/%d/events", shID), map[string]any{
		"ts":     "2026-08-20T12:00:00Z",
		"status": "IN_TRANSIT",
		"lat":    54.35,
		"lon":    18.65,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "IN_TRANSIT", body["status"])

	rec, body = doJSON(t, r, http.MethodGet, fmt.Sprintf("/shipments/%d", shID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "IN_TRANSIT", body["status"])

	rec, _ = doJSON(t, r, http.MethodPost, "/shipments/999/events", map[string]any{
		"ts": "2026-08-20T12:00:00Z",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShipmentEvents_OutOfOrder(t *testing.T) {
	r, _ := newTestRouter(t)
	custID := mkCustomer(t, r, "Acme")
	shID := mkShipment(t, r, "SHP-1", custID)

	rec, _ := doJSON(t, r, http.MethodPost, fmt.Sprintf("/shipments/%d/events", shID), map[string]any{
		"ts":     "2026-08-20T13:00:00Z",
		"status": "IN_TRANSIT",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Arrives later, stamped earlier. It still decides the status.
	rec, _ = doJSON(t, r, http.MethodPost, fmt.Sprintf("/shipments/%d/events", shID), map[string]any{
		"ts":     "2026-08-20T12:30:00Z",
		"status": "DELAYED",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := doJSON(t, r, http.MethodGet, fmt.Sprintf("/shipments/%d", shID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "DELAYED", body["status"])

	rec, body = doJSON(t, r, http.MethodGet, fmt.Sprintf("/shipments/%d/events", shID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := body["items"].([]any)
	require.Len(t, items, 3)
	require.Equal(t, "DELAYED", items[1].(map[string]any)["status"])
	require.Equal(t, "IN_TRANSIT", items[2].(map[string]any)["status"])
}

func TestEventEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	custID := mkCustomer(t, r, "Acme")
	shID := mkShipment(t, r, "SHP-1", custID)

	rec, body := doJSON(t, r, http.MethodPost, "/events", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["errors"], "shipment_id")
	require.Contains(t, body["errors"], "ts")
	require.Contains(t, body["errors"], "status")

	rec, body = doJSON(t, r, http.MethodPost, "/events", map[string]any{
		"shipment_id": shID,
		"ts":          "2026-08-20T12:00:00Z",
		"status":      "DELIVERED",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	evID := uint64(body["id"].(float64))

	// Direct creation never re-derives the shipment's status.
	rec, body = doJSON(t, r, http.MethodGet, fmt.Sprintf("/shipments/%d", shID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "CREATED", body["status"])

	rec, body = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/events/%d", evID), map[string]any{
		"comment": "left warehouse",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "left warehouse", body["comment"])

	rec, _ = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/events/%d", evID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, r, http.MethodGet, fmt.Sprintf("/events/%d", evID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := doJSON(t, r, http.MethodGet, "/shipments?ordering=weight", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["errors"], "ordering")

	rec, body = doJSON(t, r, http.MethodGet, "/shipments?status=LOST", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["errors"], "status")

	rec, _ = doJSON(t, r, http.MethodGet, "/events?limit=-3", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMalformedRequests(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/customers", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, r, http.MethodGet, "/shipments/abc", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	if l.err != nil {
		return false, 0, l.err
	}
	l.counts[key]++
	return l.counts[key] <= limit, l.counts[key], nil
}

func TestRateLimit(t *testing.T) {
	repo := newMemRepo()
	svc := shipments.New(repo, nil, 0)
	api := New(svc).WithRateLimiter(&fakeLimiter{counts: map[string]int64{}}, 2)
	r := api.Router()

	for i := 0; i < 2; i++ {
		rec, _ := doJSON(t, r, http.MethodGet, "/healthz", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, _ := doJSON(t, r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimit_LimiterOutage(t *testing.T) {
	repo := newMemRepo()
	svc := shipments.New(repo, nil, 0)
	api := New(svc).WithRateLimiter(&fakeLimiter{err: context.DeadlineExceeded}, 1)
	r := api.Router()

	for i := 0; i < 3; i++ {
		rec, _ := doJSON(t, r, http.MethodGet, "/healthz", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
