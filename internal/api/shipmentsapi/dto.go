package shipmentsapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/fleetline/shiptrack/internal/models"
)

type customerDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type customerRefDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type shipmentDTO struct {
	ID          uint64         `json:"id"`
	Number      string         `json:"number"`
	Status      string         `json:"status"`
	Origin      string         `json:"origin"`
	Destination string         `json:"destination"`
	ETA         *time.Time     `json:"eta"`
	Customer    customerRefDTO `json:"customer"`
	CreatedAt   time.Time      `json:"created_at"`
}

type eventDTO struct {
	ID         uint64    `json:"id"`
	ShipmentID uint64    `json:"shipment_id"`
	TS         time.Time `json:"ts"`
	Status     string    `json:"status"`
	Comment    string    `json:"comment"`
	Lat        *float64  `json:"lat"`
	Lon        *float64  `json:"lon"`
	CreatedAt  time.Time `json:"created_at"`
}

type pageDTO[T any] struct {
	Count int64 `json:"count"`
	Items []T   `json:"items"`
}

func toCustomerDTO(c *models.Customer) customerDTO {
	return customerDTO{ID: c.ID, Name: c.Name}
}

func toShipmentDTO(sh *models.Shipment) shipmentDTO {
	return shipmentDTO{
		ID:          sh.ID,
		Number:      sh.Number,
		Status:      string(sh.Status),
		Origin:      sh.Origin,
		Destination: sh.Destination,
		ETA:         sh.ETA,
		Customer:    customerRefDTO{ID: sh.Customer.ID, Name: sh.Customer.Name},
		CreatedAt:   sh.CreatedAt,
	}
}

func toEventDTO(e *models.TrackingEvent) eventDTO {
	return eventDTO{
		ID:         e.ID,
		ShipmentID: e.ShipmentID,
		TS:         e.TS,
		Status:     string(e.Status),
		Comment:    e.Comment,
		Lat:        e.Lat,
		Lon:        e.Lon,
		CreatedAt:  e.CreatedAt,
	}
}

// Write payloads. Timestamps arrive as ISO-8601 strings; an unparseable ts is
// treated as absent, which then trips required-field validation downstream.

type customerWriteDTO struct {
	Name *string `json:"name"`
}

type shipmentWriteDTO struct {
	Number      *string `json:"number"`
	CustomerID  *uint64 `json:"customer_id"`
	Status      *string `json:"status"`
	Origin      *string `json:"origin"`
	Destination *string `json:"destination"`
	ETA         *string `json:"eta"`
}

type eventWriteDTO struct {
	ShipmentID *uint64  `json:"shipment_id"`
	TS         *string  `json:"ts"`
	Status     *string  `json:"status"`
	Comment    *string  `json:"comment"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
}

var tsLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTS accepts ISO-8601-ish timestamps; naive values are taken as UTC.
// Returns zero time when the value cannot be parsed.
func parseTS(raw string) time.Time {
	for _, layout := range tsLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func urlID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		// Unknown / malformed path id reads as a missing resource.
		return 0, models.ErrNotFound
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.NewValidationError("body", "malformed JSON")
	}
	return nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, models.NewValidationError(name, "must be a non-negative integer")
	}
	return v, nil
}

func queryUint64Ptr(r *http.Request, name string) (*uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, models.NewValidationError(name, "must be a positive integer")
	}
	return &v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if ve, ok := models.AsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": ve.Fields})
		return
	}
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
	case errors.Is(err, models.ErrUniqueViolation):
		writeJSON(w, http.StatusConflict, map[string]string{"detail": "duplicate value for a unique field"})
	case errors.Is(err, models.ErrForeignKey):
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "referenced record does not exist"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
	}
}
