package shipmentsapi

import (
	"net/http"

	"github.com/fleetline/shiptrack/internal/models"
	"github.com/fleetline/shiptrack/internal/services/shipments"
)

// Direct /events CRUD. Writes here are record edits only and never touch the
// owning shipment's derived status.

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}
	shipmentID, err := queryUint64Ptr(r, "shipment")
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	page, err := a.svc.ListEvents(r.Context(), shipments.EventListParams{
		ShipmentID: shipmentID,
		Status:     q.Get("status"),
		Ordering:   q.Get("ordering"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := pageDTO[eventDTO]{Count: page.Count, Items: make([]eventDTO, 0, len(page.Items))}
	for _, e := range page.Items {
		out.Items = append(out.Items, toEventDTO(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createEvent(w http.ResponseWriter, r *http.Request) {
	var in eventWriteDTO
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}

	create := shipments.EventCreateInput{
		Input: models.EventInput{Lat: in.Lat, Lon: in.Lon},
	}
	if in.ShipmentID != nil {
		create.ShipmentID = *in.ShipmentID
	}
	if in.TS != nil {
		create.Input.TS = parseTS(*in.TS)
	}
	if in.Status != nil {
		st := models.Status(*in.Status)
		create.Input.Status = &st
	}
	if in.Comment != nil {
		create.Input.Comment = *in.Comment
	}

	ev, err := a.svc.CreateEvent(r.Context(), create)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(ev))
}

func (a *API) getEvent(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ev, err := a.svc.GetEvent(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(ev))
}

func (a *API) putEvent(w http.ResponseWriter, r *http.Request) {
	a.updateEvent(w, r, true)
}

func (a *API) patchEvent(w http.ResponseWriter, r *http.Request) {
	a.updateEvent(w, r, false)
}

func (a *API) updateEvent(w http.ResponseWriter, r *http.Request, full bool) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in eventWriteDTO
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}

	if full {
		ve := &models.ValidationError{}
		if in.TS == nil {
			ve.Add("ts", "required")
		}
		if in.Status == nil {
			ve.Add("status", "required")
		}
		if !ve.Empty() {
			writeError(w, ve)
			return
		}
	}

	upd := models.EventUpdateInput{
		Comment: in.Comment,
		Lat:     in.Lat,
		Lon:     in.Lon,
	}
	if in.TS != nil {
		ts := parseTS(*in.TS)
		if ts.IsZero() {
			writeError(w, models.NewValidationError("ts", "invalid timestamp"))
			return
		}
		upd.TS = &ts
	}
	if in.Status != nil {
		st := models.Status(*in.Status)
		upd.Status = &st
	}

	ev, err := a.svc.UpdateEvent(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(ev))
}

func (a *API) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.svc.DeleteEvent(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
