package shipmentsapi

import (
	"net/http"

	"github.com/fleetline/shiptrack/internal/models"
	"github.com/fleetline/shiptrack/internal/services/shipments"
)

func (a *API) listShipments(w http.ResponseWriter, r *http.Request) {
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
	customerID, err := queryUint64Ptr(r, "customer")
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	page, err := a.svc.ListShipments(r.Context(), shipments.ShipmentListParams{
		Status:      q.Get("status"),
		CustomerID:  customerID,
		Origin:      q.Get("origin"),
		Destination: q.Get("destination"),
		Search:      q.Get("search"),
		Ordering:    q.Get("ordering"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := pageDTO[shipmentDTO]{Count: page.Count, Items: make([]shipmentDTO, 0, len(page.Items))}
	for _, sh := range page.Items {
		out.Items = append(out.Items, toShipmentDTO(sh))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createShipment(w http.ResponseWriter, r *http.Request) {
	var in shipmentWriteDTO
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}

	create := models.ShipmentCreateInput{}
	if in.Number != nil {
		create.Number = *in.Number
	}
	if in.CustomerID != nil {
		create.CustomerID = *in.CustomerID
	}
	if in.Origin != nil {
		create.Origin = *in.Origin
	}
	if in.Destination != nil {
		create.Destination = *in.Destination
	}
	if in.ETA != nil && *in.ETA != "" {
		eta := parseTS(*in.ETA)
		if eta.IsZero() {
			writeError(w, models.NewValidationError("eta", "invalid timestamp"))
			return
		}
		create.ETA = &eta
	}

	sh, err := a.svc.CreateShipment(r.Context(), create)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShipmentDTO(sh))
}

func (a *API) getShipment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sh, err := a.svc.GetShipment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentDTO(sh))
}

func (a *API) putShipment(w http.ResponseWriter, r *http.Request) {
	a.updateShipment(w, r, true)
}

func (a *API) patchShipment(w http.ResponseWriter, r *http.Request) {
	a.updateShipment(w, r, false)
}

func (a *API) updateShipment(w http.ResponseWriter, r *http.Request, full bool) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in shipmentWriteDTO
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}

	if full {
		ve := &models.ValidationError{}
		if in.Number == nil {
			ve.Add("number", "required")
		}
		if in.CustomerID == nil {
			ve.Add("customer_id", "required")
		}
		if !ve.Empty() {
			writeError(w, ve)
			return
		}
	}

	upd := models.ShipmentUpdateInput{
		Number:      in.Number,
		CustomerID:  in.CustomerID,
		Origin:      in.Origin,
		Destination: in.Destination,
	}
	if in.Status != nil {
		st := models.Status(*in.Status)
		upd.Status = &st
	}
	if in.ETA != nil {
		if *in.ETA == "" {
			upd.ClearETA = true
		} else {
			eta := parseTS(*in.ETA)
			if eta.IsZero() {
				writeError(w, models.NewValidationError("eta", "invalid timestamp"))
				return
			}
			upd.ETA = &eta
		}
	} else if full {
		upd.ClearETA = true
	}

	sh, err := a.svc.UpdateShipment(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentDTO(sh))
}

func (a *API) deleteShipment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.svc.DeleteShipment(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listShipmentEvents(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
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

	page, err := a.svc.ListShipmentEvents(r.Context(), id, r.URL.Query().Get("ordering"), limit, offset)
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

// appendShipmentEvent is the ingestion endpoint: the only API path that
// re-derives the shipment's status.
func (a *API) appendShipmentEvent(w http.ResponseWriter, r *http.Request) {
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

	input := models.EventInput{
		Lat: in.Lat,
		Lon: in.Lon,
	}
	if in.TS != nil {
		input.TS = parseTS(*in.TS)
	}
	if in.Status != nil {
		st := models.Status(*in.Status)
		input.Status = &st
	}
	if in.Comment != nil {
		input.Comment = *in.Comment
	}

	ev, _, err := a.svc.AppendEvent(r.Context(), id, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(ev))
}
