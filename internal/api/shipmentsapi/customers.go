package shipmentsapi

import (
	"net/http"

	"github.com/fleetline/shiptrack/internal/models"
	"github.com/fleetline/shiptrack/internal/services/shipments"
)

func (a *API) listCustomers(w http.ResponseWriter, r *http.Request) {
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

	q := r.URL.Query()
	page, err := a.svc.ListCustomers(r.Context(), shipments.CustomerListParams{
		Name:     q.Get("name"),
		Search:   q.Get("search"),
		Ordering: q.Get("ordering"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := pageDTO[customerDTO]{Count: page.Count, Items: make([]customerDTO, 0, len(page.Items))}
	for _, c := range page.Items {
		out.Items = append(out.Items, toCustomerDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createCustomer(w http.ResponseWriter, r *http.Request) {
	var in customerWriteDTO
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	name := ""
	if in.Name != nil {
		name = *in.Name
	}
	c, err := a.svc.CreateCustomer(r.Context(), models.CustomerCreateInput{Name: name})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(c))
}

func (a *API) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := a.svc.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

func (a *API) putCustomer(w http.ResponseWriter, r *http.Request) {
	a.updateCustomer(w, r, true)
}

func (a *API) patchCustomer(w http.ResponseWriter, r *http.Request) {
	a.updateCustomer(w, r, false)
}

func (a *API) updateCustomer(w http.ResponseWriter, r *http.Request, full bool) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in customerWriteDTO
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if full && in.Name == nil {
		writeError(w, models.NewValidationError("name", "required"))
		return
	}
	c, err := a.svc.UpdateCustomer(r.Context(), id, models.CustomerUpdateInput{Name: in.Name})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(c))
}

func (a *API) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.svc.DeleteCustomer(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
