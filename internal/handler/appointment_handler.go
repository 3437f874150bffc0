package handler

import (
	"net/http"

	"github.com/google/uuid"

	"association-admin-api/internal/model"
	"association-admin-api/internal/store"
)

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	p, err := queryPage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	from, to, err := periodRange(r, h.now().In(h.opts.Location))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	list, total, err := h.store.ListAppointments(r.Context(), store.AppointmentFilter{
		Page: p, Client: r.URL.Query().Get("client"), From: from, To: to,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writePage(w, list, p, total)
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.GetAppointment(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, a, "")
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var a model.Appointment
	if err := h.decode(r, &a); err != nil {
		h.fail(w, r, err)
		return
	}
	a.ID = uuid.New().String()
	if err := h.store.CreateAppointment(r.Context(), &a); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusCreated, a, "appointment created")
}

func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var a model.Appointment
	if err := h.decode(r, &a); err != nil {
		h.fail(w, r, err)
		return
	}
	a.ID = pathID(r)
	if err := h.store.UpdateAppointment(r.Context(), &a); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusOK, a, "appointment updated")
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAppointment(r.Context(), pathID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusOK, nil, "appointment deleted")
}
