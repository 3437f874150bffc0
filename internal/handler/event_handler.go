package handler

import (
	"net/http"

	"github.com/google/uuid"

	"association-admin-api/internal/model"
	"association-admin-api/internal/store"
)

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
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

	list, total, err := h.store.ListEvents(r.Context(), store.EventFilter{
		Page: p, Name: r.URL.Query().Get("name"), From: from, To: to,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writePage(w, list, p, total)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.store.GetEvent(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, e, "")
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var e model.Event
	if err := h.decode(r, &e); err != nil {
		h.fail(w, r, err)
		return
	}
	e.ID = uuid.New().String()
	if err := h.store.CreateEvent(r.Context(), &e); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusCreated, e, "event created")
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var e model.Event
	if err := h.decode(r, &e); err != nil {
		h.fail(w, r, err)
		return
	}
	e.ID = pathID(r)
	if err := h.store.UpdateEvent(r.Context(), &e); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusOK, e, "event updated")
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteEvent(r.Context(), pathID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusOK, nil, "event deleted")
}
