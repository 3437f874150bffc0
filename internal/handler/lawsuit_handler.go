package handler

import (
	"net/http"

	"github.com/google/uuid"

	"association-admin-api/internal/model"
	"association-admin-api/internal/store"
)

// ListLawsuits filters the period on the case's creation time.
func (h *Handler) ListLawsuits(w http.ResponseWriter, r *http.Request) {
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
	archived, err := queryBool(r, "archived")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	list, total, err := h.store.ListLawsuits(r.Context(), store.LawsuitFilter{
		Page: p, Client: r.URL.Query().Get("client"), From: from, To: to, Archived: archived,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writePage(w, list, p, total)
}

func (h *Handler) LawsuitSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.store.LawsuitSummary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sum, "")
}

func (h *Handler) GetLawsuit(w http.ResponseWriter, r *http.Request) {
	l, err := h.store.GetLawsuit(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, l, "")
}

func (h *Handler) CreateLawsuit(w http.ResponseWriter, r *http.Request) {
	var l model.Lawsuit
	if err := h.decode(r, &l); err != nil {
		h.fail(w, r, err)
		return
	}
	l.ID = uuid.New().String()
	if err := h.store.CreateLawsuit(r.Context(), &l); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusCreated, l, "lawsuit created")
}

func (h *Handler) UpdateLawsuit(w http.ResponseWriter, r *http.Request) {
	var l model.Lawsuit
	if err := h.decode(r, &l); err != nil {
		h.fail(w, r, err)
		return
	}
	l.ID = pathID(r)
	if err := h.store.UpdateLawsuit(r.Context(), &l); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusOK, l, "lawsuit updated")
}

func (h *Handler) DeleteLawsuit(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteLawsuit(r.Context(), pathID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusOK, nil, "lawsuit deleted")
}
