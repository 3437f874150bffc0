package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"association-admin-api/internal/model"
	"association-admin-api/internal/store"
)

const (
	defaultExpiryDays = 30
	expiringSoon      = 30 * 24 * time.Hour
)

func (h *Handler) today() time.Time {
	y, m, d := h.now().In(h.opts.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, h.opts.Location)
}

func (h *Handler) ListAssociates(w http.ResponseWriter, r *http.Request) {
	p, err := queryPage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f := store.AssociateFilter{Page: p, Name: r.URL.Query().Get("name")}

	switch b := r.URL.Query().Get("birthday"); b {
	case "":
	case "tomorrow":
		t := h.today().AddDate(0, 0, 1)
		f.Birthday = &t
	case "today":
		t := h.today()
		f.Birthday = &t
	default:
		h.fail(w, r, errBadRequest("birthday must be today or tomorrow"))
		return
	}

	list, total, err := h.store.ListAssociates(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writePage(w, list, p, total)
}

func (h *Handler) AssociateSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.store.AssociateSummary(r.Context(), h.now().In(h.opts.Location), expiringSoon)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sum, "")
}

// ExpiringAssociates lists memberships expiring within ?days (default 30).
// With expired=true, memberships that already lapsed are included.
func (h *Handler) ExpiringAssociates(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultExpiryDays)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if days < 0 {
		h.fail(w, r, errBadRequest("days must not be negative"))
		return
	}
	expired, err := queryBool(r, "expired")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	today := h.today()
	from := &today
	if expired != nil && *expired {
		from = nil
	}
	list, err := h.store.ExpiringAssociates(r.Context(), from, today.AddDate(0, 0, days+1))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, list, "")
}

func (h *Handler) GetAssociate(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.GetAssociate(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, a, "")
}

func (h *Handler) CreateAssociate(w http.ResponseWriter, r *http.Request) {
	var a model.Associate
	if err := h.decode(r, &a); err != nil {
		h.fail(w, r, err)
		return
	}
	a.ID = uuid.New().String()
	if err := h.store.CreateAssociate(r.Context(), &a); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusCreated, a, "associate created")
}

func (h *Handler) UpdateAssociate(w http.ResponseWriter, r *http.Request) {
	var a model.Associate
	if err := h.decode(r, &a); err != nil {
		h.fail(w, r, err)
		return
	}
	a.ID = pathID(r)
	if err := h.store.UpdateAssociate(r.Context(), &a); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusOK, a, "associate updated")
}

func (h *Handler) DeleteAssociate(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAssociate(r.Context(), pathID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusOK, nil, "associate deleted")
}
