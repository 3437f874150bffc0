package handler

import (
	"net/http"

	"github.com/google/uuid"

	"association-admin-api/internal/model"
	"association-admin-api/internal/store"
)

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	p, err := queryPage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status, err := oneOf(r, "status", model.TaskPending, model.TaskInProgress, model.TaskDone)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	priority, err := oneOf(r, "priority", model.PriorityLow, model.PriorityMedium, model.PriorityHigh)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	list, total, err := h.store.ListTasks(r.Context(), store.TaskFilter{
		Page: p, Client: r.URL.Query().Get("client"), Status: status, Priority: priority,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writePage(w, list, p, total)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetTask(r.Context(), pathID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t, "")
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var t model.Task
	if err := h.decode(r, &t); err != nil {
		h.fail(w, r, err)
		return
	}
	t.ID = uuid.New().String()
	if err := h.store.CreateTask(r.Context(), &t); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusCreated, t, "task created")
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var t model.Task
	if err := h.decode(r, &t); err != nil {
		h.fail(w, r, err)
		return
	}
	t.ID = pathID(r)
	if err := h.store.UpdateTask(r.Context(), &t); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusOK, t, "task updated")
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTask(r.Context(), pathID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeData(w, http.StatusOK, nil, "task deleted")
}
