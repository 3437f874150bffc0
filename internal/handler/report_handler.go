package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"association-admin-api/internal/datefmt"
	"association-admin-api/internal/period"
)

// Report aggregates counts for the period around ?date (default today).
// Results are cached until the next write.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	anchor := h.now().In(h.opts.Location)
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := datefmt.Parse(s)
		if err != nil {
			h.fail(w, r, errBadRequest("date: %v", err))
			return
		}
		y, m, day := d.Date()
		anchor = time.Date(y, m, day, 0, 0, 0, 0, h.opts.Location)
	}
	p, err := period.Parse(r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, r, errBadRequest("%v", err))
		return
	}

	var from, to *time.Time
	key := string(p)
	if f, t, ok := p.Range(anchor); ok {
		from, to = &f, &t
		key += ":" + f.Format(datefmt.ISO)
	}

	ctx := r.Context()
	cached, hit, err := h.opts.Reports.Get(ctx, key)
	if err != nil {
		h.log.Warn("report cache read failed", zap.Error(err))
	}
	if h.opts.Metrics != nil {
		h.opts.Metrics.CacheLookup(hit)
	}
	if hit {
		writeData(w, http.StatusOK, cached, "")
		return
	}

	rep, err := h.store.Report(ctx, from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.opts.Reports.Set(ctx, key, rep); err != nil {
		h.log.Warn("report cache write failed", zap.Error(err))
	}
	writeData(w, http.StatusOK, rep, "")
}
