package handler

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"association-admin-api/internal/files"
)

// multipart overhead allowed on top of the file itself
const formOverhead = 1 << 20

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	fs := h.opts.Files
	r.Body = http.MaxBytesReader(w, r.Body, fs.MaxSize()+formOverhead)

	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	src, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing form field \"file\"")
		return
	}
	defer src.Close()

	f, err := fs.Save(src, hdr.Filename, hdr.Header.Get("Content-Type"))
	if errors.Is(err, files.ErrTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("file uploaded", zap.String("name", f.Name), zap.Int64("size", f.Size))
	writeData(w, http.StatusCreated, f, "file uploaded")
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	f, info, err := h.opts.Files.Open(name)
	switch {
	case errors.Is(err, files.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	case errors.Is(err, files.ErrNotFound):
		writeError(w, http.StatusNotFound, "file not found")
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}
