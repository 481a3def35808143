package handlers

import (
	"io"
	"net/http"
)

// Upload is the storage collaborator passthrough: one file in, one public
// URL out. Conversation submissions attach files directly to SendMessage;
// this endpoint serves renderers that upload ahead of time.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}
	folder := r.FormValue("folder")
	if folder == "" {
		folder = "uploads"
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "could not read file"})
		return
	}
	url, err := a.Uploader.Upload(r.Context(), folder, header.Filename, data)
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]string{"url": url})
}
