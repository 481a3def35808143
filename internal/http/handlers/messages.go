package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studio/internal/conversation"
)

const maxUploadBytes = 20 << 20

type sendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessage submits one user turn. Multipart requests may attach files
// under "files"; they are uploaded before anything is committed. When the
// client accepts text/event-stream, assistant deltas stream as SSE "delta"
// events and the final conversation state arrives in a "done" event;
// otherwise the handler blocks and returns the final state as JSON.
func (a *App) SendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	text, files, err := a.parseSubmission(r)
	if err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		state, err := a.Manager.SendMessage(r.Context(), sessionID, text, files, nil)
		if err != nil {
			a.error(w, err)
			return
		}
		a.json(w, http.StatusOK, state)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		a.json(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	state, err := a.Manager.SendMessage(r.Context(), sessionID, text, files, func(buffer string) {
		writeEvent(w, "delta", map[string]string{"content": buffer})
		flusher.Flush()
	})
	if err != nil {
		writeEvent(w, "error", map[string]string{"error": err.Error()})
		flusher.Flush()
		return
	}
	writeEvent(w, "done", state)
	flusher.Flush()
}

func (a *App) parseSubmission(r *http.Request) (string, []conversation.UploadFile, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", nil, fmt.Errorf("invalid request body")
		}
		return req.Text, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, fmt.Errorf("invalid multipart body")
	}
	text := r.FormValue("text")
	var files []conversation.UploadFile
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				return "", nil, fmt.Errorf("read upload %s", header.Filename)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return "", nil, fmt.Errorf("read upload %s", header.Filename)
			}
			files = append(files, conversation.UploadFile{Name: header.Filename, Data: data})
		}
	}
	return text, files, nil
}

func writeEvent(w io.Writer, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
