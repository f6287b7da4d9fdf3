package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

// WriteError escribe un error JSON con el request id actual.
func WriteError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:            code,
		ErrorDescription: desc,
		RequestID:        rid,
	})
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodifica el body (máx 64KB). Campos desconocidos se ignoran.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Content-Type debe ser application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "invalid_json", "json inválido")
		return false
	}
	return true
}
