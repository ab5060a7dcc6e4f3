package rosterhttp

import (
	"encoding/json"
	"io"
	"net/http"

	rosterrors "github.com/R3E-Network/service_layer/infrastructure/errors"
)

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps a service error to its HTTP status via the error
// taxonomy's Class, falling back to 500 for anything not classified.
func writeError(w http.ResponseWriter, err error) {
	status := rosterrors.HTTPStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
