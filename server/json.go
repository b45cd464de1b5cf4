package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	handleAuth "github.com/MrEthical07/handleAuth"
)

// envelope wraps every successful response body.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

func invalidRequest(msg string) *handleAuth.Error {
	return &handleAuth.Error{
		Code:       handleAuth.CodeRequestInvalid,
		StatusCode: http.StatusBadRequest,
		Message:    msg,
	}
}

// decodeJSON reads exactly one JSON object into dst. Unknown fields and
// trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return invalidRequest(fmt.Sprintf("body exceeds %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			return invalidRequest("body must not be empty")
		default:
			return invalidRequest("body must be a JSON object: " + err.Error())
		}
	}
	if dec.More() {
		return invalidRequest("body must contain a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, envelope{StatusCode: code, Message: message, Data: data})
}
