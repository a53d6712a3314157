// Package respond is the JSON response layer shared by all API features.
// Handlers never write to the ResponseWriter directly; going through one
// helper keeps the error envelope identical across endpoints.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies. Payloads here are small JSON
// documents; anything larger is a client error.
const maxBodyBytes = 1 << 20

// ErrorBody is the envelope every non-2xx response carries.
type ErrorBody struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

// JSON writes v with the given status. Encoding failures are logged and
// swallowed; the status line has already been sent.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes the standard error envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// Violations writes a 400 carrying the full rule-violation list alongside
// a summary message.
func Violations(w http.ResponseWriter, message string, violations []string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Error: message, Violations: violations})
}

// Internal logs err and writes a generic 500 so internals never leak to
// clients.
func Internal(w http.ResponseWriter, log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))
	Error(w, http.StatusInternalServerError, "internal server error")
}

// Decode reads the request body into dst, enforcing the size cap and
// rejecting trailing garbage. On failure it writes the 400 itself and
// returns the error so the handler can bail with a bare return.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			err = errors.New("request body is empty")
		case errors.As(err, new(*http.MaxBytesError)):
			err = errors.New("request body too large")
		default:
			err = fmt.Errorf("malformed JSON body: %w", err)
		}
		Error(w, http.StatusBadRequest, err.Error())
		return err
	}
	if dec.More() {
		err := errors.New("request body must contain a single JSON object")
		Error(w, http.StatusBadRequest, err.Error())
		return err
	}
	return nil
}
