package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/bonusclub/auth-api/internal/apperr"
)

// errorBody is the uniform failure envelope.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// successBody acknowledges operations that return no entity.
type successBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode json response")
	}
}

// writeError writes the failure envelope with the given status code.
func writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	writeJSON(w, r, code, errorBody{Message: message})
}

// fail maps a service error onto the failure envelope. Internal faults
// are logged with their cause and masked for the client.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	message := apperr.MessageOf(err)
	if kind == apperr.KindInternal {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("internal error")
		message = "Internal server error."
	}
	writeError(w, r, apperr.HTTPStatus(kind), message)
}

// clientIP extracts the caller address for token stamping and
// throttling. RealIP has already folded forwarding headers into
// RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseLimit parses a positive integer query param with a default and
// a cap.
func parseLimit(q string, def, max int) int {
	if q == "" {
		return def
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// parsePage parses the page query param; pages start at 1.
func parsePage(q string) int {
	n, err := strconv.Atoi(q)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
