package core

import (
	"encoding/json"
	"net/http"

	"github.com/caasmo/notesapi/auth"
)

type jsonResponse struct {
	status int
	body   []byte
}

// JsonBasic contains the basic response fields. All responses must have them
type JsonBasic struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JsonWithData is used for structured JSON responses with data
type JsonWithData struct {
	JsonBasic
	Data any `json:"data,omitempty"`
}

// writeJsonWithData writes a structured JSON response with the provided data
func writeJsonWithData(w http.ResponseWriter, resp JsonWithData) {
	setHeaders(w, HeadersJson)
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp)
}

// For successful precomputed responses
func writeJsonOk(w http.ResponseWriter, resp jsonResponse) {
	setHeaders(w, HeadersJson)
	w.WriteHeader(resp.status)
	w.Write(resp.body)
}

// writeJsonError writes a precomputed JSON error response
func writeJsonError(w http.ResponseWriter, resp jsonResponse) {
	setHeaders(w, HeadersJson)
	w.WriteHeader(resp.status)
	w.Write(resp.body)
}

// errorResponse converts a service error into its response. Anything that is
// not a client facing *auth.Error becomes the generic 500.
func errorResponse(err error) jsonResponse {
	e, ok := auth.AsError(err)
	if !ok || e.Kind == auth.KindInternal {
		return errorInternal
	}
	return precomputeBasicResponse(e.Status, e.Code, e.Message)
}

// writeError writes the response for err and logs unexpected failures. The
// cause never reaches the client.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse(err)
	if resp.status >= http.StatusInternalServerError {
		a.Logger().Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJsonError(w, resp)
}
