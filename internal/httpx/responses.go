package httpx

import (
	"maps"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Meta is free-form response metadata. Every envelope gets the request ID.
type Meta map[string]any

// Envelope is the body of every API response. Exactly one of Data and Error
// is set.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    Meta       `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func withRequestID(r *http.Request, extra Meta) Meta {
	var id string
	if r != nil {
		id = RequestIDFrom(r)
	}
	if id == "" && len(extra) == 0 {
		return nil
	}
	meta := make(Meta, len(extra)+1)
	maps.Copy(meta, extra)
	if id != "" {
		meta["request_id"] = id
	}
	return meta
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// JSONSuccess writes a 200 envelope.
func JSONSuccess(w http.ResponseWriter, r *http.Request, data any, meta Meta) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Meta: withRequestID(r, meta)})
}

func JSONCreated(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, Meta: withRequestID(r, nil)})
}

func JSONError(w http.ResponseWriter, r *http.Request, statusCode int, code string, message string, details []ErrorDetail) {
	writeJSON(w, statusCode, Envelope{
		Error: &ErrorBody{Code: code, Message: message, Details: details},
		Meta:  withRequestID(r, nil),
	})
}
