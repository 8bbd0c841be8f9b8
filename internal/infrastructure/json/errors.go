package json

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

var (
	ErrBadRequest      = errors.New("bad request")
	ErrPayloadTooLarge = errors.New("payload too large")
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func Write(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, status int, err error, msg string) {
	if msg == "" && err != nil {
		msg = err.Error()
	}

	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: msg,
	}
	_ = Write(w, status, resp)
}

func WriteBadRequestError(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusBadRequest, ErrBadRequest, msg)
}

func WritePayloadTooLargeError(w http.ResponseWriter, limit int64) {
	WriteError(w, http.StatusRequestEntityTooLarge, ErrPayloadTooLarge,
		"Request body exceeds the limit of "+strconv.FormatInt(limit, 10)+" bytes")
}

func WriteRateLimitError(w http.ResponseWriter, retryAfter int) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	WriteError(w, http.StatusTooManyRequests, nil, "Too many requests. Please try again later.")
}
