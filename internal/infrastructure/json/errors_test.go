package json

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		write       func(w http.ResponseWriter)
		status      int
		message     string
		retryHeader string
	}{
		{
			name:    "Bad request",
			write:   func(w http.ResponseWriter) { WriteBadRequestError(w, "Required request body is missing") },
			status:  http.StatusBadRequest,
			message: "Required request body is missing",
		},
		{
			name:    "Payload too large",
			write:   func(w http.ResponseWriter) { WritePayloadTooLargeError(w, 16) },
			status:  http.StatusRequestEntityTooLarge,
			message: "Request body exceeds the limit of 16 bytes",
		},
		{
			name:        "Rate limited",
			write:       func(w http.ResponseWriter) { WriteRateLimitError(w, 3) },
			status:      http.StatusTooManyRequests,
			message:     "Too many requests. Please try again later.",
			retryHeader: "3",
		},
		{
			name:    "Message falls back to error text",
			write:   func(w http.ResponseWriter) { WriteError(w, http.StatusConflict, errors.New("already there"), "") },
			status:  http.StatusConflict,
			message: "already there",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			rec := httptest.NewRecorder()

			tt.write(rec)

			req.Equal(tt.status, rec.Code)
			req.Equal("application/json", rec.Header().Get("Content-Type"))
			req.Equal(tt.retryHeader, rec.Header().Get("Retry-After"))

			resp := decode(t, rec)
			req.Equal(http.StatusText(tt.status), resp.Error)
			req.Equal(tt.message, resp.Message)
		})
	}
}
