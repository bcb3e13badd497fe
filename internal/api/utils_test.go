package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type planBody struct {
	Destination string `json:"destination"`
	Duration    int    `json:"duration"`
}

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"destination":"Paris","duration":3}`},
		{name: "empty", body: ``, wantErr: "body must not be empty"},
		{name: "unknown field", body: `{"destination":"Paris","x":1}`, wantErr: `body contains unknown key "x"`},
		{name: "wrong type", body: `{"duration":"three"}`, wantErr: `body contains incorrect JSON type for field "duration"`},
		{name: "truncated", body: `{"destination":`, wantErr: "body contains badly-formed JSON"},
		{name: "trailing value", body: `{"duration":1}{"duration":2}`, wantErr: "body must only contain a single JSON value"},
		{name: "too large", body: `{"destination":"` + strings.Repeat("a", MaxRequestBodyBytes) + `"}`, wantErr: "body must not be larger than"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			var dst planBody
			err := DecodeJSONBody(w, r, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Paris", dst.Destination)
				assert.Equal(t, 3, dst.Duration)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestErrorResponse(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	ErrorResponse(w, r, http.StatusBadGateway, "upstream failed")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "upstream failed", body.Error)
}

func TestWriteJSONResponseNoContent(t *testing.T) {
	r := httptest.NewRequest(http.MethodDelete, "/", nil)
	w := httptest.NewRecorder()

	WriteJSONResponse(w, r, http.StatusNoContent, map[string]string{"ignored": "yes"})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
