package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/trip"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

type stubTripService struct {
	trip.TripService
}

func (stubTripService) ListTrips(context.Context, types.Principal) ([]types.Trip, error) {
	return []types.Trip{}, nil
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
}

func passThrough(next http.Handler) http.Handler { return next }

func TestSetupRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := SetupRouter(&Config{
		TripHandler:                    trip.NewTripHandler(stubTripService{}, logger),
		AuthenticateMiddleware:         denyAll,
		OptionalAuthenticateMiddleware: passThrough,
	})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/ping", http.StatusOK},
		{http.MethodGet, "/api/v1/trips", http.StatusUnauthorized},
		{http.MethodDelete, "/api/v1/trips/" + uuid.NewString(), http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/plan", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
