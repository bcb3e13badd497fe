package trip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/auth"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

type MockTripService struct {
	mock.Mock
}

func (m *MockTripService) GeneratePlan(ctx context.Context, owner *uuid.UUID, req types.GenerateTripRequest) (*types.Trip, error) {
	args := m.Called(ctx, owner, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripService) ListTrips(ctx context.Context, p types.Principal) ([]types.Trip, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Trip), args.Error(1)
}

func (m *MockTripService) GetTrip(ctx context.Context, p types.Principal, id uuid.UUID) (*types.Trip, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripService) UpdateTrip(ctx context.Context, p types.Principal, id uuid.UUID, req types.UpdateTripRequest) (*types.Trip, error) {
	args := m.Called(ctx, p, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripService) DeleteTrip(ctx context.Context, p types.Principal, id uuid.UUID) error {
	args := m.Called(ctx, p, id)
	return args.Error(0)
}

func withPrincipal(r *http.Request, p types.Principal) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), p))
}

func withTripID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("tripID", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestTripHandler_PlanTrip(t *testing.T) {
	const body = `{"destination":"Paris","duration":3,"budget":"moderate"}`
	want := types.GenerateTripRequest{Destination: "Paris", Duration: 3, Budget: "moderate"}

	tests := []struct {
		name       string
		body       string
		principal  *types.Principal
		setup      func(*MockTripService, *types.Principal)
		wantStatus int
		wantError  string
	}{
		{
			name: "anonymous success",
			body: body,
			setup: func(m *MockTripService, _ *types.Principal) {
				m.On("GeneratePlan", mock.Anything, (*uuid.UUID)(nil), want).
					Return(&types.Trip{ID: uuid.New(), Destination: "Paris"}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:      "authenticated caller owns the trip",
			body:      body,
			principal: &types.Principal{UserID: uuid.New()},
			setup: func(m *MockTripService, p *types.Principal) {
				m.On("GeneratePlan", mock.Anything, mock.MatchedBy(func(o *uuid.UUID) bool {
					return o != nil && *o == p.UserID
				}), want).Return(&types.Trip{ID: uuid.New(), UserID: &p.UserID}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "bad json",
			body:       `{"destination":`,
			setup:      func(*MockTripService, *types.Principal) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"destination":"Paris","duration":3,"budget":"x","nights":2}`,
			setup:      func(*MockTripService, *types.Principal) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "validation error",
			body: `{"destination":"Paris","duration":30,"budget":"moderate"}`,
			setup: func(m *MockTripService, _ *types.Principal) {
				m.On("GeneratePlan", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, types.NewValidationError("duration must be between 1 and 14"))
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "duration must be between 1 and 14",
		},
		{
			name: "generation failure",
			body: body,
			setup: func(m *MockTripService, _ *types.Principal) {
				m.On("GeneratePlan", mock.Anything, mock.Anything, mock.Anything).Return(nil, types.ErrGenerationFailed)
			},
			wantStatus: http.StatusBadGateway,
			wantError:  msgGenerationFailed,
		},
		{
			name: "storage failure is distinct",
			body: body,
			setup: func(m *MockTripService, _ *types.Principal) {
				m.On("GeneratePlan", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: commit: %w", types.ErrPersistenceFailed, errors.New("pq: deadlock")))
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  msgPersistenceFailed,
		},
		{
			name: "missing credentials",
			body: body,
			setup: func(m *MockTripService, _ *types.Principal) {
				m.On("GeneratePlan", mock.Anything, mock.Anything, mock.Anything).Return(nil, types.ErrMissingCredentials)
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  msgNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTripService)
			tt.setup(svc, tt.principal)
			h := NewTripHandler(svc, testLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", strings.NewReader(tt.body))
			if tt.principal != nil {
				req = withPrincipal(req, *tt.principal)
			}
			rr := httptest.NewRecorder()
			h.PlanTrip(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantError != "" {
				msg := decodeError(t, rr)
				assert.Equal(t, tt.wantError, msg)
				assert.NotContains(t, msg, "deadlock")
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestTripHandler_CRUD(t *testing.T) {
	p := types.Principal{UserID: uuid.New()}
	id := uuid.New()

	t.Run("list requires authentication", func(t *testing.T) {
		h := NewTripHandler(new(MockTripService), testLogger())
		rr := httptest.NewRecorder()
		h.ListTrips(rr, httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("list", func(t *testing.T) {
		svc := new(MockTripService)
		svc.On("ListTrips", mock.Anything, p).Return([]types.Trip{{ID: id}}, nil)
		h := NewTripHandler(svc, testLogger())
		rr := httptest.NewRecorder()
		h.ListTrips(rr, withPrincipal(httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil), p))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), id.String())
	})

	t.Run("get invalid id", func(t *testing.T) {
		h := NewTripHandler(new(MockTripService), testLogger())
		req := withTripID(withPrincipal(httptest.NewRequest(http.MethodGet, "/api/v1/trips/x", nil), p), "not-a-uuid")
		rr := httptest.NewRecorder()
		h.GetTrip(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("get forbidden", func(t *testing.T) {
		svc := new(MockTripService)
		svc.On("GetTrip", mock.Anything, p, id).Return(nil, types.ErrForbidden)
		h := NewTripHandler(svc, testLogger())
		req := withTripID(withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), p), id.String())
		rr := httptest.NewRecorder()
		h.GetTrip(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("get not found", func(t *testing.T) {
		svc := new(MockTripService)
		svc.On("GetTrip", mock.Anything, p, id).Return(nil, types.ErrNotFound)
		h := NewTripHandler(svc, testLogger())
		req := withTripID(withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), p), id.String())
		rr := httptest.NewRecorder()
		h.GetTrip(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("update", func(t *testing.T) {
		svc := new(MockTripService)
		svc.On("UpdateTrip", mock.Anything, p, id, mock.MatchedBy(func(r types.UpdateTripRequest) bool {
			return r.Title != nil && *r.Title == "Weekend" && r.Summary == nil
		})).Return(&types.Trip{ID: id, Title: "Weekend"}, nil)
		h := NewTripHandler(svc, testLogger())
		req := withTripID(withPrincipal(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"trip_title":"Weekend"}`)), p), id.String())
		rr := httptest.NewRecorder()
		h.UpdateTrip(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"trip_title":"Weekend"`)
	})

	t.Run("delete", func(t *testing.T) {
		svc := new(MockTripService)
		svc.On("DeleteTrip", mock.Anything, p, id).Return(nil)
		h := NewTripHandler(svc, testLogger())
		req := withTripID(withPrincipal(httptest.NewRequest(http.MethodDelete, "/", nil), p), id.String())
		rr := httptest.NewRecorder()
		h.DeleteTrip(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		svc.AssertExpectations(t)
	})
}
