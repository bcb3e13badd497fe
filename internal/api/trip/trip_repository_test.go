package trip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var (
	tripColumns     = []string{"id", "user_id", "destination", "duration", "budget", "interests", "trip_title", "summary", "created_at", "updated_at"}
	dayPlanColumns  = []string{"id", "trip_id", "day_number", "theme", "created_at"}
	activityColumns = []string{"id", "day_plan_id", "time_of_day", "description", "location", "latitude", "longitude",
		"booking_url", "activity_price", "activity_rating", "activity_image_url", "created_at"}
)

func newMockRepo(t *testing.T) (*PostgresTripRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresTripRepository(mock, testLogger()), mock
}

func twoDayAssembled() *types.AssembledTrip {
	loc := func(s string) *string { return &s }
	return &types.AssembledTrip{
		Title:         "Trip to Paris",
		Summary:       "Two days",
		RequestedDays: 2,
		Days: []types.AssembledDay{
			{DayNumber: 1, Theme: loc("Icons"), Activities: []types.AssembledActivity{
				{TimeOfDay: "Morning", Description: "Tower", Location: loc("Eiffel Tower"), Latitude: ptr(48.8584), Longitude: ptr(2.2945)},
			}},
			{DayNumber: 2, Activities: []types.AssembledActivity{
				{TimeOfDay: "Evening", Description: "Dinner", Location: loc("Le Marais")},
			}},
		},
	}
}

func TestSaveTrip_RollsBackOnSecondDayPlan(t *testing.T) {
	repo, mock := newMockRepo(t)
	owner := uuid.New()
	tripID, day1 := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO trips`).
		WithArgs(&owner, "Paris", 2, "moderate", "art", "Trip to Paris", "Two days").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(tripID))
	mock.ExpectQuery(`INSERT INTO day_plans`).
		WithArgs(tripID, 1, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(day1))
	mock.ExpectExec(`INSERT INTO activities`).
		WithArgs(day1, 0, "Morning", "Tower", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO day_plans`).
		WithArgs(tripID, 2, pgxmock.AnyArg()).
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	req := types.GenerateTripRequest{Destination: "Paris", Duration: 2, Budget: "moderate", Interests: "art"}
	trip, err := repo.SaveTrip(context.Background(), &owner, req, twoDayAssembled())

	require.Error(t, err)
	assert.Nil(t, trip)
	assert.ErrorIs(t, err, types.ErrPersistenceFailed)
	assert.Contains(t, err.Error(), "insert day plan 2")
	assert.NoError(t, mock.ExpectationsWereMet(), "no commit may happen after a failed write")
}

func TestSaveTrip_CommitsAndReloads(t *testing.T) {
	repo, mock := newMockRepo(t)
	tripID, day1, day2 := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()
	theme := "Icons"
	loc1, loc2 := "Eiffel Tower", "Le Marais"
	lat, lng := 48.8584, 2.2945

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO trips`).WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(tripID))
	mock.ExpectQuery(`INSERT INTO day_plans`).WithArgs(tripID, 1, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(day1))
	mock.ExpectExec(`INSERT INTO activities`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO day_plans`).WithArgs(tripID, 2, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(day2))
	mock.ExpectExec(`INSERT INTO activities`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`FROM trips`).WithArgs(tripID).
		WillReturnRows(pgxmock.NewRows(tripColumns).
			AddRow(tripID, (*uuid.UUID)(nil), "Paris", 2, "moderate", "General sightseeing", "Trip to Paris", "Two days", now, now))
	mock.ExpectQuery(`FROM day_plans`).WithArgs(tripID).
		WillReturnRows(pgxmock.NewRows(dayPlanColumns).
			AddRow(day1, tripID, 1, &theme, now).
			AddRow(day2, tripID, 2, (*string)(nil), now))
	mock.ExpectQuery(`FROM activities`).WithArgs(tripID).
		WillReturnRows(pgxmock.NewRows(activityColumns).
			AddRow(uuid.New(), day1, "Morning", "Tower", &loc1, &lat, &lng, (*string)(nil), (*string)(nil), (*float64)(nil), (*string)(nil), now).
			AddRow(uuid.New(), day2, "Evening", "Dinner", &loc2, (*float64)(nil), (*float64)(nil), (*string)(nil), (*string)(nil), (*float64)(nil), (*string)(nil), now))
	mock.ExpectCommit()

	req := types.GenerateTripRequest{Destination: "Paris", Duration: 2, Budget: "moderate", Interests: "General sightseeing"}
	trip, err := repo.SaveTrip(context.Background(), nil, req, twoDayAssembled())
	require.NoError(t, err)

	assert.Equal(t, tripID, trip.ID)
	assert.Nil(t, trip.UserID)
	require.Len(t, trip.DayPlans, 2)
	require.Len(t, trip.DayPlans[0].Activities, 1)
	require.Len(t, trip.DayPlans[1].Activities, 1)
	assert.Equal(t, "Eiffel Tower", *trip.DayPlans[0].Activities[0].Location)
	assert.Equal(t, "Le Marais", *trip.DayPlans[1].Activities[0].Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTrip_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	mock.ExpectQuery(`FROM trips`).WithArgs(id).WillReturnRows(pgxmock.NewRows(tripColumns))

	_, err := repo.GetTrip(context.Background(), id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTrip(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	now := time.Now()
	title := "Renamed"

	mock.ExpectExec(`UPDATE trips`).WithArgs(id, &title, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`FROM trips`).WithArgs(id).
		WillReturnRows(pgxmock.NewRows(tripColumns).
			AddRow(id, (*uuid.UUID)(nil), "Paris", 1, "low", "food", "Renamed", "", now, now))
	mock.ExpectQuery(`FROM day_plans`).WithArgs(id).WillReturnRows(pgxmock.NewRows(dayPlanColumns))
	mock.ExpectQuery(`FROM activities`).WithArgs(id).WillReturnRows(pgxmock.NewRows(activityColumns))

	trip, err := repo.UpdateTrip(context.Background(), id, types.UpdateTripRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", trip.Title)
	assert.Empty(t, trip.DayPlans)

	missing := uuid.New()
	mock.ExpectExec(`UPDATE trips`).WithArgs(missing, &title, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	_, err = repo.UpdateTrip(context.Background(), missing, types.UpdateTripRequest{Title: &title})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTrip(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM trips`).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.DeleteTrip(context.Background(), id))

	mock.ExpectExec(`DELETE FROM trips`).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.DeleteTrip(context.Background(), id), types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
