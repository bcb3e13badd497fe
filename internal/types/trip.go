package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Trip is a generated itinerary and the request that produced it.
type Trip struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"user_id"`
	Destination string     `json:"destination"`
	Duration    int        `json:"duration"`
	Budget      string     `json:"budget"`
	Interests   string     `json:"interests"`
	Title       string     `json:"trip_title"`
	Summary     string     `json:"summary"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DayPlans    []DayPlan  `json:"day_plans"`
}

// DayPlan is one day of a Trip. DayNumber is 1-based.
type DayPlan struct {
	ID         uuid.UUID  `json:"id"`
	TripID     uuid.UUID  `json:"trip_id"`
	DayNumber  int        `json:"day_number"`
	Theme      *string    `json:"theme"`
	CreatedAt  time.Time  `json:"created_at"`
	Activities []Activity `json:"activities"`
}

type Activity struct {
	ID          uuid.UUID `json:"id"`
	DayPlanID   uuid.UUID `json:"day_plan_id"`
	TimeOfDay   string    `json:"time_of_day"`
	Description string    `json:"description"`
	Location    *string   `json:"location"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	BookingURL  *string   `json:"booking_url"`
	Price       *string   `json:"activity_price"`
	Rating      *float64  `json:"activity_rating"`
	ImageURL    *string   `json:"activity_image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// GenerateTripRequest is the inbound body of POST /plan.
type GenerateTripRequest struct {
	Destination string `json:"destination"`
	Duration    int    `json:"duration"`
	Budget      string `json:"budget"`
	Interests   string `json:"interests,omitempty"`
}

// Normalize trims every field and applies the default interests.
func (r *GenerateTripRequest) Normalize(defaultInterests string) {
	r.Destination = strings.TrimSpace(r.Destination)
	r.Budget = strings.TrimSpace(r.Budget)
	r.Interests = strings.TrimSpace(r.Interests)
	if r.Interests == "" {
		r.Interests = defaultInterests
	}
}

// Validate reports the first rule the request breaks, wrapped in ErrInvalidRequest.
func (r GenerateTripRequest) Validate(maxDuration int) error {
	switch {
	case r.Destination == "":
		return NewValidationError("destination is required")
	case r.Duration < 1 || r.Duration > maxDuration:
		return NewValidationError("duration must be between 1 and " + itoa(maxDuration))
	case r.Budget == "":
		return NewValidationError("budget is required")
	}
	return nil
}

// UpdateTripRequest only touches the fields owners may edit.
type UpdateTripRequest struct {
	Title   *string `json:"trip_title,omitempty"`
	Summary *string `json:"summary,omitempty"`
}

func (r UpdateTripRequest) IsEmpty() bool {
	return r.Title == nil && r.Summary == nil
}

// RawTrip is the itinerary object the model is asked to return.
type RawTrip struct {
	Title   string   `json:"trip_title"`
	Summary string   `json:"summary"`
	Days    []RawDay `json:"days"`
}

type RawDay struct {
	Day        int           `json:"day"`
	Theme      string        `json:"theme"`
	Activities []RawActivity `json:"activities"`
}

type RawActivity struct {
	Time        string   `json:"time"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// AssembledTrip is the verified, deduplicated tree ready to be written.
type AssembledTrip struct {
	Title         string
	Summary       string
	RequestedDays int
	Days          []AssembledDay
}

type AssembledDay struct {
	DayNumber  int
	Theme      *string
	Activities []AssembledActivity
}

type AssembledActivity struct {
	TimeOfDay   string   `json:"time_of_day"`
	Description string   `json:"description"`
	Location    *string  `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	BookingURL  *string  `json:"booking_url"`
	Rating      *float64 `json:"activity_rating"`
	ImageURL    *string  `json:"activity_image_url"`
}

// ShortBy returns how many days the model left out, 0 when the plan is complete.
func (a *AssembledTrip) ShortBy() int {
	if missing := a.RequestedDays - len(a.Days); missing > 0 {
		return missing
	}
	return 0
}

// ActivityCount counts activities across all days.
func (a *AssembledTrip) ActivityCount() int {
	n := 0
	for _, d := range a.Days {
		n += len(d.Activities)
	}
	return n
}
