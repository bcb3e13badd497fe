package generativeAI

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// ExtractJSONObject returns the text between the first '{' and the last '}'.
// Prose and code fences around the object are discarded.
func ExtractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: no JSON object in response", types.ErrMalformedModelOutput)
	}
	return text[start : end+1], nil
}

// ParseRawTrip extracts, decodes and validates an itinerary from model text.
func ParseRawTrip(text string) (*types.RawTrip, error) {
	jsonStr, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	var trip types.RawTrip
	if err := json.Unmarshal([]byte(jsonStr), &trip); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedModelOutput, err)
	}
	if err := validateRawTrip(&trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func validateRawTrip(trip *types.RawTrip) error {
	if len(trip.Days) == 0 {
		return fmt.Errorf("%w: itinerary has no days", types.ErrMalformedModelOutput)
	}
	for i, day := range trip.Days {
		if day.Day < 1 {
			return fmt.Errorf("%w: day %d has invalid index %d", types.ErrMalformedModelOutput, i, day.Day)
		}
		if len(day.Activities) == 0 {
			return fmt.Errorf("%w: day %d has no activities", types.ErrMalformedModelOutput, day.Day)
		}
	}
	return nil
}
