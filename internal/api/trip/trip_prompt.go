package trip

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var planPrompt = template.Must(template.New("plan").Parse(`Act as an expert travel planner with access to TripAdvisor ratings. Create a detailed {{.Duration}}-day trip itinerary for {{.Destination}} with a {{.Budget}} budget.
The traveler is interested in: {{.Interests}}.

CRITICAL INSTRUCTIONS FOR LOGIC & QUALITY:
1. Trajectory Logic: arrange activities in a logical geographical order (Morning -> Afternoon -> Evening) to minimize travel time. Treat each day as a connected route.
2. Cluster by Neighborhood: group activities by neighborhood and avoid zig-zagging across the city.
3. Quality Recommendations: prioritize activities that are top-rated on TripAdvisor.
4. Real Locations: every location must be a real place listed on TripAdvisor.
5. Unique Experiences: never repeat the same location or activity anywhere in the trip.

Respond with a single JSON object with this structure:
{
  "trip_title": "Trip to {{.Destination}}",
  "summary": "A curated itinerary...",
  "days": [
    {
      "day": 1,
      "theme": "Historical Exploration",
      "activities": [
        {
          "time": "Morning",
          "description": "Visit the iconic landmark...",
          "location": "Specific Location Name",
          "latitude": 0.0,
          "longitude": 0.0
        }
      ]
    }
  ]
}

IMPORTANT:
- YOU MUST GENERATE EXACTLY {{.Duration}} DAYS, numbered 1 to {{.Duration}}.
- Every day must contain at least one activity.
- latitude and longitude are optional; omit them when unsure.
- Do not include markdown formatting. Return raw JSON only.
`))

type promptSlots struct {
	Destination string
	Duration    int
	Budget      string
	Interests   string
}

// BuildPlanPrompt renders the itinerary prompt for a normalized request.
func BuildPlanPrompt(req types.GenerateTripRequest) (string, error) {
	var b strings.Builder
	if err := planPrompt.Execute(&b, promptSlots{
		Destination: req.Destination,
		Duration:    req.Duration,
		Budget:      req.Budget,
		Interests:   req.Interests,
	}); err != nil {
		return "", fmt.Errorf("failed to render plan prompt: %w", err)
	}
	return b.String(), nil
}
