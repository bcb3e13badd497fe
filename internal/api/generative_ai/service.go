package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Generator sends one prompt to one model with one credential and returns the raw text.
// Implementations report HTTP 429 as types.ErrRateLimited.
type Generator interface {
	Generate(ctx context.Context, prompt, model, apiKey string) (string, error)
}

var _ Generator = (*GenAIGenerator)(nil)

// GenAIGenerator talks to the Gemini API. Clients are built lazily, one per API key.
type GenAIGenerator struct {
	mu          sync.Mutex
	clients     map[string]*genai.Client
	httpClient  *http.Client
	temperature float32
}

func NewGenAIGenerator(temperature float32, httpClient *http.Client) *GenAIGenerator {
	return &GenAIGenerator{
		clients:     make(map[string]*genai.Client),
		httpClient:  httpClient,
		temperature: temperature,
	}
}

func (g *GenAIGenerator) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	g.clients[apiKey] = c
	return c, nil
}

func (g *GenAIGenerator) Generate(ctx context.Context, prompt, model, apiKey string) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "Generate", trace.WithAttributes(
		attribute.Int("prompt.length", len(prompt)),
		attribute.String("model", model),
	))
	defer span.End()

	if apiKey == "" {
		return "", types.ErrMissingCredentials
	}
	client, err := g.client(ctx, apiKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create client")
		return "", err
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   ItinerarySchema(),
	}
	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		span.RecordError(err)
		if isRateLimited(err) {
			span.SetStatus(codes.Error, "Rate limited")
			return "", fmt.Errorf("%w: %v", types.ErrRateLimited, err)
		}
		span.SetStatus(codes.Error, "Failed to generate content")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := result.Text()
	span.SetAttributes(attribute.Int("response.length", len(text)))
	span.SetStatus(codes.Ok, "Content generated")
	return text, nil
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}

// ItinerarySchema is the structured-output contract sent with every request.
func ItinerarySchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	activity := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"time":        str("Morning, Afternoon, Evening or Anytime"),
			"description": str("What the traveler does"),
			"location":    str("Specific real place name"),
			"latitude":    {Type: genai.TypeNumber, Nullable: genai.Ptr(true)},
			"longitude":   {Type: genai.TypeNumber, Nullable: genai.Ptr(true)},
		},
		Required: []string{"time", "description", "location"},
	}
	day := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"day":        {Type: genai.TypeInteger},
			"theme":      str("Theme of the day"),
			"activities": {Type: genai.TypeArray, Items: activity},
		},
		Required: []string{"day", "activities"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"trip_title": str("Title of the trip"),
			"summary":    str("Short summary of the itinerary"),
			"days":       {Type: genai.TypeArray, Items: day},
		},
		Required: []string{"trip_title", "summary", "days"},
	}
}
