package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// ClientOptions tune one attempt of the model client.
type ClientOptions struct {
	RateLimitBackoff  time.Duration
	MaxRateLimitWaits int
	Timeout           time.Duration
}

// Generation is the outcome of one successful attempt.
type Generation struct {
	Trip           *types.RawTrip
	Text           string
	RateLimitWaits int
}

// ModelClient runs one generation attempt: call, wait out 429s, extract and validate.
type ModelClient struct {
	generator Generator
	opts      ClientOptions
	logger    *slog.Logger
}

func NewModelClient(generator Generator, opts ClientOptions, logger *slog.Logger) *ModelClient {
	return &ModelClient{generator: generator, opts: opts, logger: logger}
}

// GenerateItinerary returns the parsed itinerary or an error. On a parse failure the
// raw text is still returned in Generation so callers can record it.
func (c *ModelClient) GenerateItinerary(ctx context.Context, prompt string, cred Credential) (*Generation, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GenerateItinerary", trace.WithAttributes(
		attribute.String("model", cred.Model),
		attribute.Int("key.index", cred.KeyIndex),
		attribute.Int64("sequence", cred.Sequence),
	))
	defer span.End()

	gen := &Generation{}
	for {
		text, err := c.call(ctx, prompt, cred)
		if err == nil {
			gen.Text = text
			break
		}
		if !errors.Is(err, types.ErrRateLimited) || gen.RateLimitWaits >= c.opts.MaxRateLimitWaits {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Model call failed")
			return gen, err
		}
		gen.RateLimitWaits++
		c.logger.WarnContext(ctx, "Rate limit hit, backing off",
			slog.String("model", cred.Model),
			slog.Int("wait", gen.RateLimitWaits),
			slog.Duration("backoff", c.opts.RateLimitBackoff))
		if err := sleep(ctx, c.opts.RateLimitBackoff); err != nil {
			return gen, err
		}
	}

	trip, err := ParseRawTrip(gen.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Malformed model output")
		return gen, err
	}
	gen.Trip = trip
	span.SetAttributes(attribute.Int("days", len(trip.Days)))
	span.SetStatus(codes.Ok, "Itinerary generated")
	return gen, nil
}

func (c *ModelClient) call(ctx context.Context, prompt string, cred Credential) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	text, err := c.generator.Generate(ctx, prompt, cred.Model, cred.APIKey)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", cred.Model, err)
	}
	return text, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
