package generativeAI

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// SequenceCounter hands out a monotonically increasing, 0-indexed request number
// that is shared by every process serving generations.
type SequenceCounter interface {
	Next(ctx context.Context) (int64, error)
}

// Credential is the model/key pair chosen for one attempt.
type Credential struct {
	Model    string
	APIKey   string
	KeyIndex int
	Sequence int64
}

// Rotator spreads requests round-robin over models, moving to the next key
// only after a full model cycle.
type Rotator struct {
	models  []string
	keys    []string
	counter SequenceCounter
}

func NewRotator(models, keys []string, counter SequenceCounter) (*Rotator, error) {
	models = nonEmpty(models)
	keys = nonEmpty(keys)
	if len(models) == 0 || len(keys) == 0 {
		return nil, types.ErrMissingCredentials
	}
	return &Rotator{models: models, keys: keys, counter: counter}, nil
}

// Rotate maps sequence number i to (models[i mod M], keys[(i div M) mod K]).
func (r *Rotator) Rotate(i int64) Credential {
	if i < 0 {
		i = -i
	}
	m := int64(len(r.models))
	k := int64(len(r.keys))
	keyIndex := int((i / m) % k)
	return Credential{
		Model:    r.models[i%m],
		APIKey:   r.keys[keyIndex],
		KeyIndex: keyIndex,
		Sequence: i,
	}
}

func (r *Rotator) Next(ctx context.Context) (Credential, error) {
	i, err := r.counter.Next(ctx)
	if err != nil {
		return Credential{}, err
	}
	return r.Rotate(i), nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

var _ SequenceCounter = (*LocalSequence)(nil)

// LocalSequence is an in-process counter for single instance deployments and tests.
type LocalSequence struct {
	n atomic.Int64
}

func (s *LocalSequence) Next(context.Context) (int64, error) {
	return s.n.Add(1) - 1, nil
}

// fallbackSequence uses primary and switches to fallback for calls where primary errors.
type fallbackSequence struct {
	primary  SequenceCounter
	fallback SequenceCounter
	logger   *slog.Logger
}

func WithFallback(primary, fallback SequenceCounter, logger *slog.Logger) SequenceCounter {
	return &fallbackSequence{primary: primary, fallback: fallback, logger: logger}
}

func (s *fallbackSequence) Next(ctx context.Context) (int64, error) {
	n, err := s.primary.Next(ctx)
	if err == nil {
		return n, nil
	}
	s.logger.WarnContext(ctx, "Shared sequence unavailable, using local counter", slog.Any("error", err))
	return s.fallback.Next(ctx)
}
