package types

import (
	"github.com/google/uuid"
)

type InteractionStatus string

const (
	InteractionSucceeded   InteractionStatus = "succeeded"
	InteractionRateLimited InteractionStatus = "rate_limited"
	InteractionFailed      InteractionStatus = "failed"
	InteractionMalformed   InteractionStatus = "malformed"
)

// LlmInteraction is one model attempt, kept for auditing and quota analysis.
type LlmInteraction struct {
	UserID       *uuid.UUID        `json:"user_id"`
	Destination  string            `json:"destination"`
	Prompt       string            `json:"prompt"`
	ResponseText string            `json:"response_text"`
	ModelUsed    string            `json:"model_used"`
	KeyIndex     int               `json:"key_index"`
	Attempt      int               `json:"attempt"`
	Status       InteractionStatus `json:"status"`
	LatencyMs    int               `json:"latency_ms"`
}
