package llmInteraction

import (
	"context"
	"fmt"
	"log/slog"

	database "github.com/FACorreiaa/go-itinerary-planner/app/db"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ LLmInteractionRepository = (*PostgresLlmInteractionRepo)(nil)

type LLmInteractionRepository interface {
	SaveInteraction(ctx context.Context, interaction types.LlmInteraction) error
}

type PostgresLlmInteractionRepo struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresLlmInteractionRepo(pgpool database.Pool, logger *slog.Logger) *PostgresLlmInteractionRepo {
	return &PostgresLlmInteractionRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresLlmInteractionRepo) SaveInteraction(ctx context.Context, interaction types.LlmInteraction) error {
	query := `
        INSERT INTO llm_interactions (
            user_id, destination, prompt, response_text, model_used,
            key_index, attempt, status, latency_ms
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.pgpool.Exec(ctx, query,
		interaction.UserID, interaction.Destination, interaction.Prompt, interaction.ResponseText,
		interaction.ModelUsed, interaction.KeyIndex, interaction.Attempt, string(interaction.Status),
		interaction.LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("failed to save llm interaction: %w", err)
	}
	return nil
}
