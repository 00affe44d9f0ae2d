package postgres

import (
	"context"
	"fmt"

	"gauntlet-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogLoader loads challenge definitions from Postgres. Filtering,
// validation, and ordering happen in the caching layer on top.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadChallenges(ctx context.Context) ([]domain.Challenge, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, title, prompt_md, hint_md, order_index, base_points,
		        answer_value, answer_is_pattern, active
		 FROM challenges`)
	if err != nil {
		return nil, fmt.Errorf("load challenges: %w", err)
	}
	defer rows.Close()

	var out []domain.Challenge
	for rows.Next() {
		var ch domain.Challenge
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.PromptMD, &ch.HintMD,
			&ch.OrderIndex, &ch.BasePoints, &ch.Answer.Value, &ch.Answer.IsPattern,
			&ch.Active); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
