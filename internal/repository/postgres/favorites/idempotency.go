package favorites

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"atelier/internal/domain"
	favRepo "atelier/internal/domain/repositories/favorites"
	"atelier/internal/repository/postgres"
)

// PostgresIdempotencyRepository implements the IdempotencyRepository
// interface. Rows are written inside the same transaction as the mutation
// they record, so a rolled-back mutation never leaves a replayable key.
type PostgresIdempotencyRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewIdempotencyRepository creates a new idempotency repository.
func NewIdempotencyRepository(config *postgres.RepositoryConfig) favRepo.IdempotencyRepository {
	return &PostgresIdempotencyRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Get returns the recorded response for the key, or domain.ErrNotFound.
func (r *PostgresIdempotencyRepository) Get(ctx context.Context, ownerID, key string) ([]byte, error) {
	db := postgres.GetExecutor(ctx, r.pool)

	query := fmt.Sprintf(`
		SELECT response
		FROM %s
		WHERE owner_id = $1 AND key = $2
	`, r.tables.Idempotency)

	var response []byte
	err := db.QueryRow(ctx, query, ownerID, key).Scan(&response)
	if err != nil {
		if postgres.IsNoRowsError(err) {
			return nil, fmt.Errorf("idempotency key %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}

	return response, nil
}

// Put records the response for the key.
func (r *PostgresIdempotencyRepository) Put(ctx context.Context, ownerID, key string, response []byte) error {
	db := postgres.GetExecutor(ctx, r.pool)

	query := fmt.Sprintf(`
		INSERT INTO %s (owner_id, key, response)
		VALUES ($1, $2, $3)
	`, r.tables.Idempotency)

	if _, err := db.Exec(ctx, query, ownerID, key, response); err != nil {
		if postgres.IsDuplicateError(err) {
			return fmt.Errorf("idempotency key %s: %w", key, domain.ErrConflict)
		}
		return fmt.Errorf("put idempotency record: %w", err)
	}

	return nil
}
