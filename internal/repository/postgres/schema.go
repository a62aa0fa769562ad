package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the favorites tables and indexes if they do not exist.
// Run once at startup before serving requests.
//
// Structural invariants live in the schema itself so read-committed
// concurrent writers cannot break them:
//   - the sibling-name unique index enforces per-kind name uniqueness under
//     a shared parent
//   - the owner-root unique index enforces the single parentless node per
//     owner
//   - the kind/target check keeps a folder from carrying a target
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
				owner_id    text NOT NULL,
				parent_id   uuid REFERENCES %s (id),
				name        text NOT NULL,
				kind        text NOT NULL CHECK (kind IN ('folder', 'file')),
				target      text,
				created_at  timestamptz NOT NULL DEFAULT now(),
				updated_at  timestamptz NOT NULL DEFAULT now(),
				CHECK ((kind = 'file') = (target IS NOT NULL))
			)
		`, tables.Nodes, tables.Nodes),
		fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s_sibling_name_idx
			ON %s (owner_id, parent_id, kind, name)
			WHERE parent_id IS NOT NULL
		`, tables.Nodes, tables.Nodes),
		fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s_owner_root_idx
			ON %s (owner_id)
			WHERE parent_id IS NULL
		`, tables.Nodes, tables.Nodes),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_parent_idx
			ON %s (owner_id, parent_id)
		`, tables.Nodes, tables.Nodes),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				owner_id    text NOT NULL,
				key         text NOT NULL,
				response    jsonb NOT NULL,
				created_at  timestamptz NOT NULL DEFAULT now(),
				PRIMARY KEY (owner_id, key)
			)
		`, tables.Idempotency),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}
