package repos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorlab/internal/factor"
)

// DefinitionRepository persists composite definitions. Only configuration is
// stored; derived state is rebuilt by the engine on load.
type DefinitionRepository struct {
	pool *pgxpool.Pool
}

// NewDefinitionRepository creates a new definition repository.
func NewDefinitionRepository(pool *pgxpool.Pool) *DefinitionRepository {
	return &DefinitionRepository{pool: pool}
}

// Save upserts a definition keyed by name.
func (r *DefinitionRepository) Save(ctx context.Context, def factor.Definition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("invalid definition %q: %w", def.Name, err)
	}

	doc, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	q := `
		INSERT INTO lab.definitions (name, schema_version, doc)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			doc = EXCLUDED.doc,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, q, def.Name, def.SchemaVersion, doc); err != nil {
		return fmt.Errorf("failed to upsert definition: %w", err)
	}

	return nil
}

// Get loads one definition by name.
func (r *DefinitionRepository) Get(ctx context.Context, name string) (factor.Definition, error) {
	q := `SELECT doc FROM lab.definitions WHERE name = $1`

	var doc []byte
	err := r.pool.QueryRow(ctx, q, name).Scan(&doc)
	if err == pgx.ErrNoRows {
		return factor.Definition{}, fmt.Errorf("definition %q not found", name)
	}
	if err != nil {
		return factor.Definition{}, fmt.Errorf("failed to get definition: %w", err)
	}

	var def factor.Definition
	if err := json.Unmarshal(doc, &def); err != nil {
		return factor.Definition{}, fmt.Errorf("failed to unmarshal definition %q: %w", name, err)
	}

	return def, nil
}

// List returns all stored definitions ordered by name.
func (r *DefinitionRepository) List(ctx context.Context) ([]factor.Definition, error) {
	q := `SELECT doc FROM lab.definitions ORDER BY name`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query definitions: %w", err)
	}
	defer rows.Close()

	var defs []factor.Definition
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var def factor.Definition
		if err := json.Unmarshal(doc, &def); err != nil {
			return nil, fmt.Errorf("failed to unmarshal definition: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return defs, nil
}

// Delete removes a definition by name.
func (r *DefinitionRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lab.definitions WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("definition %q not found", name)
	}
	return nil
}
