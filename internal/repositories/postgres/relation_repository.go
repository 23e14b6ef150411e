package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/entigraph/entigraph/internal/entities"
	"github.com/entigraph/entigraph/internal/repositories"
)

// PostgresRelationRepository implements RelationRepository using PostgreSQL
type PostgresRelationRepository struct {
	db *sql.DB
}

// NewPostgresRelationRepository creates a new PostgreSQL relation repository
func NewPostgresRelationRepository(db *sql.DB) repositories.RelationRepository {
	return &PostgresRelationRepository{db: db}
}

// Create stores a new edge. Inserting an existing (from, relation, to)
// triple is an idempotent no-op: the stored edge wins.
func (r *PostgresRelationRepository) Create(ctx context.Context, relation *entities.Relation) error {
	if err := relation.Validate(); err != nil {
		return fmt.Errorf("invalid relation: %w", err)
	}

	var metadata []byte
	if relation.Metadata != nil {
		var err error
		metadata, err = json.Marshal(relation.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal relation metadata: %w", err)
		}
	}

	query := `
		INSERT INTO relations (from_id, relation, to_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (from_id, relation, to_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		relation.FromID, relation.Relation, relation.ToID,
		nullableBytes(metadata), relation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create relation: %w", err)
	}
	return nil
}

// Delete removes an edge by its triple
func (r *PostgresRelationRepository) Delete(ctx context.Context, fromID, relation, toID string) (bool, error) {
	query := `
		DELETE FROM relations
		WHERE from_id = $1 AND relation = $2 AND to_id = $3
	`
	result, err := r.db.ExecContext(ctx, query, fromID, relation, toID)
	if err != nil {
		return false, fmt.Errorf("failed to delete relation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return rows > 0, nil
}

// Query retrieves edges matching the filter, created_at ascending.
// Unset filter fields act as wildcards.
func (r *PostgresRelationRepository) Query(ctx context.Context, filter *repositories.RelationFilter) ([]*entities.Relation, error) {
	query := `
		SELECT from_id, relation, to_id, metadata, created_at
		FROM relations
	`
	args := []interface{}{}
	conditions := ""
	argIdx := 1

	addCondition := func(column, value string) {
		if value == "" {
			return
		}
		if conditions == "" {
			conditions = " WHERE "
		} else {
			conditions += " AND "
		}
		conditions += fmt.Sprintf("%s = $%d", column, argIdx)
		args = append(args, value)
		argIdx++
	}
	if filter != nil {
		addCondition("from_id", filter.FromID)
		addCondition("relation", filter.Relation)
		addCondition("to_id", filter.ToID)
	}
	query += conditions + " ORDER BY created_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()

	var out []*entities.Relation
	for rows.Next() {
		var rel entities.Relation
		var metadata []byte
		if err := rows.Scan(&rel.FromID, &rel.Relation, &rel.ToID, &metadata, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rel.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal relation metadata: %w", err)
			}
		}
		out = append(out, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate relations: %w", err)
	}
	return out, nil
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return b
}
