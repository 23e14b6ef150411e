package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/entigraph/entigraph/internal/entities"
	"github.com/entigraph/entigraph/internal/repositories"
	"github.com/lib/pq"
)

// PostgresEntityRepository implements EntityRepository using PostgreSQL
type PostgresEntityRepository struct {
	db *sql.DB
}

// NewPostgresEntityRepository creates a new PostgreSQL entity repository
func NewPostgresEntityRepository(db *sql.DB) repositories.EntityRepository {
	return &PostgresEntityRepository{db: db}
}

// Create stores a new entity
func (r *PostgresEntityRepository) Create(ctx context.Context, entity *entities.Entity) error {
	if err := entity.Validate(); err != nil {
		return fmt.Errorf("invalid entity: %w", err)
	}

	data, err := json.Marshal(entity.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal entity data: %w", err)
	}

	query := `
		INSERT INTO entities (id, type, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.db.ExecContext(ctx, query,
		entity.ID, entity.Type, data, entity.CreatedAt, entity.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return &entities.ConflictError{Kind: "entity", Key: entity.ID}
		}
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

// Get retrieves an entity by ID
func (r *PostgresEntityRepository) Get(ctx context.Context, id string) (*entities.Entity, error) {
	query := `
		SELECT id, type, data, created_at, updated_at
		FROM entities
		WHERE id = $1
	`
	entity, err := scanEntity(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &entities.NotFoundError{Kind: "entity", ID: id}
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return entity, nil
}

// Update replaces the entity's data document. Type and created_at are
// never part of the update statement.
func (r *PostgresEntityRepository) Update(ctx context.Context, entity *entities.Entity) error {
	data, err := json.Marshal(entity.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal entity data: %w", err)
	}

	query := `
		UPDATE entities
		SET data = $2, updated_at = $3
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, entity.ID, data, entity.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return &entities.NotFoundError{Kind: "entity", ID: entity.ID}
	}
	return nil
}

// Delete removes the entity and every edge touching it in one transaction
func (r *PostgresEntityRepository) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM relations WHERE from_id = $1 OR to_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete edges: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete entity: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return rows > 0, nil
}

// List retrieves entities matching the filter, created_at ascending
func (r *PostgresEntityRepository) List(ctx context.Context, filter *repositories.EntityFilter) ([]*entities.Entity, error) {
	query := `
		SELECT id, type, data, created_at, updated_at
		FROM entities
	`
	args := []interface{}{}
	argIdx := 1

	if filter != nil && filter.Type != "" {
		query += fmt.Sprintf(" WHERE type = $%d", argIdx)
		args = append(args, filter.Type)
		argIdx++
	}
	query += " ORDER BY created_at ASC"
	if filter != nil && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter != nil && filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var out []*entities.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row rowScanner) (*entities.Entity, error) {
	var entity entities.Entity
	var data []byte
	if err := row.Scan(&entity.ID, &entity.Type, &data, &entity.CreatedAt, &entity.UpdatedAt); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entity.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entity data: %w", err)
		}
	}
	if entity.Data == nil {
		entity.Data = map[string]any{}
	}
	return &entity, nil
}
