package store

import (
	"context"
	"fmt"

	"github.com/fleetsync/fleetsync/internal/model"
)

// ListGenerationsByFamily returns the retained generations of one family,
// newest last-visited first.
func (s *SQLiteStore) ListGenerationsByFamily(ctx context.Context, appID, infraMappingID, family string) ([]model.ContainerGeneration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, app_id, infra_mapping_id, family, name, namespace, last_visited
		FROM container_generations
		WHERE app_id = ? AND infra_mapping_id = ? AND family = ?
		ORDER BY last_visited DESC, name DESC`,
		appID, infraMappingID, family)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var gens []model.ContainerGeneration
	for rows.Next() {
		var gen model.ContainerGeneration
		if err := rows.Scan(&gen.ID, &gen.AppID, &gen.InfraMappingID,
			&gen.Family, &gen.Name, &gen.Namespace, &gen.LastVisited); err != nil {
			return nil, fmt.Errorf("failed to scan generation row: %w", err)
		}
		gens = append(gens, gen)
	}
	return gens, rows.Err()
}

// UpsertGeneration inserts a generation or advances last_visited on an
// existing one.
func (s *SQLiteStore) UpsertGeneration(ctx context.Context, gen *model.ContainerGeneration) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO container_generations (id, app_id, infra_mapping_id, family, name, namespace, last_visited)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (infra_mapping_id, name) DO UPDATE SET
			last_visited = excluded.last_visited`,
		gen.ID, gen.AppID, gen.InfraMappingID, gen.Family, gen.Name, gen.Namespace, gen.LastVisited); err != nil {
		return fmt.Errorf("failed to upsert generation %s: %w", gen.Name, err)
	}
	return nil
}

// DeleteGenerations removes generation records by id.
func (s *SQLiteStore) DeleteGenerations(ctx context.Context, appID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	clause, args := inClause(ids)
	args = append([]any{appID}, args...)
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM container_generations WHERE app_id = ? AND id IN `+clause, args...); err != nil {
		return fmt.Errorf("failed to delete generations: %w", err)
	}
	return nil
}
