package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleetsync/fleetsync/internal/model"
)

const mappingColumns = `id, app_id, env_id, service_id, type,
	compute_provider_id, compute_provider_name, region,
	cluster_name, namespace, release_name, organization, space`

// GetMapping returns one infrastructure mapping, or nil when it does not
// exist.
func (s *SQLiteStore) GetMapping(ctx context.Context, appID, infraMappingID string) (*model.InfraMapping, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mappingColumns+` FROM infra_mappings WHERE app_id = ? AND id = ?`,
		appID, infraMappingID)

	mapping, err := scanMapping(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping %s: %w", infraMappingID, err)
	}
	return mapping, nil
}

// ListMappings returns every known infrastructure mapping.
func (s *SQLiteStore) ListMappings(ctx context.Context) ([]model.InfraMapping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+mappingColumns+` FROM infra_mappings`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.InfraMapping
	for rows.Next() {
		mapping, err := scanMapping(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping row: %w", err)
		}
		mappings = append(mappings, *mapping)
	}
	return mappings, rows.Err()
}

// PutMapping writes a mapping. Mappings are owned by an external
// collaborator; this exists for that writer and for tests.
func (s *SQLiteStore) PutMapping(ctx context.Context, mapping *model.InfraMapping) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO infra_mappings (`+mappingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			env_id = excluded.env_id,
			service_id = excluded.service_id,
			type = excluded.type,
			compute_provider_id = excluded.compute_provider_id,
			compute_provider_name = excluded.compute_provider_name,
			region = excluded.region,
			cluster_name = excluded.cluster_name,
			namespace = excluded.namespace,
			release_name = excluded.release_name,
			organization = excluded.organization,
			space = excluded.space`,
		mapping.ID, mapping.AppID, mapping.EnvID, mapping.ServiceID, string(mapping.Type),
		mapping.ComputeProviderID, mapping.ComputeProviderName, mapping.Region,
		mapping.ClusterName, mapping.Namespace, mapping.ReleaseName,
		mapping.Organization, mapping.Space); err != nil {
		return fmt.Errorf("failed to put mapping %s: %w", mapping.ID, err)
	}
	return nil
}

func scanMapping(scan func(dest ...any) error) (*model.InfraMapping, error) {
	var m model.InfraMapping
	var mappingType string
	if err := scan(&m.ID, &m.AppID, &m.EnvID, &m.ServiceID, &mappingType,
		&m.ComputeProviderID, &m.ComputeProviderName, &m.Region,
		&m.ClusterName, &m.Namespace, &m.ReleaseName, &m.Organization, &m.Space); err != nil {
		return nil, err
	}
	m.Type = model.MappingType(mappingType)
	return &m, nil
}
