package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fleetsync/fleetsync/internal/model"
)

const instanceColumns = `id, app_id, env_id, service_id, infra_mapping_id, infra_mapping_type,
	compute_provider_id, compute_provider_name, region,
	key_kind, key_value, resource_group, info_json, provenance_json, created_at, updated_at`

// ListByInfraMapping returns every instance of one mapping.
func (s *SQLiteStore) ListByInfraMapping(ctx context.Context, appID, infraMappingID string) ([]model.Instance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE app_id = ? AND infra_mapping_id = ?`,
		appID, infraMappingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var instances []model.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, *inst)
	}
	return instances, rows.Err()
}

// Upsert writes the instance, keyed on (infra_mapping_id, key_value). On
// conflict the existing row id and created_at survive and only the
// mutable fields are rewritten, which is what keeps one row per identity
// key across concurrent writers.
func (s *SQLiteStore) Upsert(ctx context.Context, instance *model.Instance) error {
	infoJSON, err := model.MarshalInfo(instance.Info)
	if err != nil {
		return fmt.Errorf("failed to marshal instance info: %w", err)
	}
	provJSON, err := json.Marshal(instance.Provenance)
	if err != nil {
		return fmt.Errorf("failed to marshal provenance: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO instances (`+instanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (infra_mapping_id, key_value) DO UPDATE SET
			env_id = excluded.env_id,
			service_id = excluded.service_id,
			infra_mapping_type = excluded.infra_mapping_type,
			compute_provider_id = excluded.compute_provider_id,
			compute_provider_name = excluded.compute_provider_name,
			region = excluded.region,
			resource_group = excluded.resource_group,
			info_json = excluded.info_json,
			provenance_json = excluded.provenance_json,
			updated_at = excluded.updated_at`,
		instance.ID, instance.AppID, instance.EnvID, instance.ServiceID,
		instance.InfraMappingID, string(instance.InfraMappingType),
		instance.ComputeProviderID, instance.ComputeProviderName, instance.Region,
		string(instance.Key.Kind), instance.Key.Value, instance.ResourceGroup(),
		string(infoJSON), string(provJSON), instance.CreatedAt, instance.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert instance %s: %w", instance.Key.Value, err)
	}
	return nil
}

// DeleteByIDs removes instances by row id.
func (s *SQLiteStore) DeleteByIDs(ctx context.Context, appID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	clause, args := inClause(ids)
	args = append([]any{appID}, args...)
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM instances WHERE app_id = ? AND id IN `+clause, args...); err != nil {
		return fmt.Errorf("failed to delete instances: %w", err)
	}
	return nil
}

// DeleteByGroup removes every instance of one resource group.
func (s *SQLiteStore) DeleteByGroup(ctx context.Context, appID, infraMappingID, resourceGroup string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM instances WHERE app_id = ? AND infra_mapping_id = ? AND resource_group = ?`,
		appID, infraMappingID, resourceGroup); err != nil {
		return fmt.Errorf("failed to delete instances of group %s: %w", resourceGroup, err)
	}
	return nil
}

func scanInstance(rows *sql.Rows) (*model.Instance, error) {
	var inst model.Instance
	var mappingType, keyKind, keyValue, resourceGroup, infoJSON, provJSON string
	if err := rows.Scan(
		&inst.ID, &inst.AppID, &inst.EnvID, &inst.ServiceID,
		&inst.InfraMappingID, &mappingType,
		&inst.ComputeProviderID, &inst.ComputeProviderName, &inst.Region,
		&keyKind, &keyValue, &resourceGroup, &infoJSON, &provJSON,
		&inst.CreatedAt, &inst.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan instance row: %w", err)
	}

	inst.InfraMappingType = model.MappingType(mappingType)
	inst.Key = model.InstanceKey{Kind: model.KeyKind(keyKind), Value: keyValue}

	info, err := model.UnmarshalInfo([]byte(infoJSON))
	if err != nil {
		return nil, err
	}
	inst.Info = info

	if err := json.Unmarshal([]byte(provJSON), &inst.Provenance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal provenance: %w", err)
	}
	return &inst, nil
}
