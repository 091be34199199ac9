package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fleetsync/fleetsync/internal/model"
)

// FindSummary returns the ledger row for one deployment key, or nil.
func (s *SQLiteStore) FindSummary(ctx context.Context, appID, infraMappingID string, key model.DeploymentKey) (*model.DeploymentSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, app_id, infra_mapping_id, key_kind, key_value, info_json, provenance_json, created_at
		FROM deployment_summaries
		WHERE app_id = ? AND infra_mapping_id = ? AND key_kind = ? AND key_value = ?`,
		appID, infraMappingID, string(key.Kind), key.Value)

	var summary model.DeploymentSummary
	var keyKind, keyValue, infoJSON, provJSON string
	err := row.Scan(&summary.ID, &summary.AppID, &summary.InfraMappingID,
		&keyKind, &keyValue, &infoJSON, &provJSON, &summary.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find deployment summary: %w", err)
	}

	summary.Key = model.DeploymentKey{Kind: model.DeploymentKeyKind(keyKind), Value: keyValue}
	if err := json.Unmarshal([]byte(infoJSON), &summary.Info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deployment info: %w", err)
	}
	if err := json.Unmarshal([]byte(provJSON), &summary.Provenance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal provenance: %w", err)
	}
	return &summary, nil
}

// InsertSummary records a ledger row, reporting false when a row with the
// same key already exists. The unique constraint, not the caller's
// read-before-write, is what settles cross-process races.
func (s *SQLiteStore) InsertSummary(ctx context.Context, summary *model.DeploymentSummary) (bool, error) {
	infoJSON, err := json.Marshal(summary.Info)
	if err != nil {
		return false, fmt.Errorf("failed to marshal deployment info: %w", err)
	}
	provJSON, err := json.Marshal(summary.Provenance)
	if err != nil {
		return false, fmt.Errorf("failed to marshal provenance: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO deployment_summaries
			(id, app_id, infra_mapping_id, key_kind, key_value, info_json, provenance_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (infra_mapping_id, key_kind, key_value) DO NOTHING`,
		summary.ID, summary.AppID, summary.InfraMappingID,
		string(summary.Key.Kind), summary.Key.Value,
		string(infoJSON), string(provJSON), summary.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert deployment summary: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return affected > 0, nil
}

// DeleteSummariesByApp removes all ledger rows of one application.
func (s *SQLiteStore) DeleteSummariesByApp(ctx context.Context, appID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM deployment_summaries WHERE app_id = ?`, appID); err != nil {
		return fmt.Errorf("failed to delete deployment summaries: %w", err)
	}
	return nil
}
