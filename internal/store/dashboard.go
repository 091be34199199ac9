package store

import (
	"context"
	"fmt"
)

// CountByService returns instance counts grouped by owning service.
func (s *SQLiteStore) CountByService(ctx context.Context, appID string) ([]GroupCount, error) {
	return s.groupCounts(ctx,
		`SELECT service_id, COUNT(*) FROM instances WHERE app_id = ? GROUP BY service_id ORDER BY service_id`,
		appID)
}

// CountByEnvironment returns instance counts grouped by environment.
func (s *SQLiteStore) CountByEnvironment(ctx context.Context, appID string) ([]GroupCount, error) {
	return s.groupCounts(ctx,
		`SELECT env_id, COUNT(*) FROM instances WHERE app_id = ? GROUP BY env_id ORDER BY env_id`,
		appID)
}

// CountByArtifact returns instance counts grouped by the artifact name
// recorded in deployment provenance. Instances with no artifact
// provenance land in the empty bucket.
func (s *SQLiteStore) CountByArtifact(ctx context.Context, appID string) ([]GroupCount, error) {
	return s.groupCounts(ctx, `
		SELECT COALESCE(json_extract(provenance_json, '$.artifactName'), ''), COUNT(*)
		FROM instances WHERE app_id = ?
		GROUP BY 1 ORDER BY 1`,
		appID)
}

func (s *SQLiteStore) groupCounts(ctx context.Context, query, appID string) ([]GroupCount, error) {
	rows, err := s.db.QueryContext(ctx, query, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []GroupCount
	for rows.Next() {
		var gc GroupCount
		if err := rows.Scan(&gc.Key, &gc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan group count: %w", err)
		}
		counts = append(counts, gc)
	}
	return counts, rows.Err()
}
