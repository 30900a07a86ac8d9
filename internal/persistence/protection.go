package persistence

import (
	"context"

	"MicroPaper/internal/market"
)

// ListActiveCollateral returns the collateral assets still backing a note.
func (s *Store) ListActiveCollateral(ctx context.Context, noteID int64) ([]*market.CollateralAsset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, note_id, asset_type, description, valuation_cents, status, created_at
		FROM collateral_assets
		WHERE note_id = $1 AND status = 'active'
		ORDER BY id ASC`, noteID)
	if err != nil {
		return nil, storageErr("list collateral", err)
	}
	defer rows.Close()

	var assets []*market.CollateralAsset
	for rows.Next() {
		var a market.CollateralAsset
		if err := rows.Scan(&a.ID, &a.NoteID, &a.AssetType, &a.Description,
			&a.ValuationCents, &a.Status, &a.CreatedAt); err != nil {
			return nil, storageErr("scan collateral", err)
		}
		assets = append(assets, &a)
	}
	return assets, rows.Err()
}

// ListActiveGuarantees returns the guarantees still in force for a note.
func (s *Store) ListActiveGuarantees(ctx context.Context, noteID int64) ([]*market.Guarantee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, note_id, guarantor_type, guarantor_name, coverage_percent,
		       enforcement_status, created_at
		FROM guarantees
		WHERE note_id = $1 AND enforcement_status = 'active'
		ORDER BY id ASC`, noteID)
	if err != nil {
		return nil, storageErr("list guarantees", err)
	}
	defer rows.Close()

	var guarantees []*market.Guarantee
	for rows.Next() {
		var g market.Guarantee
		if err := rows.Scan(&g.ID, &g.NoteID, &g.GuarantorType, &g.GuarantorName,
			&g.CoveragePercent, &g.EnforcementStatus, &g.CreatedAt); err != nil {
			return nil, storageErr("scan guarantee", err)
		}
		guarantees = append(guarantees, &g)
	}
	return guarantees, rows.Err()
}

// SumInsuranceContributions totals the pool contributions earmarked for a
// note, in minor units.
func (s *Store) SumInsuranceContributions(ctx context.Context, noteID int64) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM insurance_pool_contributions
		WHERE note_id = $1`, noteID).Scan(&total)
	if err != nil {
		return 0, storageErr("sum insurance contributions", err)
	}
	return total, nil
}
