package repository

import (
	"context"
	"database/sql"
	"errors"

	"parkops/internal/db"
	apperr "parkops/internal/errors"
)

const feeStructureColumns = `id, org_id, store_id, name, is_default, free_minutes, base_fee, base_minutes,
		extra_fee, daily_max, valet_fee, monthly_fee, updated_at`

type FeeStructureRepository struct {
	DB *sql.DB
}

func NewFeeStructureRepository(conn *sql.DB) *FeeStructureRepository {
	return &FeeStructureRepository{DB: conn}
}

func (r *FeeStructureRepository) GetByID(ctx context.Context, id string) (*db.FeeStructure, error) {
	query := `SELECT ` + feeStructureColumns + ` FROM fee_structures WHERE id = $1`
	f, err := scanFeeStructure(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("get fee structure", "fee structure %s not found", id)
	}
	if err != nil {
		return nil, apperr.Storage("get fee structure", err)
	}
	return f, nil
}

func (r *FeeStructureRepository) GetDefaultForStore(ctx context.Context, storeID string) (*db.FeeStructure, error) {
	query := `SELECT ` + feeStructureColumns + ` FROM fee_structures WHERE store_id = $1 AND is_default`
	f, err := scanFeeStructure(r.DB.QueryRowContext(ctx, query, storeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("get default fee structure", "store %s has no default fee structure", storeID)
	}
	if err != nil {
		return nil, apperr.Storage("get default fee structure", err)
	}
	return f, nil
}

func (r *FeeStructureRepository) Upsert(ctx context.Context, f *db.FeeStructure) error {
	query := `
		INSERT INTO fee_structures
		(id, org_id, store_id, name, is_default, free_minutes, base_fee, base_minutes, extra_fee, daily_max, valet_fee, monthly_fee, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			is_default = EXCLUDED.is_default,
			free_minutes = EXCLUDED.free_minutes,
			base_fee = EXCLUDED.base_fee,
			base_minutes = EXCLUDED.base_minutes,
			extra_fee = EXCLUDED.extra_fee,
			daily_max = EXCLUDED.daily_max,
			valet_fee = EXCLUDED.valet_fee,
			monthly_fee = EXCLUDED.monthly_fee,
			updated_at = NOW()
		WHERE fee_structures.store_id = EXCLUDED.store_id AND fee_structures.org_id = EXCLUDED.org_id
		RETURNING updated_at`
	err := r.DB.QueryRowContext(ctx, query,
		f.ID, f.OrgID, f.StoreID, f.Name, f.IsDefault, f.FreeMinutes, f.BaseFee, f.BaseMinutes,
		f.ExtraFee, f.DailyMax, f.ValetFee, f.MonthlyFee,
	).Scan(&f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Conflict("upsert fee structure", "fee structure %s belongs to another store or org", f.ID)
	}
	if isUniqueViolation(err) {
		return apperr.Conflict("upsert fee structure", "store %s already has a default fee structure", f.StoreID)
	}
	if err != nil {
		return apperr.Storage("upsert fee structure", err)
	}
	return nil
}

func scanFeeStructure(row rowScanner) (*db.FeeStructure, error) {
	var f db.FeeStructure
	err := row.Scan(
		&f.ID, &f.OrgID, &f.StoreID, &f.Name, &f.IsDefault, &f.FreeMinutes, &f.BaseFee, &f.BaseMinutes,
		&f.ExtraFee, &f.DailyMax, &f.ValetFee, &f.MonthlyFee, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
