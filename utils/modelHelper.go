package utils

import (
	"context"
	"errors"

	"github.com/commissionedge/crm_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/* DB fetching */

// fetch model from db
// (may return RecordNotFound)
func FetchSingleModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch model from db
// (tenant_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, tenantId string, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("tenant_id = ?", tenantId)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// LockForUpdate adds SELECT ... FOR UPDATE to the query so the fetched row
// stays locked until the transaction ends.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// fetch model using the caller's db handle, usually an open transaction
// (tenant_id is used in query's WHERE, may return RecordNotFound)
func FetchModelTx[T any](tx *gorm.DB, id int, tenantId string) (T, error) {
	var result T
	err := tx.Where("tenant_id = ?", tenantId).First(&result, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return result, ErrorRecordNotFound
	}
	return result, err
}

// fetch all models matching a condition
// (tenant_id is used in query's WHERE)
func FetchModelsWhere[T any](ctx context.Context, tenantId string, condition string, values ...interface{}) ([]*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("tenant_id = ?", tenantId).Where(condition, values...)
	var results []*T
	err := dbCtx.Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
