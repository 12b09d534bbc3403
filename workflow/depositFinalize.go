package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/utils"
	"gorm.io/gorm"
)

// FinalizeDepositResult reports the freeze.
type FinalizeDepositResult struct {
	Deposit           models.Deposit `json:"deposit"`
	LinesFrozen       int            `json:"lines_frozen"`
	DisputedSchedules []int          `json:"disputed_schedules,omitempty"`
}

// FinalizeDeposit freezes the deposit, its line items and their applied
// matches. Disputed schedules linked to the deposit gate the operation per
// the tenant's finalize policy: block everyone, allow managers and admins,
// or allow anyone.
func FinalizeDeposit(ctx context.Context, depositId int) (*FinalizeDepositResult, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	settings, err := models.ResolveTenantSettings(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	isAdmin, _ := utils.GetIsAdminFromContext(ctx)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	result, err := finalizeDepositInTx(tx, tenantId, depositId, userId, isAdmin, settings)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func finalizeDepositInTx(tx *gorm.DB, tenantId string, depositId int, userId int, isAdmin bool,
	settings models.TenantSettings) (*FinalizeDepositResult, error) {

	deposit, err := models.GetDepositWithLines(tx, depositId, tenantId)
	if err != nil {
		return nil, err
	}
	if deposit.IsFinalized() {
		return nil, models.ErrorDepositFinalized
	}

	disputed, err := disputedSchedulesForDeposit(tx, tenantId, depositId)
	if err != nil {
		return nil, err
	}
	if len(disputed) > 0 {
		switch settings.FinalizeDisputedPolicy {
		case models.FinalizePolicyBlockAll:
			return nil, utils.ConflictError("deposit has %d schedules in dispute and cannot be finalized", len(disputed))
		case models.FinalizePolicyAllowManagerAdmin:
			if !isAdmin {
				return nil, utils.ConflictError("only managers or admins may finalize a deposit with disputed schedules")
			}
		case models.FinalizePolicyAllowAll:
		}
	}

	if err := models.MarkDepositFinalized(tx, depositId, tenantId, userId); err != nil {
		return nil, err
	}
	updated, err := models.RecomputeDepositAggregates(tx, depositId, tenantId)
	if err != nil {
		return nil, err
	}

	_, err = models.CreateAuditLog(tx, "Deposit", depositId, models.AuditActionFinalizeDeposit,
		map[string]string{"finalized": "false"},
		map[string]string{"finalized": "true"},
		models.AuditMetadata{Detail: map[string]interface{}{
			"line_count":         len(deposit.LineItems),
			"disputed_schedules": disputed,
		}})
	if err != nil {
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(tx.Statement.Context)
	err = models.QueueReconEvent(tx, tenantId, models.ReconReferenceTypeDeposit, depositId,
		models.AuditActionFinalizeDeposit, updated, correlationId)
	if err != nil {
		return nil, err
	}

	return &FinalizeDepositResult{
		Deposit:           updated,
		LinesFrozen:       len(deposit.LineItems),
		DisputedSchedules: disputed,
	}, nil
}

// disputedSchedulesForDeposit lists InDispute schedules reached through the
// deposit's applied matches.
func disputedSchedulesForDeposit(tx *gorm.DB, tenantId string, depositId int) ([]int, error) {
	var scheduleIds []int
	err := tx.Model(&models.RevenueSchedule{}).
		Select("revenue_schedules.id").
		Joins("JOIN deposit_line_matches ON deposit_line_matches.revenue_schedule_id = revenue_schedules.id").
		Joins("JOIN deposit_line_items ON deposit_line_items.id = deposit_line_matches.deposit_line_item_id").
		Where("deposit_line_items.deposit_id = ? AND revenue_schedules.tenant_id = ?", depositId, tenantId).
		Where("deposit_line_matches.status = ?", models.DepositLineMatchStatusApplied).
		Where("revenue_schedules.billing_status = ?", models.BillingStatusInDispute).
		Group("revenue_schedules.id").
		Find(&scheduleIds).Error
	if err != nil {
		return nil, fmt.Errorf("listing disputed schedules: %w", err)
	}
	return scheduleIds, nil
}
