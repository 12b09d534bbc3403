package workflow

import (
	"context"
	"errors"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettleInput resolves a disputed schedule. AcceptActual and WriteOff apply
// the same numeric normalization; the action only changes the audit tag used
// by downstream reporting.
type SettleInput struct {
	RevenueScheduleId int                     `json:"revenue_schedule_id" binding:"required"`
	Action            models.SettlementAction `json:"action" binding:"required"`
	Reason            string                  `json:"reason"`
}

type SettleResult struct {
	RevenueScheduleId   int                          `json:"revenue_schedule_id"`
	BillingStatus       models.BillingStatus         `json:"billing_status"`
	BillingStatusSource models.BillingStatusSource   `json:"billing_status_source"`
	ScheduleStatus      models.RevenueScheduleStatus `json:"schedule_status"`
	IsFinalized         bool                         `json:"is_finalized"`
	Recompute           models.ScheduleRecompute     `json:"recompute"`
}

// SettleSchedule collapses expected amounts to actual and clears the
// dispute. Only InDispute schedules with at least one applied match settle;
// the final billing status is Reconciled when the normalized schedule
// reconciles and all matches are finalized, otherwise Open.
func SettleSchedule(ctx context.Context, input SettleInput) (*SettleResult, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	action, err := models.ParseSettlementAction(string(input.Action))
	if err != nil {
		return nil, err
	}
	input.Action = action
	settings, err := models.ResolveTenantSettings(ctx, tenantId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	result, err := settleInTx(tx, tenantId, input, settings)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func settleInTx(tx *gorm.DB, tenantId string, input SettleInput, settings models.TenantSettings) (*SettleResult, error) {
	schedule, err := models.GetRevenueScheduleForUpdate(tx, input.RevenueScheduleId, tenantId)
	if err != nil {
		return nil, err
	}
	if schedule.BillingStatus != models.BillingStatusInDispute {
		return nil, errors.New("Only In Dispute schedules can be settled")
	}

	_, recompute, err := models.RecomputeRevenueSchedule(tx, schedule.ID, tenantId, settings.VarianceTolerance)
	if err != nil {
		return nil, err
	}
	if recompute.MatchCount == 0 {
		return nil, errors.New("cannot settle a schedule with no applied matches")
	}

	previous := map[string]string{
		"expected_usage":      schedule.ExpectedUsage.String(),
		"usage_adjustment":    schedule.UsageAdjustment.String(),
		"expected_commission": schedule.ExpectedCommission.String(),
		"billing_status":      string(schedule.BillingStatus),
	}

	// Both settlement actions collapse expected to actual.
	err = tx.Model(&models.RevenueSchedule{}).
		Where("id = ? AND tenant_id = ?", schedule.ID, tenantId).
		Updates(map[string]interface{}{
			"expected_usage":        recompute.ActualUsageNet,
			"usage_adjustment":      decimal.Zero,
			"expected_commission":   recompute.ActualCommissionNet,
			"billing_status_source": models.BillingStatusSourceSettlement,
			"flex_classification":   models.FlexClassificationNormal,
		}).Error
	if err != nil {
		return nil, err
	}

	updated, recompute, err := models.RecomputeRevenueSchedule(tx, schedule.ID, tenantId, settings.VarianceTolerance)
	if err != nil {
		return nil, err
	}

	unreconciled, err := models.CountUnreconciledAppliedMatches(tx, schedule.ID, tenantId)
	if err != nil {
		return nil, err
	}
	billingStatus := models.BillingStatusOpen
	if updated.Status == models.RevenueScheduleStatusReconciled && unreconciled == 0 {
		billingStatus = models.BillingStatusReconciled
	}
	err = tx.Model(&models.RevenueSchedule{}).
		Where("id = ? AND tenant_id = ?", schedule.ID, tenantId).
		Update("billing_status", billingStatus).Error
	if err != nil {
		return nil, err
	}

	auditAction := models.AuditActionSettleAcceptActual
	if input.Action == models.SettlementActionWriteOff {
		auditAction = models.AuditActionSettleWriteOff
	}
	_, err = models.CreateAuditLog(tx, "RevenueSchedule", schedule.ID, auditAction,
		previous, map[string]string{
			"expected_usage":      recompute.ActualUsageNet.String(),
			"usage_adjustment":    "0",
			"expected_commission": recompute.ActualCommissionNet.String(),
			"billing_status":      string(billingStatus),
		}, models.AuditMetadata{Detail: map[string]interface{}{
			"action": input.Action,
			"reason": input.Reason,
		}})
	if err != nil {
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(tx.Statement.Context)
	err = models.QueueReconEvent(tx, tenantId, models.ReconReferenceTypeRevenueSchedule, schedule.ID,
		auditAction, recompute, correlationId)
	if err != nil {
		return nil, err
	}

	return &SettleResult{
		RevenueScheduleId:   schedule.ID,
		BillingStatus:       billingStatus,
		BillingStatusSource: models.BillingStatusSourceSettlement,
		ScheduleStatus:      updated.Status,
		IsFinalized:         unreconciled == 0,
		Recompute:           recompute,
	}, nil
}
