package workflow

import (
	"context"
	"errors"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/utils"
	"gorm.io/gorm"
)

// ComputeNextBillingStatus is the single transition function for the billing
// status state machine. Every code path that moves a schedule's billing
// status goes through it.
//
// Rules, in order: a non-Auto source is authoritative and never moved; flex
// classification forces InDispute; an existing dispute is sticky until
// settlement or approved flex clears it; Reconciled requires the schedule
// status Reconciled plus applied matches that are all themselves reconciled;
// otherwise Open.
func ComputeNextBillingStatus(
	current models.BillingStatus,
	source models.BillingStatusSource,
	scheduleStatus models.RevenueScheduleStatus,
	flexClassification models.FlexClassification,
	hasAppliedMatches bool,
	hasUnreconciledAppliedMatches bool,
) models.BillingStatus {
	if source != models.BillingStatusSourceAuto {
		return current
	}
	if flexClassification.IsFlex() {
		return models.BillingStatusInDispute
	}
	if current == models.BillingStatusInDispute {
		return models.BillingStatusInDispute
	}
	if scheduleStatus == models.RevenueScheduleStatusReconciled &&
		hasAppliedMatches && !hasUnreconciledAppliedMatches {
		return models.BillingStatusReconciled
	}
	return models.BillingStatusOpen
}

// applyBillingStatusTransition runs the transition for one schedule inside
// the caller's transaction and persists plus audits any change. Returns the
// resulting status.
func applyBillingStatusTransition(tx *gorm.DB, schedule models.RevenueSchedule) (models.BillingStatus, error) {
	matchCount := int64(0)
	matches, err := models.ListAppliedMatchesForSchedule(tx, schedule.ID, schedule.TenantId)
	if err != nil {
		return schedule.BillingStatus, err
	}
	matchCount = int64(len(matches))
	unreconciled, err := models.CountUnreconciledAppliedMatches(tx, schedule.ID, schedule.TenantId)
	if err != nil {
		return schedule.BillingStatus, err
	}

	next := ComputeNextBillingStatus(
		schedule.BillingStatus,
		schedule.BillingStatusSource,
		schedule.Status,
		schedule.FlexClassification,
		matchCount > 0,
		unreconciled > 0,
	)
	if next == schedule.BillingStatus {
		return next, nil
	}

	err = tx.Model(&models.RevenueSchedule{}).
		Where("id = ? AND tenant_id = ?", schedule.ID, schedule.TenantId).
		Update("billing_status", next).Error
	if err != nil {
		return schedule.BillingStatus, err
	}
	_, err = models.CreateAuditLog(tx, "RevenueSchedule", schedule.ID, models.AuditActionBillingStatusChange,
		map[string]string{"billing_status": string(schedule.BillingStatus)},
		map[string]string{"billing_status": string(next)},
		models.AuditMetadata{})
	return next, err
}

// BillingStatusSweepSummary reports one bulk sweep run.
type BillingStatusSweepSummary struct {
	Processed int `json:"processed"`
	Changed   int `json:"changed"`
	Errors    int `json:"errors"`
}

// SweepBillingStatuses re-runs the transition over every Auto-source schedule
// of the tenant. Per-schedule failures are counted, not fatal, so one bad row
// cannot stall the sweep.
func SweepBillingStatuses(ctx context.Context) (BillingStatusSweepSummary, error) {
	logger := config.GetLogger()
	db := config.GetDB()
	summary := BillingStatusSweepSummary{}

	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return summary, errors.New("tenant id is required")
	}

	var schedules []models.RevenueSchedule
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND billing_status_source = ?", tenantId, models.BillingStatusSourceAuto).
		Find(&schedules).Error
	if err != nil {
		return summary, err
	}

	for _, schedule := range schedules {
		summary.Processed++
		tx := db.WithContext(ctx).Begin()
		previous := schedule.BillingStatus
		next, err := applyBillingStatusTransition(tx, schedule)
		if err != nil {
			tx.Rollback()
			summary.Errors++
			config.LogError(logger, "billingStatus.go", "SweepBillingStatuses", "applying transition", schedule.ID, err)
			continue
		}
		if err := tx.Commit().Error; err != nil {
			summary.Errors++
			config.LogError(logger, "billingStatus.go", "SweepBillingStatuses", "committing transition", schedule.ID, err)
			continue
		}
		if next != previous {
			summary.Changed++
		}
	}
	return summary, nil
}
