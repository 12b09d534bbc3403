package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ResolveFlexInput selects one resolution for a schedule whose flex decision
// prompted the operator.
type ResolveFlexInput struct {
	RevenueScheduleId int                         `json:"revenue_schedule_id" binding:"required"`
	Action            models.FlexResolutionAction `json:"action" binding:"required"`
	ApplyToFuture     bool                        `json:"apply_to_future"`
	Reason            string                      `json:"reason"`
}

// FutureUpdateSummary reports the apply-to-future propagation.
type FutureUpdateSummary struct {
	SchedulesUpdated int   `json:"schedules_updated"`
	ScheduleIds      []int `json:"schedule_ids"`
}

type ResolveFlexResult struct {
	FlexExecution models.AuditLog          `json:"flex_execution"`
	BaseSchedule  models.RevenueSchedule   `json:"base_schedule"`
	Recompute     models.ScheduleRecompute `json:"recompute"`
	FutureUpdate  *FutureUpdateSummary     `json:"future_update,omitempty"`
}

// ResolveFlex executes the operator's chosen resolution in one transaction.
// Adjust books the overage into the schedule's adjustment fields and tags a
// pending chargeback; FlexProduct splits the overage into a new product and
// schedule; Manual records the decision without mutating amounts.
func ResolveFlex(ctx context.Context, input ResolveFlexInput) (*ResolveFlexResult, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	action, err := models.ParseFlexResolutionAction(string(input.Action))
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
	result, err := resolveFlexInTx(tx, tenantId, input, settings)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func resolveFlexInTx(tx *gorm.DB, tenantId string, input ResolveFlexInput, settings models.TenantSettings) (*ResolveFlexResult, error) {
	schedule, err := models.GetRevenueScheduleForUpdate(tx, input.RevenueScheduleId, tenantId)
	if err != nil {
		return nil, err
	}
	_, recompute, err := models.RecomputeRevenueSchedule(tx, schedule.ID, tenantId, settings.VarianceTolerance)
	if err != nil {
		return nil, err
	}
	overage := utils.DecimalMax(recompute.UsageBalance.Neg(), decimal.Zero)
	commissionOverage := utils.DecimalMax(recompute.CommissionDifference.Neg(), decimal.Zero)

	product, err := models.GetProduct(tx, schedule.ProductId, tenantId)
	if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, err
	}

	var action models.AuditAction
	switch input.Action {
	case models.FlexResolutionAdjust:
		action = models.AuditActionResolveFlexAdjust
		if err := resolveByAdjust(tx, &schedule, overage, commissionOverage); err != nil {
			return nil, err
		}
	case models.FlexResolutionProduct:
		action = models.AuditActionResolveFlexProduct
		if product.BonusLike() {
			return nil, errors.New("FlexProduct is not available for bonus-like schedules")
		}
		if err := resolveByFlexProduct(tx, schedule, product, overage, commissionOverage); err != nil {
			return nil, err
		}
	case models.FlexResolutionManual:
		action = models.AuditActionResolveFlexManual
	default:
		return nil, fmt.Errorf("unknown flex resolution action: %s", input.Action)
	}

	base, recompute, err := models.RecomputeRevenueSchedule(tx, schedule.ID, tenantId, settings.VarianceTolerance)
	if err != nil {
		return nil, err
	}
	if _, err := applyBillingStatusTransition(tx, base); err != nil {
		return nil, err
	}

	entry, err := models.CreateAuditLog(tx, "RevenueSchedule", schedule.ID, action,
		map[string]string{"status": string(schedule.Status)},
		map[string]string{"status": string(base.Status)},
		models.AuditMetadata{Detail: map[string]interface{}{
			"resolution":         input.Action,
			"usage_overage":      overage.String(),
			"commission_overage": commissionOverage.String(),
			"reason":             input.Reason,
		}})
	if err != nil {
		return nil, err
	}

	result := &ResolveFlexResult{FlexExecution: entry, BaseSchedule: base, Recompute: recompute}

	if input.ApplyToFuture && input.Action == models.FlexResolutionAdjust {
		summary, err := applyFlexToFuture(tx, base, overage, commissionOverage, settings)
		if err != nil {
			return nil, err
		}
		result.FutureUpdate = summary
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(tx.Statement.Context)
	err = models.QueueReconEvent(tx, tenantId, models.ReconReferenceTypeRevenueSchedule, schedule.ID,
		action, result.Recompute, correlationId)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveByAdjust books the overage as schedule adjustments and marks the
// schedule a pending chargeback awaiting approval.
func resolveByAdjust(tx *gorm.DB, schedule *models.RevenueSchedule, overage, commissionOverage decimal.Decimal) error {
	classification := models.FlexClassificationChargeback
	if schedule.FlexClassification == models.FlexClassificationChargeback {
		classification = models.FlexClassificationChargebackReversal
	}
	updates := applyAdjustDeltas(schedule, overage, commissionOverage)
	updates["flex_classification"] = classification
	schedule.FlexClassification = classification
	return tx.Model(&models.RevenueSchedule{}).
		Where("id = ? AND tenant_id = ?", schedule.ID, schedule.TenantId).
		Updates(updates).Error
}

// resolveByFlexProduct creates a product, opportunity product and schedule
// representing the overage as its own line. Base expected amounts stay
// untouched.
func resolveByFlexProduct(tx *gorm.DB, base models.RevenueSchedule, product models.Product,
	overage, commissionOverage decimal.Decimal) error {

	flexProduct := models.Product{
		TenantId:        base.TenantId,
		VendorId:        base.VendorId,
		Name:            fmt.Sprintf("%s (Flex)", product.Name),
		IsFlexGenerated: utils.NewTrue(),
		IsActive:        utils.NewTrue(),
	}
	if err := tx.Create(&flexProduct).Error; err != nil {
		return err
	}

	opportunityProduct := models.OpportunityProduct{
		TenantId:      base.TenantId,
		OpportunityId: base.OpportunityId,
		ProductId:     flexProduct.ID,
		Quantity:      decimal.NewFromInt(1),
		ExpectedUsage: overage,
	}
	if err := tx.Create(&opportunityProduct).Error; err != nil {
		return err
	}

	flexSchedule := models.RevenueSchedule{
		TenantId:             base.TenantId,
		OpportunityId:        base.OpportunityId,
		OpportunityProductId: opportunityProduct.ID,
		ProductId:            flexProduct.ID,
		VendorId:             base.VendorId,
		ScheduleDate:         base.ScheduleDate,
		ExpectedUsage:        overage,
		ExpectedCommission:   commissionOverage,
		Status:               models.RevenueScheduleStatusUnreconciled,
		BillingStatus:        models.BillingStatusInDispute,
		BillingStatusSource:  models.BillingStatusSourceAuto,
		FlexClassification:   models.FlexClassificationProduct,
	}
	return tx.Create(&flexSchedule).Error
}

// applyFlexToFuture propagates the approved delta to later schedules in the
// same scope that have no allocation yet. Each is recomputed and audited on
// its own.
func applyFlexToFuture(tx *gorm.DB, base models.RevenueSchedule,
	overage, commissionOverage decimal.Decimal, settings models.TenantSettings) (*FutureUpdateSummary, error) {

	future, err := models.FindFutureSchedulesInScope(tx, base)
	if err != nil {
		return nil, err
	}
	summary := &FutureUpdateSummary{}
	for _, schedule := range future {
		previous := map[string]string{"usage_adjustment": schedule.UsageAdjustment.String()}
		updated := schedule.UsageAdjustment.Add(overage)
		err := tx.Model(&models.RevenueSchedule{}).
			Where("id = ? AND tenant_id = ?", schedule.ID, schedule.TenantId).
			Update("usage_adjustment", updated).Error
		if err != nil {
			return nil, err
		}
		if _, _, err := models.RecomputeRevenueSchedule(tx, schedule.ID, schedule.TenantId, settings.VarianceTolerance); err != nil {
			return nil, err
		}
		_, err = models.CreateAuditLog(tx, "RevenueSchedule", schedule.ID, models.AuditActionApplyFlexToFuture,
			previous, map[string]string{"usage_adjustment": updated.String()},
			models.AuditMetadata{Detail: map[string]interface{}{"base_schedule_id": base.ID}})
		if err != nil {
			return nil, err
		}
		summary.SchedulesUpdated++
		summary.ScheduleIds = append(summary.ScheduleIds, schedule.ID)
	}
	return summary, nil
}

// ApproveFlexResult is returned by the flex approval endpoint.
type ApproveFlexResult struct {
	RevenueSchedule models.RevenueSchedule `json:"revenue_schedule"`
	LineItem        models.DepositLineItem `json:"line_item"`
	Deposit         models.Deposit         `json:"deposit"`
	ApprovedMatchId int                    `json:"approved_match_id"`
}

// ApproveFlex promotes the schedule's pending Suggested chargeback match to
// Applied and re-runs the recomputation and billing-status pipeline. Rejected
// when the schedule is not a pending chargeback classification or no
// Suggested match exists.
func ApproveFlex(ctx context.Context, scheduleId int) (*ApproveFlexResult, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	settings, err := models.ResolveTenantSettings(ctx, tenantId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	result, err := approveFlexInTx(tx, tenantId, scheduleId, settings)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func approveFlexInTx(tx *gorm.DB, tenantId string, scheduleId int, settings models.TenantSettings) (*ApproveFlexResult, error) {
	schedule, err := models.GetRevenueScheduleForUpdate(tx, scheduleId, tenantId)
	if err != nil {
		return nil, err
	}
	if !schedule.FlexClassification.IsPendingChargeback() {
		return nil, errors.New("schedule is not a pending chargeback and cannot be approved")
	}
	match, err := models.GetSuggestedMatchForSchedule(tx, scheduleId, tenantId)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, errors.New("no suggested match found for schedule")
	}
	if err != nil {
		return nil, err
	}

	err = tx.Model(&models.DepositLineMatch{}).
		Where("id = ? AND tenant_id = ?", match.ID, tenantId).
		Update("status", models.DepositLineMatchStatusApplied).Error
	if err != nil {
		return nil, err
	}

	line, err := models.RecomputeLineAllocation(tx, match.DepositLineItemId, tenantId)
	if err != nil {
		return nil, err
	}
	updated, _, err := models.RecomputeRevenueSchedule(tx, scheduleId, tenantId, settings.VarianceTolerance)
	if err != nil {
		return nil, err
	}
	if _, err := applyBillingStatusTransition(tx, updated); err != nil {
		return nil, err
	}
	deposit, err := models.RecomputeDepositAggregates(tx, line.DepositId, tenantId)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = models.CreateAuditLog(tx, "RevenueSchedule", scheduleId, models.AuditActionApproveFlex,
		map[string]string{"match_status": string(models.DepositLineMatchStatusSuggested)},
		map[string]string{"match_status": string(models.DepositLineMatchStatusApplied)},
		models.AuditMetadata{Detail: map[string]interface{}{
			"match_id":    match.ID,
			"approved_at": now.Format(time.RFC3339),
		}})
	if err != nil {
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(tx.Statement.Context)
	err = models.QueueReconEvent(tx, tenantId, models.ReconReferenceTypeMatch, match.ID,
		models.AuditActionApproveFlex, match, correlationId)
	if err != nil {
		return nil, err
	}

	return &ApproveFlexResult{
		RevenueSchedule: updated,
		LineItem:        line,
		Deposit:         deposit,
		ApprovedMatchId: match.ID,
	}, nil
}
