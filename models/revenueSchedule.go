package models

import (
	"errors"
	"time"

	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RevenueSchedule is one expected payment instance for an opportunity
// product. Status and the actual* fields are derived from Applied matches and
// must only be written by RecomputeRevenueSchedule. BillingStatus is the
// dispute-tracking state machine and is written by the billing status
// transition path only.
type RevenueSchedule struct {
	ID                         int                   `gorm:"primary_key" json:"id"`
	TenantId                   string                `gorm:"index;not null;size:36" json:"tenant_id" binding:"required"`
	OpportunityId              int                   `gorm:"index;not null" json:"opportunity_id" binding:"required"`
	OpportunityProductId       int                   `gorm:"index;not null" json:"opportunity_product_id" binding:"required"`
	ProductId                  int                   `gorm:"index;not null" json:"product_id" binding:"required"`
	VendorId                   int                   `gorm:"index" json:"vendor_id"`
	ScheduleDate               time.Time             `gorm:"index;not null" json:"schedule_date" binding:"required"`
	ExpectedUsage              decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"expected_usage"`
	UsageAdjustment            decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"usage_adjustment"`
	ExpectedCommission         decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"expected_commission"`
	ActualUsage                decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"actual_usage"`
	ActualUsageAdjustment      decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"actual_usage_adjustment"`
	ActualCommission           decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"actual_commission"`
	ActualCommissionAdjustment decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"actual_commission_adjustment"`
	Status                     RevenueScheduleStatus `gorm:"type:enum('Unreconciled','Reconciled','Overpaid','Underpaid');not null;default:'Unreconciled'" json:"status"`
	BillingStatus              BillingStatus         `gorm:"type:enum('Open','InDispute','Reconciled');not null;default:'Open'" json:"billing_status"`
	BillingStatusSource        BillingStatusSource   `gorm:"type:enum('Auto','Settlement','Manual');not null;default:'Auto'" json:"billing_status_source"`
	FlexClassification         FlexClassification    `gorm:"type:enum('Normal','FlexProduct','FlexChargeback','FlexChargebackReversal');not null;default:'Normal'" json:"flex_classification"`
	RatePercent                decimal.Decimal       `gorm:"type:decimal(8,4);default:0" json:"rate_percent"`
	HouseSplitPercent          decimal.Decimal       `gorm:"type:decimal(8,4);default:0" json:"house_split_percent"`
	HouseRepSplitPercent       decimal.Decimal       `gorm:"type:decimal(8,4);default:0" json:"house_rep_split_percent"`
	SubagentSplitPercent       decimal.Decimal       `gorm:"type:decimal(8,4);default:0" json:"subagent_split_percent"`
	CreatedAt                  time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                  time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReconciliationEpsilon absorbs rounding noise when comparing money amounts.
var ReconciliationEpsilon = decimal.NewFromFloat(0.005)

// ScheduleRecompute is the numeric breakdown returned to downstream callers
// (flex decision, settlement, API responses).
type ScheduleRecompute struct {
	ExpectedUsageNet      decimal.Decimal       `json:"expected_usage_net"`
	ActualUsageNet        decimal.Decimal       `json:"actual_usage_net"`
	UsageBalance          decimal.Decimal       `json:"usage_balance"`
	ExpectedCommissionNet decimal.Decimal       `json:"expected_commission_net"`
	ActualCommissionNet   decimal.Decimal       `json:"actual_commission_net"`
	CommissionDifference  decimal.Decimal       `json:"commission_difference"`
	MatchCount            int64                 `json:"match_count"`
	Status                RevenueScheduleStatus `json:"status"`
}

// ResolveScheduleStatus classifies a schedule from its recomputed balances.
// The ladder is deterministic: no matches, then within tolerance, then
// overpaid when either actual exceeds expected, otherwise underpaid.
func ResolveScheduleStatus(
	matchCount int64,
	expectedUsageNet, usageBalance decimal.Decimal,
	expectedCommissionNet, commissionDifference decimal.Decimal,
	varianceTolerance decimal.Decimal,
) RevenueScheduleStatus {
	if matchCount == 0 {
		return RevenueScheduleStatusUnreconciled
	}
	tolerance := utils.ClampFraction(varianceTolerance)
	usageTolerance := utils.DecimalMax(expectedUsageNet.Abs().Mul(tolerance), ReconciliationEpsilon)
	commissionTolerance := utils.DecimalMax(expectedCommissionNet.Abs().Mul(tolerance), ReconciliationEpsilon)
	if usageBalance.Abs().LessThanOrEqual(usageTolerance) &&
		commissionDifference.Abs().LessThanOrEqual(commissionTolerance) {
		return RevenueScheduleStatusReconciled
	}
	if usageBalance.IsNegative() || commissionDifference.IsNegative() {
		return RevenueScheduleStatusOverpaid
	}
	return RevenueScheduleStatusUnderpaid
}

// GetRevenueSchedule fetches a schedule scoped to the tenant.
func GetRevenueSchedule(db *gorm.DB, id int, tenantId string) (RevenueSchedule, error) {
	return utils.FetchModelTx[RevenueSchedule](db, id, tenantId)
}

func GetRevenueScheduleForUpdate(tx *gorm.DB, id int, tenantId string) (RevenueSchedule, error) {
	var schedule RevenueSchedule
	err := utils.LockForUpdate(tx).
		Where("id = ? AND tenant_id = ?", id, tenantId).First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schedule, utils.ErrorRecordNotFound
	}
	return schedule, err
}

// RecomputeRevenueSchedule re-derives actualUsage, actualCommission and
// status from the schedule's Applied matches and persists them. Safe to
// re-run at any point; two consecutive runs with no new matches produce
// identical results.
func RecomputeRevenueSchedule(tx *gorm.DB, scheduleId int, tenantId string, varianceTolerance decimal.Decimal) (RevenueSchedule, ScheduleRecompute, error) {
	schedule, err := GetRevenueScheduleForUpdate(tx, scheduleId, tenantId)
	if err != nil {
		return schedule, ScheduleRecompute{}, err
	}

	type matchSum struct {
		UsageTotal      decimal.Decimal
		CommissionTotal decimal.Decimal
		MatchCount      int64
	}
	var sum matchSum
	err = tx.Model(&DepositLineMatch{}).
		Select("COALESCE(SUM(usage_amount),0) as usage_total, COALESCE(SUM(commission_amount),0) as commission_total, COUNT(*) as match_count").
		Where("revenue_schedule_id = ? AND tenant_id = ? AND status = ?", scheduleId, tenantId, DepositLineMatchStatusApplied).
		Scan(&sum).Error
	if err != nil {
		return schedule, ScheduleRecompute{}, err
	}

	recompute := ScheduleRecompute{
		ExpectedUsageNet:      schedule.ExpectedUsage.Add(schedule.UsageAdjustment),
		ActualUsageNet:        sum.UsageTotal.Add(schedule.ActualUsageAdjustment),
		ExpectedCommissionNet: schedule.ExpectedCommission,
		ActualCommissionNet:   sum.CommissionTotal.Add(schedule.ActualCommissionAdjustment),
		MatchCount:            sum.MatchCount,
	}
	recompute.UsageBalance = recompute.ExpectedUsageNet.Sub(recompute.ActualUsageNet)
	recompute.CommissionDifference = recompute.ExpectedCommissionNet.Sub(recompute.ActualCommissionNet)
	recompute.Status = ResolveScheduleStatus(
		sum.MatchCount,
		recompute.ExpectedUsageNet, recompute.UsageBalance,
		recompute.ExpectedCommissionNet, recompute.CommissionDifference,
		varianceTolerance,
	)

	schedule.ActualUsage = recompute.ActualUsageNet
	schedule.ActualCommission = recompute.ActualCommissionNet
	schedule.Status = recompute.Status

	err = tx.Model(&RevenueSchedule{}).
		Where("id = ? AND tenant_id = ?", scheduleId, tenantId).
		Updates(map[string]interface{}{
			"actual_usage":      schedule.ActualUsage,
			"actual_commission": schedule.ActualCommission,
			"status":            schedule.Status,
		}).Error
	return schedule, recompute, err
}

// FindFutureSchedulesInScope returns later schedules of the same recurring
// series (same opportunity product and vendor) that have no allocation yet,
// ordered by date. Used by apply-to-future flex propagation.
func FindFutureSchedulesInScope(tx *gorm.DB, base RevenueSchedule) ([]RevenueSchedule, error) {
	var schedules []RevenueSchedule
	err := tx.
		Where("tenant_id = ? AND opportunity_product_id = ? AND vendor_id = ? AND schedule_date > ? AND id != ?",
			base.TenantId, base.OpportunityProductId, base.VendorId, base.ScheduleDate, base.ID).
		Where("id NOT IN (?)",
			tx.Model(&DepositLineMatch{}).Select("revenue_schedule_id").
				Where("tenant_id = ? AND status = ?", base.TenantId, DepositLineMatchStatusApplied)).
		Order("schedule_date asc").
		Find(&schedules).Error
	return schedules, err
}
