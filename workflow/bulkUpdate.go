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

// SplitUpdate carries new commission split percentages. Only non-nil parts
// are written.
type SplitUpdate struct {
	HousePercent    *decimal.Decimal `json:"house_percent"`
	HouseRepPercent *decimal.Decimal `json:"house_rep_percent"`
	SubagentPercent *decimal.Decimal `json:"subagent_percent"`
}

// BulkUpdateInput updates rate or splits across schedules from an effective
// date onward. Schedules dated before EffectiveDate are excluded silently,
// not errored.
type BulkUpdateInput struct {
	ScheduleIds   []int            `json:"schedule_ids" binding:"required"`
	EffectiveDate time.Time        `json:"effective_date" binding:"required"`
	RatePercent   *decimal.Decimal `json:"rate_percent"`
	Splits        *SplitUpdate     `json:"splits"`
}

// BulkUpdateResult mirrors the bulk undo shape: per-id errors, partial
// success allowed.
type BulkUpdateResult struct {
	Updated int               `json:"updated"`
	Failed  []int             `json:"failed"`
	Errors  map[string]string `json:"errors"`
}

// BulkUpdateSchedules applies a rate or split change per schedule, each in
// its own transaction, recomputing and auditing as it goes. One schedule's
// failure never aborts the batch.
func BulkUpdateSchedules(ctx context.Context, input BulkUpdateInput) (*BulkUpdateResult, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	if len(input.ScheduleIds) == 0 {
		return nil, errors.New("schedule_ids is required")
	}
	if input.RatePercent == nil && input.Splits == nil {
		return nil, errors.New("rate_percent or splits is required")
	}
	if input.Splits != nil {
		if err := validateSplits(input.Splits); err != nil {
			return nil, err
		}
	}

	settings, err := models.ResolveTenantSettings(ctx, tenantId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	result := &BulkUpdateResult{Errors: map[string]string{}}
	for _, scheduleId := range input.ScheduleIds {
		tx := db.WithContext(ctx).Begin()
		skipped, err := bulkUpdateOne(tx, tenantId, scheduleId, input, settings)
		if err != nil {
			tx.Rollback()
			result.Failed = append(result.Failed, scheduleId)
			result.Errors[fmt.Sprint(scheduleId)] = err.Error()
			continue
		}
		if err := tx.Commit().Error; err != nil {
			result.Failed = append(result.Failed, scheduleId)
			result.Errors[fmt.Sprint(scheduleId)] = err.Error()
			continue
		}
		if !skipped {
			result.Updated++
		}
	}
	return result, nil
}

// bulkUpdateOne returns skipped=true when the schedule predates the
// effective date.
func bulkUpdateOne(tx *gorm.DB, tenantId string, scheduleId int, input BulkUpdateInput, settings models.TenantSettings) (bool, error) {
	schedule, err := models.GetRevenueScheduleForUpdate(tx, scheduleId, tenantId)
	if err != nil {
		return false, err
	}
	if schedule.ScheduleDate.Before(input.EffectiveDate) {
		return true, nil
	}

	updates := map[string]interface{}{}
	previous := map[string]string{}
	next := map[string]string{}
	action := models.AuditActionBulkRateUpdate

	if input.RatePercent != nil {
		rate := utils.ClampFraction(*input.RatePercent)
		previous["rate_percent"] = schedule.RatePercent.String()
		next["rate_percent"] = rate.String()
		updates["rate_percent"] = rate
		// Expected commission follows the new rate.
		expectedCommission := schedule.ExpectedUsage.Add(schedule.UsageAdjustment).Mul(rate)
		previous["expected_commission"] = schedule.ExpectedCommission.String()
		next["expected_commission"] = expectedCommission.String()
		updates["expected_commission"] = expectedCommission
	}
	if input.Splits != nil {
		action = models.AuditActionBulkSplitUpdate
		if input.RatePercent != nil {
			action = models.AuditActionBulkRateUpdate
		}
		if input.Splits.HousePercent != nil {
			previous["house_split_percent"] = schedule.HouseSplitPercent.String()
			next["house_split_percent"] = input.Splits.HousePercent.String()
			updates["house_split_percent"] = *input.Splits.HousePercent
		}
		if input.Splits.HouseRepPercent != nil {
			previous["house_rep_split_percent"] = schedule.HouseRepSplitPercent.String()
			next["house_rep_split_percent"] = input.Splits.HouseRepPercent.String()
			updates["house_rep_split_percent"] = *input.Splits.HouseRepPercent
		}
		if input.Splits.SubagentPercent != nil {
			previous["subagent_split_percent"] = schedule.SubagentSplitPercent.String()
			next["subagent_split_percent"] = input.Splits.SubagentPercent.String()
			updates["subagent_split_percent"] = *input.Splits.SubagentPercent
		}
	}
	if len(updates) == 0 {
		return true, nil
	}

	err = tx.Model(&models.RevenueSchedule{}).
		Where("id = ? AND tenant_id = ?", scheduleId, tenantId).Updates(updates).Error
	if err != nil {
		return false, err
	}

	if _, _, err := models.RecomputeRevenueSchedule(tx, scheduleId, tenantId, settings.VarianceTolerance); err != nil {
		return false, err
	}

	_, err = models.CreateAuditLog(tx, "RevenueSchedule", scheduleId, action,
		previous, next, models.AuditMetadata{Detail: map[string]interface{}{
			"effective_date": input.EffectiveDate.Format("2006-01-02"),
		}})
	return false, err
}

func validateSplits(splits *SplitUpdate) error {
	total := decimal.Zero
	count := 0
	for _, part := range []*decimal.Decimal{splits.HousePercent, splits.HouseRepPercent, splits.SubagentPercent} {
		if part == nil {
			continue
		}
		if part.IsNegative() {
			return errors.New("split percentages cannot be negative")
		}
		total = total.Add(*part)
		count++
	}
	if count == 0 {
		return errors.New("splits must set at least one percentage")
	}
	// A full split set must sum to 1 within epsilon.
	if count == 3 && total.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(models.ReconciliationEpsilon) {
		return errors.New("split percentages must sum to 1")
	}
	return nil
}
