package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ApplyMatchInput is one manual or auto match application. Nil amounts
// default to the line's remaining unallocated usage/commission.
type ApplyMatchInput struct {
	LineId           int                `json:"line_id" binding:"required"`
	ScheduleId       int                `json:"schedule_id" binding:"required"`
	UsageAmount      *decimal.Decimal   `json:"usage_amount"`
	CommissionAmount *decimal.Decimal   `json:"commission_amount"`
	ConfidenceScore  *decimal.Decimal   `json:"confidence_score"`
	Source           models.MatchSource `json:"source"`
}

// ApplyMatchResult feeds the HTTP response and the auto-match sweep.
type ApplyMatchResult struct {
	Match        models.DepositLineMatch  `json:"match"`
	UpdatedLine  models.DepositLineItem   `json:"updated_line"`
	Schedule     models.RevenueSchedule   `json:"schedule"`
	Recompute    models.ScheduleRecompute `json:"recompute"`
	FlexDecision FlexDecision             `json:"flex_decision"`
	AutoFilled   []string                 `json:"auto_filled,omitempty"`
}

// ApplyMatch runs the whole application pipeline in one transaction: match
// upsert, line allocation recompute, schedule recompute, flex decision,
// billing status transition, deposit aggregate recompute, audit and outbox.
func ApplyMatch(ctx context.Context, input ApplyMatchInput) (*ApplyMatchResult, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	if !input.Source.Valid() {
		input.Source = models.MatchSourceManual
	}

	settings, err := models.ResolveTenantSettings(ctx, tenantId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	result, err := applyMatchInTx(tx, tenantId, input, settings)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

// applyMatchInTx is the tx-scoped body shared by ApplyMatch, the group
// application and the auto-match sweep.
func applyMatchInTx(tx *gorm.DB, tenantId string, input ApplyMatchInput, settings models.TenantSettings) (*ApplyMatchResult, error) {
	line, err := models.GetDepositLineItemForUpdate(tx, input.LineId, tenantId)
	if err != nil {
		return nil, err
	}
	// Reconciled is re-checked under the row lock, not only at the edge.
	if line.IsReconciled() {
		return nil, models.ErrorLineReconciled
	}
	schedule, err := models.GetRevenueScheduleForUpdate(tx, input.ScheduleId, tenantId)
	if err != nil {
		return nil, err
	}

	usageAmount := utils.DereferencePtr(input.UsageAmount, line.UsageUnallocated)
	commissionAmount := utils.DereferencePtr(input.CommissionAmount, line.CommissionUnallocated)
	confidence := utils.DereferencePtr(input.ConfidenceScore, decimal.Zero)

	match := models.DepositLineMatch{
		TenantId:          tenantId,
		DepositLineItemId: line.ID,
		RevenueScheduleId: schedule.ID,
		UsageAmount:       usageAmount,
		CommissionAmount:  commissionAmount,
		ConfidenceScore:   confidence,
		Status:            matchStatusForLine(line),
		Source:            input.Source,
	}
	if err := models.UpsertMatch(tx, &match); err != nil {
		return nil, err
	}

	return finishMatchPipeline(tx, tenantId, line.ID, schedule.ID, match, settings)
}

// finishMatchPipeline runs the recomputation chain after a match row was
// written and returns the assembled result.
func finishMatchPipeline(tx *gorm.DB, tenantId string, lineId, scheduleId int,
	match models.DepositLineMatch, settings models.TenantSettings) (*ApplyMatchResult, error) {

	line, err := models.RecomputeLineAllocation(tx, lineId, tenantId)
	if err != nil {
		return nil, err
	}
	schedule, recompute, err := models.RecomputeRevenueSchedule(tx, scheduleId, tenantId, settings.VarianceTolerance)
	if err != nil {
		return nil, err
	}

	product, err := models.GetProduct(tx, schedule.ProductId, tenantId)
	if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, err
	}
	decision := EvaluateFlexDecision(FlexDecisionInput{
		ExpectedUsageNet:      recompute.ExpectedUsageNet,
		UsageBalance:          recompute.UsageBalance,
		VarianceTolerance:     settings.VarianceTolerance,
		HasNegativeLine:       line.HasNegativeAmount(),
		IsBonusLike:           product.BonusLike(),
		ExpectedCommissionNet: recompute.ExpectedCommissionNet,
		CommissionDifference:  recompute.CommissionDifference,
	})
	if decision.Action == FlexActionAutoAdjust {
		if err := bookAutoAdjust(tx, &schedule, decision, settings); err != nil {
			return nil, err
		}
		// Re-derive the balance after booking the adjustment.
		schedule, recompute, err = models.RecomputeRevenueSchedule(tx, scheduleId, tenantId, settings.VarianceTolerance)
		if err != nil {
			return nil, err
		}
	}
	if decision.Action == FlexActionAutoChargeback {
		if err := markChargebackPending(tx, &schedule, line); err != nil {
			return nil, err
		}
	}

	if _, err := applyBillingStatusTransition(tx, schedule); err != nil {
		return nil, err
	}
	if _, err := models.RecomputeDepositAggregates(tx, line.DepositId, tenantId); err != nil {
		return nil, err
	}

	autoFilled, err := AutoFillFromDepositMatch(tx, line, schedule)
	if err != nil {
		return nil, err
	}

	auditAction := models.AuditActionApplyMatch
	if match.Source == models.MatchSourceAuto {
		auditAction = models.AuditActionAutoMatchApply
	}
	_, err = models.CreateAuditLog(tx, "DepositLineMatch", match.ID, auditAction,
		nil, match, models.AuditMetadata{Detail: map[string]interface{}{
			"deposit_line_item_id": line.ID,
			"revenue_schedule_id":  schedule.ID,
			"flex_action":          decision.Action,
		}})
	if err != nil {
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(tx.Statement.Context)
	err = models.QueueReconEvent(tx, tenantId, models.ReconReferenceTypeMatch, match.ID,
		auditAction, match, correlationId)
	if err != nil {
		return nil, err
	}

	return &ApplyMatchResult{
		Match:        match,
		UpdatedLine:  line,
		Schedule:     schedule,
		Recompute:    recompute,
		FlexDecision: decision,
		AutoFilled:   autoFilled,
	}, nil
}

// matchStatusForLine picks the initial status for a new match. Chargeback
// rows park at Suggested until flex approval promotes them to Applied.
func matchStatusForLine(line models.DepositLineItem) models.DepositLineMatchStatus {
	if line.HasNegativeAmount() {
		return models.DepositLineMatchStatusSuggested
	}
	return models.DepositLineMatchStatusApplied
}

// applyAdjustDeltas books an overage pair onto the schedule's adjustment
// fields and returns the column updates to persist. The usage side raises the
// expected adjustment; the commission side has no expected adjustment field,
// so its overage nets out of the actual commission adjustment.
func applyAdjustDeltas(schedule *models.RevenueSchedule, usageOverage, commissionOverage decimal.Decimal) map[string]interface{} {
	schedule.UsageAdjustment = schedule.UsageAdjustment.Add(usageOverage)
	schedule.ActualCommissionAdjustment = schedule.ActualCommissionAdjustment.Sub(commissionOverage)
	return map[string]interface{}{
		"usage_adjustment":             schedule.UsageAdjustment,
		"actual_commission_adjustment": schedule.ActualCommissionAdjustment,
	}
}

// bookAutoAdjust absorbs a within-tolerance overage into the schedule's
// adjustment fields so the schedule reconciles cleanly.
func bookAutoAdjust(tx *gorm.DB, schedule *models.RevenueSchedule, decision FlexDecision, settings models.TenantSettings) error {
	previous := map[string]string{
		"usage_adjustment":             schedule.UsageAdjustment.String(),
		"actual_commission_adjustment": schedule.ActualCommissionAdjustment.String(),
	}
	updates := applyAdjustDeltas(schedule, decision.UsageOverage, decision.CommissionOverage)
	err := tx.Model(&models.RevenueSchedule{}).
		Where("id = ? AND tenant_id = ?", schedule.ID, schedule.TenantId).
		Updates(updates).Error
	if err != nil {
		return err
	}
	_, err = models.CreateAuditLog(tx, "RevenueSchedule", schedule.ID, models.AuditActionResolveFlexAdjust,
		previous, map[string]string{
			"usage_adjustment":             schedule.UsageAdjustment.String(),
			"actual_commission_adjustment": schedule.ActualCommissionAdjustment.String(),
		},
		models.AuditMetadata{Detail: map[string]interface{}{"auto": true}})
	return err
}

// markChargebackPending tags the schedule for flex approval when the line
// itself is a chargeback row.
func markChargebackPending(tx *gorm.DB, schedule *models.RevenueSchedule, line models.DepositLineItem) error {
	classification := models.FlexClassificationChargeback
	if schedule.FlexClassification == models.FlexClassificationChargeback {
		classification = models.FlexClassificationChargebackReversal
	}
	previous := map[string]string{"flex_classification": string(schedule.FlexClassification)}
	schedule.FlexClassification = classification
	err := tx.Model(&models.RevenueSchedule{}).
		Where("id = ? AND tenant_id = ?", schedule.ID, schedule.TenantId).
		Update("flex_classification", classification).Error
	if err != nil {
		return err
	}
	_, err = models.CreateAuditLog(tx, "RevenueSchedule", schedule.ID, models.AuditActionScheduleStatusChange,
		previous, map[string]string{"flex_classification": string(classification)},
		models.AuditMetadata{Detail: map[string]interface{}{
			"deposit_line_item_id": line.ID,
			"chargeback":           true,
		}})
	return err
}

// GroupAllocation targets one (line, schedule) pair inside a group apply.
type GroupAllocation struct {
	LineId           int             `json:"line_id" binding:"required"`
	ScheduleId       int             `json:"schedule_id" binding:"required"`
	UsageAmount      decimal.Decimal `json:"usage_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
}

// ApplyMatchGroupInput is a multi-line/multi-schedule application validated
// as a batch before any write.
type ApplyMatchGroupInput struct {
	DepositId   int               `json:"deposit_id" binding:"required"`
	MatchType   models.MatchType  `json:"match_type"`
	LineIds     []int             `json:"line_ids" binding:"required"`
	ScheduleIds []int             `json:"schedule_ids" binding:"required"`
	Allocations []GroupAllocation `json:"allocations"`
}

type ApplyMatchGroupResult struct {
	Group     models.DepositMatchGroup  `json:"group"`
	Deposit   models.Deposit            `json:"deposit"`
	Lines     []models.DepositLineItem  `json:"lines"`
	Schedules []models.RevenueSchedule  `json:"schedules"`
	Matches   []models.DepositLineMatch `json:"matches"`
}

// ApplyMatchGroup applies every allocation of the group atomically. Zero
// allocations are filtered first; an empty set after filtering is an error.
func ApplyMatchGroup(ctx context.Context, input ApplyMatchGroupInput) (*ApplyMatchGroupResult, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	if input.MatchType == "" {
		input.MatchType = models.MatchTypeHierarchical
	}

	allocations := make([]GroupAllocation, 0, len(input.Allocations))
	for _, allocation := range input.Allocations {
		if allocation.UsageAmount.IsZero() && allocation.CommissionAmount.IsZero() {
			continue
		}
		allocations = append(allocations, allocation)
	}
	if len(allocations) == 0 {
		return nil, errors.New("No non-zero allocations provided")
	}

	settings, err := models.ResolveTenantSettings(ctx, tenantId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	userId, _ := utils.GetUserIdFromContext(ctx)

	result, err := applyMatchGroupInTx(tx, tenantId, userId, input, allocations, settings)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func applyMatchGroupInTx(tx *gorm.DB, tenantId string, userId int, input ApplyMatchGroupInput,
	allocations []GroupAllocation, settings models.TenantSettings) (*ApplyMatchGroupResult, error) {

	// Validate the whole batch before the first write.
	lines := make(map[int]models.DepositLineItem, len(input.LineIds))
	for _, allocation := range allocations {
		if _, seen := lines[allocation.LineId]; seen {
			continue
		}
		line, err := models.GetDepositLineItemForUpdate(tx, allocation.LineId, tenantId)
		if err != nil {
			return nil, fmt.Errorf("line item %d: %w", allocation.LineId, err)
		}
		if line.IsReconciled() {
			return nil, fmt.Errorf("line item %d is reconciled and cannot be modified", allocation.LineId)
		}
		if line.DepositId != input.DepositId {
			return nil, fmt.Errorf("line item %d does not belong to deposit %d", allocation.LineId, input.DepositId)
		}
		lines[allocation.LineId] = line
	}
	for _, allocation := range allocations {
		if _, err := models.GetRevenueSchedule(tx, allocation.ScheduleId, tenantId); err != nil {
			return nil, fmt.Errorf("revenue schedule %d: %w", allocation.ScheduleId, err)
		}
	}

	group := models.DepositMatchGroup{
		TenantId:  tenantId,
		DepositId: input.DepositId,
		MatchType: input.MatchType,
		Status:    "Applied",
		CreatedBy: userId,
	}
	if err := models.CreateMatchGroup(tx, &group); err != nil {
		return nil, err
	}

	matches := make([]models.DepositLineMatch, 0, len(allocations))
	touchedLines := make(map[int]bool)
	touchedSchedules := make(map[int]bool)
	for _, allocation := range allocations {
		line := lines[allocation.LineId]
		match := models.DepositLineMatch{
			TenantId:          tenantId,
			DepositLineItemId: allocation.LineId,
			RevenueScheduleId: allocation.ScheduleId,
			MatchGroupId:      &group.ID,
			UsageAmount:       allocation.UsageAmount,
			CommissionAmount:  allocation.CommissionAmount,
			Status:            matchStatusForLine(line),
			Source:            models.MatchSourceManual,
		}
		if err := models.UpsertMatch(tx, &match); err != nil {
			return nil, err
		}
		matches = append(matches, match)
		touchedLines[allocation.LineId] = true
		touchedSchedules[allocation.ScheduleId] = true
	}

	result := &ApplyMatchGroupResult{Group: group, Matches: matches}
	for lineId := range touchedLines {
		line, err := models.RecomputeLineAllocation(tx, lineId, tenantId)
		if err != nil {
			return nil, err
		}
		result.Lines = append(result.Lines, line)
	}
	for scheduleId := range touchedSchedules {
		schedule, _, err := models.RecomputeRevenueSchedule(tx, scheduleId, tenantId, settings.VarianceTolerance)
		if err != nil {
			return nil, err
		}
		if _, err := applyBillingStatusTransition(tx, schedule); err != nil {
			return nil, err
		}
		result.Schedules = append(result.Schedules, schedule)
	}

	deposit, err := models.RecomputeDepositAggregates(tx, input.DepositId, tenantId)
	if err != nil {
		return nil, err
	}
	result.Deposit = deposit

	_, err = models.CreateAuditLog(tx, "DepositMatchGroup", group.ID, models.AuditActionApplyMatchGroup,
		nil, group, models.AuditMetadata{Detail: map[string]interface{}{
			"deposit_id":  input.DepositId,
			"match_count": len(matches),
		}})
	if err != nil {
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(tx.Statement.Context)
	err = models.QueueReconEvent(tx, tenantId, models.ReconReferenceTypeDeposit, input.DepositId,
		models.AuditActionApplyMatchGroup, group, correlationId)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UndoMatchesResult is the bulk-undo summary with per-id errors.
type UndoMatchesResult struct {
	Updated int               `json:"updated"`
	Failed  []int             `json:"failed"`
	Errors  map[string]string `json:"errors"`
}

// UndoDepositMatches removes the given Applied matches. Each line item's
// undo runs in its own transaction so one failure never rolls back the rest.
func UndoDepositMatches(ctx context.Context, depositId int, matchIds []int) (*UndoMatchesResult, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	if len(matchIds) == 0 {
		return nil, errors.New("match_ids is required")
	}

	settings, err := models.ResolveTenantSettings(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	result := &UndoMatchesResult{Errors: map[string]string{}}

	for _, matchId := range matchIds {
		tx := db.WithContext(ctx).Begin()
		lineId, err := undoOneMatch(tx, tenantId, depositId, matchId, settings)
		if err != nil {
			tx.Rollback()
			failedId := lineId
			if failedId == 0 {
				failedId = matchId
			}
			result.Failed = append(result.Failed, failedId)
			result.Errors[fmt.Sprint(failedId)] = err.Error()
			continue
		}
		if err := tx.Commit().Error; err != nil {
			result.Failed = append(result.Failed, lineId)
			result.Errors[fmt.Sprint(lineId)] = err.Error()
			continue
		}
		result.Updated++
	}
	return result, nil
}

func undoOneMatch(tx *gorm.DB, tenantId string, depositId int, matchId int, settings models.TenantSettings) (int, error) {
	match, err := models.GetMatch(tx, matchId, tenantId)
	if err != nil {
		return 0, err
	}
	line, err := models.GetDepositLineItemForUpdate(tx, match.DepositLineItemId, tenantId)
	if err != nil {
		return match.DepositLineItemId, err
	}
	if depositId != 0 && line.DepositId != depositId {
		return line.ID, fmt.Errorf("match %d does not belong to deposit %d", matchId, depositId)
	}
	if line.IsReconciled() {
		return line.ID, models.ErrorLineReconciled
	}
	if err := models.DeleteMatch(tx, match); err != nil {
		return line.ID, err
	}

	if _, err := models.RecomputeLineAllocation(tx, line.ID, tenantId); err != nil {
		return line.ID, err
	}
	schedule, _, err := models.RecomputeRevenueSchedule(tx, match.RevenueScheduleId, tenantId, settings.VarianceTolerance)
	if err != nil {
		return line.ID, err
	}
	if _, err := applyBillingStatusTransition(tx, schedule); err != nil {
		return line.ID, err
	}
	if _, err := models.RecomputeDepositAggregates(tx, line.DepositId, tenantId); err != nil {
		return line.ID, err
	}

	_, err = models.CreateAuditLog(tx, "DepositLineMatch", match.ID, models.AuditActionUndoMatch,
		match, nil, models.AuditMetadata{Detail: map[string]interface{}{
			"deposit_line_item_id": line.ID,
			"revenue_schedule_id":  match.RevenueScheduleId,
		}})
	if err != nil {
		return line.ID, err
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(tx.Statement.Context)
	err = models.QueueReconEvent(tx, tenantId, models.ReconReferenceTypeMatch, match.ID,
		models.AuditActionUndoMatch, match, correlationId)
	return line.ID, err
}
