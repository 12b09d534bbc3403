package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/utils"
)

// AutoMatchSummary reports one sweep over a deposit. Counts reconcile:
// processed = autoMatched + alreadyMatched + belowThreshold + noCandidates
// + errors.
type AutoMatchSummary struct {
	Processed      int `json:"processed"`
	AutoMatched    int `json:"auto_matched"`
	AlreadyMatched int `json:"already_matched"`
	BelowThreshold int `json:"below_threshold"`
	NoCandidates   int `json:"no_candidates"`
	Errors         int `json:"errors"`
}

// AutoMatchDeposit sweeps every unmatched line of the deposit, applying the
// top candidate when its confidence clears the user's auto-match threshold.
// A redis lock guards against two sweeps over the same deposit running at
// once; a held lock is a conflict, not a queue.
func AutoMatchDeposit(ctx context.Context, depositId int) (*AutoMatchSummary, error) {
	logger := config.GetLogger()
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	lockKey := fmt.Sprintf("autoMatch:%s:%d", tenantId, depositId)
	lock, err := config.GetRedisLock().Obtain(ctx, lockKey, 2*time.Minute, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, utils.ConflictError("auto-match is already running for deposit %d", depositId)
	}
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	db := config.GetDB()
	deposit, err := models.GetDepositWithLines(db.WithContext(ctx), depositId, tenantId)
	if err != nil {
		return nil, err
	}
	if deposit.IsFinalized() {
		return nil, models.ErrorDepositFinalized
	}

	settings, err := models.ResolveTenantSettings(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	thresholds, err := models.GetUserMatchThresholds(ctx, tenantId, userId)
	if err != nil {
		return nil, err
	}
	useHierarchical := settings.EngineMode == models.EngineModeHierarchical

	summary := &AutoMatchSummary{}
	for _, line := range deposit.LineItems {
		summary.Processed++

		if line.Status == models.DepositLineItemStatusMatched ||
			line.Status == models.DepositLineItemStatusIgnored || line.IsReconciled() {
			summary.AlreadyMatched++
			continue
		}

		candidates, err := GetMatchCandidates(ctx, line.ID, CandidateOptions{
			Limit:                   1,
			UseHierarchicalMatching: useHierarchical,
			IncludeFutureSchedules:  settings.IncludeFutureSchedulesDefault,
			VarianceTolerance:       settings.VarianceTolerance,
		})
		if err != nil {
			summary.Errors++
			config.LogError(logger, "autoMatch.go", "AutoMatchDeposit", "getting candidates", line.ID, err)
			continue
		}
		if len(candidates) == 0 {
			summary.NoCandidates++
			continue
		}
		best := candidates[0]
		if best.MatchConfidence.LessThan(thresholds.AutoMatchMinConfidence) {
			summary.BelowThreshold++
			continue
		}

		tx := db.WithContext(ctx).Begin()
		_, err = applyMatchInTx(tx, tenantId, ApplyMatchInput{
			LineId:          line.ID,
			ScheduleId:      best.RevenueScheduleId,
			ConfidenceScore: &best.MatchConfidence,
			Source:          models.MatchSourceAuto,
		}, settings)
		if err != nil {
			tx.Rollback()
			summary.Errors++
			config.LogError(logger, "autoMatch.go", "AutoMatchDeposit", "applying match", line.ID, err)
			continue
		}
		if err := tx.Commit().Error; err != nil {
			summary.Errors++
			config.LogError(logger, "autoMatch.go", "AutoMatchDeposit", "committing match", line.ID, err)
			continue
		}
		summary.AutoMatched++
	}
	return summary, nil
}
