package handlers

import (
	"net/http"
	"time"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type resolveFlexRequest struct {
	Action        models.FlexResolutionAction `json:"action" binding:"required"`
	ApplyToFuture bool                        `json:"apply_to_future"`
	Reason        string                      `json:"reason"`
}

func ResolveFlexHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheduleId, ok := pathId(c)
		if !ok {
			return
		}
		var req resolveFlexRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "schedule.go", "ResolveFlexHandler", err)
			return
		}
		result, err := workflow.ResolveFlex(c.Request.Context(), workflow.ResolveFlexInput{
			RevenueScheduleId: scheduleId,
			Action:            req.Action,
			ApplyToFuture:     req.ApplyToFuture,
			Reason:            req.Reason,
		})
		if err != nil {
			respondError(c, "schedule.go", "ResolveFlexHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func ApproveFlexHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheduleId, ok := pathId(c)
		if !ok {
			return
		}
		result, err := workflow.ApproveFlex(c.Request.Context(), scheduleId)
		if err != nil {
			respondError(c, "schedule.go", "ApproveFlexHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type settleRequest struct {
	Action models.SettlementAction `json:"action" binding:"required"`
	Reason string                  `json:"reason"`
}

func SettleScheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheduleId, ok := pathId(c)
		if !ok {
			return
		}
		var req settleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "schedule.go", "SettleScheduleHandler", err)
			return
		}
		result, err := workflow.SettleSchedule(c.Request.Context(), workflow.SettleInput{
			RevenueScheduleId: scheduleId,
			Action:            req.Action,
			Reason:            req.Reason,
		})
		if err != nil {
			respondError(c, "schedule.go", "SettleScheduleHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func BulkUpdateSchedulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.BulkUpdateInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, "schedule.go", "BulkUpdateSchedulesHandler", err)
			return
		}
		result, err := workflow.BulkUpdateSchedules(c.Request.Context(), input)
		if err != nil {
			respondError(c, "schedule.go", "BulkUpdateSchedulesHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func SweepBillingStatusesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := workflow.SweepBillingStatuses(c.Request.Context())
		if err != nil {
			respondError(c, "schedule.go", "SweepBillingStatusesHandler", err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

type undoAutoFillRequest struct {
	AuditLogId int `json:"audit_log_id" binding:"required"`
}

func UndoAutoFillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req undoAutoFillRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "schedule.go", "UndoAutoFillHandler", err)
			return
		}
		entry, err := workflow.UndoAutoFill(c.Request.Context(), req.AuditLogId)
		if err != nil {
			respondError(c, "schedule.go", "UndoAutoFillHandler", err)
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

type recordPayoutRequest struct {
	SplitType models.PayoutSplitType `json:"split_type" binding:"required"`
	Amount    decimal.Decimal        `json:"amount" binding:"required"`
	PaidAt    time.Time              `json:"paid_at" binding:"required"`
	Notes     string                 `json:"notes"`
}

func RecordPayoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheduleId, ok := pathId(c)
		if !ok {
			return
		}
		tenant, ok := tenantId(c)
		if !ok {
			return
		}
		var req recordPayoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "schedule.go", "RecordPayoutHandler", err)
			return
		}
		payout := models.CommissionPayout{
			TenantId:          tenant,
			RevenueScheduleId: scheduleId,
			SplitType:         req.SplitType,
			Amount:            req.Amount,
			PaidAt:            req.PaidAt,
			Status:            models.PayoutStatusPosted,
			Notes:             req.Notes,
		}

		tx := config.GetDB().WithContext(c.Request.Context()).Begin()
		if err := models.RecordPayout(tx, &payout); err != nil {
			tx.Rollback()
			respondError(c, "schedule.go", "RecordPayoutHandler", err)
			return
		}
		if err := tx.Commit().Error; err != nil {
			respondError(c, "schedule.go", "RecordPayoutHandler", err)
			return
		}
		c.JSON(http.StatusOK, payout)
	}
}

func VoidPayoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		payoutId, ok := pathId(c)
		if !ok {
			return
		}
		tenant, ok := tenantId(c)
		if !ok {
			return
		}
		tx := config.GetDB().WithContext(c.Request.Context()).Begin()
		payout, err := models.VoidPayout(tx, payoutId, tenant)
		if err != nil {
			tx.Rollback()
			respondError(c, "schedule.go", "VoidPayoutHandler", err)
			return
		}
		if err := tx.Commit().Error; err != nil {
			respondError(c, "schedule.go", "VoidPayoutHandler", err)
			return
		}
		c.JSON(http.StatusOK, payout)
	}
}

func ListPayoutsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheduleId, ok := pathId(c)
		if !ok {
			return
		}
		tenant, ok := tenantId(c)
		if !ok {
			return
		}
		db := config.GetDB().WithContext(c.Request.Context())
		payouts, err := models.ListPayoutsForSchedule(db, scheduleId, tenant)
		if err != nil {
			respondError(c, "schedule.go", "ListPayoutsHandler", err)
			return
		}
		c.JSON(http.StatusOK, payouts)
	}
}
