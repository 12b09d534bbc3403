package handlers

import (
	"net/http"
	"strconv"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/utils"
	"github.com/commissionedge/crm_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func tenantId(c *gin.Context) (string, bool) {
	tenantId, ok := utils.GetTenantIdFromContext(c.Request.Context())
	if !ok || tenantId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return tenantId, true
}

type candidatesRequest struct {
	Limit                   *int             `json:"limit"`
	UseHierarchicalMatching *bool            `json:"use_hierarchical_matching"`
	IncludeFutureSchedules  *bool            `json:"include_future_schedules"`
	VarianceTolerance       *decimal.Decimal `json:"variance_tolerance"`
}

// GetCandidatesHandler scores schedules for one deposit line item. Options
// default from tenant settings; confidence filtering is left to the caller.
func GetCandidatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		lineId, ok := pathId(c)
		if !ok {
			return
		}
		tenant, ok := tenantId(c)
		if !ok {
			return
		}
		var req candidatesRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, "deposit.go", "GetCandidatesHandler", err)
				return
			}
		}

		settings, err := models.ResolveTenantSettings(c.Request.Context(), tenant)
		if err != nil {
			respondError(c, "deposit.go", "GetCandidatesHandler", err)
			return
		}
		options := workflow.CandidateOptions{
			Limit:                   utils.DereferencePtr(req.Limit, 10),
			UseHierarchicalMatching: utils.DereferencePtr(req.UseHierarchicalMatching, settings.EngineMode == models.EngineModeHierarchical),
			IncludeFutureSchedules:  utils.DereferencePtr(req.IncludeFutureSchedules, settings.IncludeFutureSchedulesDefault),
			VarianceTolerance:       utils.DereferencePtr(req.VarianceTolerance, settings.VarianceTolerance),
		}

		candidates, err := workflow.GetMatchCandidates(c.Request.Context(), lineId, options)
		if err != nil {
			respondError(c, "deposit.go", "GetCandidatesHandler", err)
			return
		}
		c.JSON(http.StatusOK, candidates)
	}
}

type applyMatchRequest struct {
	ScheduleId       int              `json:"schedule_id" binding:"required"`
	UsageAmount      *decimal.Decimal `json:"usage_amount"`
	CommissionAmount *decimal.Decimal `json:"commission_amount"`
	ConfidenceScore  *decimal.Decimal `json:"confidence_score"`
}

func ApplyMatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		lineId, ok := pathId(c)
		if !ok {
			return
		}
		var req applyMatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "deposit.go", "ApplyMatchHandler", err)
			return
		}
		result, err := workflow.ApplyMatch(c.Request.Context(), workflow.ApplyMatchInput{
			LineId:           lineId,
			ScheduleId:       req.ScheduleId,
			UsageAmount:      req.UsageAmount,
			CommissionAmount: req.CommissionAmount,
			ConfidenceScore:  req.ConfidenceScore,
			Source:           models.MatchSourceManual,
		})
		if err != nil {
			respondError(c, "deposit.go", "ApplyMatchHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type matchGroupRequest struct {
	MatchType   models.MatchType           `json:"match_type"`
	LineIds     []int                      `json:"line_ids" binding:"required"`
	ScheduleIds []int                      `json:"schedule_ids" binding:"required"`
	Allocations []workflow.GroupAllocation `json:"allocations"`
}

func ApplyMatchGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		depositId, ok := pathId(c)
		if !ok {
			return
		}
		var req matchGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "deposit.go", "ApplyMatchGroupHandler", err)
			return
		}
		result, err := workflow.ApplyMatchGroup(c.Request.Context(), workflow.ApplyMatchGroupInput{
			DepositId:   depositId,
			MatchType:   req.MatchType,
			LineIds:     req.LineIds,
			ScheduleIds: req.ScheduleIds,
			Allocations: req.Allocations,
		})
		if err != nil {
			respondError(c, "deposit.go", "ApplyMatchGroupHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func AutoMatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		depositId, ok := pathId(c)
		if !ok {
			return
		}
		summary, err := workflow.AutoMatchDeposit(c.Request.Context(), depositId)
		if err != nil {
			respondError(c, "deposit.go", "AutoMatchHandler", err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

type undoMatchesRequest struct {
	MatchIds []int `json:"match_ids" binding:"required"`
}

func UndoMatchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		depositId, ok := pathId(c)
		if !ok {
			return
		}
		var req undoMatchesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "deposit.go", "UndoMatchesHandler", err)
			return
		}
		result, err := workflow.UndoDepositMatches(c.Request.Context(), depositId, req.MatchIds)
		if err != nil {
			respondError(c, "deposit.go", "UndoMatchesHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func FinalizeDepositHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		depositId, ok := pathId(c)
		if !ok {
			return
		}
		result, err := workflow.FinalizeDeposit(c.Request.Context(), depositId)
		if err != nil {
			respondError(c, "deposit.go", "FinalizeDepositHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func GetDepositHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		depositId, ok := pathId(c)
		if !ok {
			return
		}
		tenant, ok := tenantId(c)
		if !ok {
			return
		}
		db := config.GetDB().WithContext(c.Request.Context())
		deposit, err := models.GetDepositWithLines(db, depositId, tenant)
		if err != nil {
			respondError(c, "deposit.go", "GetDepositHandler", err)
			return
		}
		c.JSON(http.StatusOK, deposit)
	}
}

func UploadDepositDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		depositId, ok := pathId(c)
		if !ok {
			return
		}
		tenant, ok := tenantId(c)
		if !ok {
			return
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		document, err := models.AttachDepositDocument(c.Request.Context(), depositId, tenant, fileHeader)
		if err != nil {
			respondError(c, "deposit.go", "UploadDepositDocumentHandler", err)
			return
		}
		c.JSON(http.StatusOK, document)
	}
}

func ListDepositDocumentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		depositId, ok := pathId(c)
		if !ok {
			return
		}
		tenant, ok := tenantId(c)
		if !ok {
			return
		}
		documents, err := models.ListDocuments(c.Request.Context(), tenant,
			string(models.ReconReferenceTypeDeposit), depositId)
		if err != nil {
			respondError(c, "deposit.go", "ListDepositDocumentsHandler", err)
			return
		}
		c.JSON(http.StatusOK, documents)
	}
}
