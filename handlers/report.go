package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/models"
	"github.com/commissionedge/crm_backend/workflow"
	"github.com/gin-gonic/gin"
)

// VendorSummaryHandler returns the per-vendor allocation rollup. With
// format=xlsx the same report streams back as a spreadsheet download.
func VendorSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := workflow.GetVendorSummary(c.Request.Context())
		if err != nil {
			respondError(c, "report.go", "VendorSummaryHandler", err)
			return
		}
		wantXlsx := c.Query("format") == "xlsx" || strings.HasSuffix(c.Request.URL.Path, ".xlsx")
		if !wantXlsx {
			c.JSON(http.StatusOK, report)
			return
		}

		var buf bytes.Buffer
		if err := workflow.ExportVendorSummaryExcel(report, &buf); err != nil {
			respondError(c, "report.go", "VendorSummaryHandler", err)
			return
		}
		fileName := fmt.Sprintf("vendor-summary-%s.xlsx", time.Now().Format("2006-01-02"))
		c.Header("Content-Disposition", "attachment; filename="+fileName)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}

func ListAuditLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, ok := tenantId(c)
		if !ok {
			return
		}
		entityName := c.Query("entity_name")
		entityId, _ := strconv.Atoi(c.Query("entity_id"))
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
		if err != nil || limit <= 0 {
			limit = 100
		}

		db := config.GetDB().WithContext(c.Request.Context())
		logs, err := models.ListAuditLogs(db, tenant, entityName, entityId, limit)
		if err != nil {
			respondError(c, "report.go", "ListAuditLogsHandler", err)
			return
		}
		c.JSON(http.StatusOK, logs)
	}
}
