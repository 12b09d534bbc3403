package handlers

import (
	"net/http"

	"github.com/commissionedge/crm_backend/models"
	"github.com/gin-gonic/gin"
)

func GetTenantSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, ok := tenantId(c)
		if !ok {
			return
		}
		settings, err := models.ResolveTenantSettings(c.Request.Context(), tenant)
		if err != nil {
			respondError(c, "settings.go", "GetTenantSettingsHandler", err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

type updateSettingRequest struct {
	Key   string      `json:"key" binding:"required"`
	Value interface{} `json:"value" binding:"required"`
}

// UpdateTenantSettingHandler upserts one setting key. Unknown keys are
// rejected; resolved values are normalized on the next read.
func UpdateTenantSettingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, ok := tenantId(c)
		if !ok {
			return
		}
		var req updateSettingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "settings.go", "UpdateTenantSettingHandler", err)
			return
		}
		if !models.IsKnownSettingKey(req.Key) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown setting key: " + req.Key})
			return
		}
		if err := models.SaveTenantSetting(c.Request.Context(), tenant, req.Key, req.Value); err != nil {
			respondError(c, "settings.go", "UpdateTenantSettingHandler", err)
			return
		}
		settings, err := models.ResolveTenantSettings(c.Request.Context(), tenant)
		if err != nil {
			respondError(c, "settings.go", "UpdateTenantSettingHandler", err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}
